package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/cull/featureflag"
	cullhttp "github.com/aukilabs/cull/http"
	"github.com/aukilabs/cull/models"
	"github.com/aukilabs/cull/modules"
	"github.com/aukilabs/cull/scene"
	"github.com/aukilabs/cull/smoketest"
	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

var (
	// The cullbench version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "cull_info",
		Help:        "Cullbench information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	AdminAddr           string        `cli:""        env:"CULL_ADMIN_ADDR"            help:"Admin listening address. Empty disables the admin server."`
	LogLevel            string        `cli:""        env:"CULL_LOG_LEVEL"             help:"Log level (debug|info|warning|error)."`
	LogIndent           bool          `cli:""        env:"CULL_LOG_INDENT"            help:"Indent logs."`
	Strategy            string        `cli:""        env:"CULL_STRATEGY"              help:"Culling strategy (hash|simple)."`
	CellSize            float64       `cli:""        env:"CULL_CELL_SIZE"             help:"The size of a spatial hash cell, in world units."`
	SceneFile           string        `cli:""        env:"CULL_SCENE_FILE"            help:"YAML file describing the generated scene."`
	Frames              int           `cli:""        env:"CULL_FRAMES"                help:"The number of frames to run. 0 runs until interrupted."`
	Profile             string        `cli:""        env:"CULL_PROFILE"               help:"Profiles the run (cpu|mem)."`
	ProfilePath         string        `cli:",hidden" env:"CULL_PROFILE_PATH"          help:"The directory where profiles are written."`
	FrameDuration       time.Duration `cli:",hidden" env:"CULL_FRAME_DURATION"        help:"The duration of a frame."`
	LogSummaryInterval  time.Duration `cli:",hidden" env:"CULL_LOG_SUMMARY_INTERVAL"  help:"The duration between each culling summary log."`
	SmokeTestFrames     int           `cli:",hidden" env:"CULL_SMOKE_TEST_FRAMES"     help:"The number of frames compared by the startup smoke test."`
	BucketStatsInterval time.Duration `cli:",hidden" env:"CULL_BUCKET_STATS_INTERVAL" help:"The duration between each computation of the bucket statistics."`
	ShutdownTimeout     time.Duration `cli:",hidden" env:"CULL_SHUTDOWN_TIMEOUT"      help:"The time given to the admin server to finish its requests on shutdown."`
	Events              eventsConfig  `cli:",hidden" env:"-"                          help:"Event pusher configuration."`
	FeatureFlags        []string      `cli:",hidden" env:"CULL_FEATURE_FLAGS"         help:"Comma separated feature flags"`
	Version             bool          `cli:""        env:"-"                          help:"Show version."`
	Help                bool          `cli:""        env:"-"                          help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"CULL_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"CULL_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"CULL_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"CULL_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		AdminAddr:           ":18190",
		LogLevel:            logs.InfoLevel.String(),
		Strategy:            modules.StrategyHash,
		CellSize:            modules.DefaultConfig().CellSize,
		ProfilePath:         ".",
		FrameDuration:       time.Millisecond * 16,
		LogSummaryInterval:  time.Minute,
		SmokeTestFrames:     30,
		BucketStatsInterval: scene.DefaultBucketStatsInterval,
		ShutdownTimeout:     cullhttp.DefaultShutdownTimeout,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Culls a generated scene through a moving viewport.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "cullbench",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	switch conf.Profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(conf.ProfilePath), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath(conf.ProfilePath), profile.NoShutdownHook).Stop()
	}

	sceneConf := scene.DefaultConfig()
	if conf.SceneFile != "" {
		var err error
		if sceneConf, err = scene.LoadConfig(conf.SceneFile); err != nil {
			logs.Fatal(err)
		}
	}

	flags := featureflag.New(conf.FeatureFlags)
	if unknown := flags.Unknown(); len(unknown) != 0 {
		logs.WithTag("feature_flags", unknown).Warn("ignoring unknown feature flags")
	}
	cullerConf := newCullerConfig(conf, flags)

	culler, err := modules.New(cullerConf)
	if err != nil {
		logs.Fatal(errors.New("creating culler failed").Wrap(err))
	}
	culler = modules.CullerWithLogs(culler, conf.LogSummaryInterval)
	culler = modules.CullerWithMetrics(culler, conf.BucketStatsInterval)

	smokeTestOpts := smoketest.Options{
		Scene:  sceneConf,
		Culler: cullerConf,
		Frames: conf.SmokeTestFrames,
	}
	flags.IfNotSet(featureflag.FlagDisableSmokeTest, func() {
		res, err := smoketest.Run(ctx, smokeTestOpts)
		if err != nil {
			logs.Fatal(errors.New("smoke test failed").Wrap(err))
		}

		logs.WithTag("smoke_test_id", res.ID).
			WithTag("frames", res.Frames).
			WithTag("simple_ms", res.SimpleMs).
			WithTag("hash_ms", res.HashMs).
			Info("smoke test succeeded")
	})

	s := scene.Generate(sceneConf)
	bench := scene.NewBench(s, scene.NewViewport(sceneConf), culler, cullerConf.ManualUpdate)
	bench.SetBucketStatsInterval(conf.BucketStatsInterval)

	var ready atomic.Bool
	stage := scene.NewStage(conf.FrameDuration)
	stage.HandleFrame(bench.HandleFrame)
	stage.HandleFrame(func() {
		ready.Store(true)
	})
	if conf.Frames > 0 {
		frames := 0
		stage.HandleFrame(func() {
			frames++
			if frames == conf.Frames {
				cancel()
			}
		})
	}

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("strategy", conf.Strategy).
		WithTag("cell_size", conf.CellSize).
		WithTag("scene_id", s.ID).
		WithTag("entities", len(s.Entities)).
		WithTag("feature_flags", flags.Strings()).
		Info("starting cullbench")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		stage.Run(ctx)
	}()

	if conf.AdminAddr != "" {
		var admin http.ServeMux
		admin.Handle("/metrics", promhttp.Handler())
		admin.HandleFunc("/health", cullhttp.HandleHealthCheck)
		admin.HandleFunc("/ready", cullhttp.HandleReadyCheck(ready.Load))
		admin.HandleFunc("/version", cullhttp.HandleVersion(version))
		admin.HandleFunc("/stats", cullhttp.HandleStats(func() any {
			return bench.Snapshot()
		}))
		flags.IfNotSet(featureflag.FlagDisableSmokeTest, func() {
			admin.HandleFunc("/smoke-test", smoketest.HandleSmokeTest(ctx, smokeTestOpts))
		})
		admin.HandleFunc("/debug/pprof/", pprof.Index)
		admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
		admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
		admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
		admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
		admin.Handle("/debug/pprof/block", pprof.Handler("block"))

		server := &http.Server{
			Addr:    conf.AdminAddr,
			Handler: metrics.HTTPHandler(&admin, cullhttp.MetricsPathFormatter),
		}
		cullhttp.ListenAndServe(ctx, conf.ShutdownTimeout, cullhttp.Server{Name: "admin", Server: server})
	}

	wg.Wait()
	stage.Close()
	bench.Close()

	snapshot := bench.Snapshot()
	logs.WithTag("scene_id", snapshot.SceneID).
		WithTag("frames", snapshot.Frames).
		WithTag("culls", snapshot.Culls).
		WithTag("visible", snapshot.Stats.Visible).
		WithTag("culled", snapshot.Stats.Culled).
		WithTag("total", snapshot.Stats.Total).
		Info("stopping cullbench")
}

func newCullerConfig(conf config, flags featureflag.FeatureFlag) modules.Config {
	cullerConf := modules.DefaultConfig()
	cullerConf.Strategy = conf.Strategy
	cullerConf.CellSize = conf.CellSize

	flags.IfSet(featureflag.FlagDisableSimpleTest, func() {
		cullerConf.SimpleTest = false
	})
	flags.IfSet(featureflag.FlagDisableDirtyTest, func() {
		cullerConf.DirtyTest = false
	})
	flags.IfSet(featureflag.FlagManualUpdate, func() {
		cullerConf.ManualUpdate = true
	})
	flags.IfSet(featureflag.FlagSkipUnresolved, func() {
		cullerConf.Unresolved = models.SkipUnresolved
	})
	flags.IfSet(featureflag.FlagIncrementalReset, func() {
		cullerConf.IncrementalReset = true
	})
	return cullerConf
}

func validateConfig(conf config) error {
	switch conf.Profile {
	case "", "cpu", "mem":
	default:
		return errors.New("invalid profile mode").
			WithType(models.ErrTypeInvalidConfiguration).
			WithTag("profile", conf.Profile)
	}

	if conf.FrameDuration <= 0 {
		return errors.New("frame duration must be positive").
			WithType(models.ErrTypeInvalidConfiguration).
			WithTag("frame_duration", conf.FrameDuration)
	}

	if conf.Frames < 0 {
		return errors.New("frame count must not be negative").
			WithType(models.ErrTypeInvalidConfiguration).
			WithTag("frames", conf.Frames)
	}

	if conf.LogSummaryInterval <= 0 {
		return errors.New("log summary interval must be positive").
			WithType(models.ErrTypeInvalidConfiguration).
			WithTag("log_summary_interval", conf.LogSummaryInterval)
	}

	if conf.BucketStatsInterval < 0 {
		return errors.New("bucket stats interval must not be negative").
			WithType(models.ErrTypeInvalidConfiguration).
			WithTag("bucket_stats_interval", conf.BucketStatsInterval)
	}
	return nil
}
