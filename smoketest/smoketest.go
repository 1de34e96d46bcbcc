package smoketest

import (
	"context"
	"io"
	"net/http"
	"slices"
	"time"

	httpcmn "github.com/aukilabs/cull/http"
	"github.com/aukilabs/cull/models"
	"github.com/aukilabs/cull/modules"
	"github.com/aukilabs/cull/modules/simple"
	"github.com/aukilabs/cull/modules/spatialhash"
	"github.com/aukilabs/cull/scene"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	DefaultFrames = 60

	// Upper bounds of the scenes and runs requested through HandleSmokeTest.
	MaxRequestCount  = 100000
	MaxRequestFrames = 10000

	ErrTypeMismatch = "smoke-test-mismatch"
)

// Options configures a smoke test.
type Options struct {
	// The scene culled by both strategies. Its seed makes runs reproducible.
	Scene scene.Config

	// The culler options under test. The spatial hash is built with all of
	// them and the linear culler with those it supports. The strategy is
	// ignored.
	Culler modules.Config

	// The number of frames to compare.
	Frames int
}

// Results describes a smoke test run.
type Results struct {
	ID         string  `json:"id"`
	SceneID    string  `json:"scene_id"`
	Status     string  `json:"status"`
	Frames     int     `json:"frames"`
	Mismatches int     `json:"mismatches"`
	SimpleMs   float64 `json:"simple_ms"`
	HashMs     float64 `json:"hash_ms"`
	Error      string  `json:"error,omitempty"`
}

// Request is the body accepted by HandleSmokeTest. Zero fields keep the
// handler defaults.
type Request struct {
	Count    int     `json:"count"`
	Moving   int     `json:"moving"`
	CellSize float64 `json:"cell_size"`
	Frames   int     `json:"frames"`
	Seed     int64   `json:"seed"`
}

// Run culls the same scene with the linear culler and the spatial hash, and
// compares the visible entities and stats on every frame. Without the simple
// test, the hash reports whole buckets, so it is only checked that every
// entity visible to the linear culler is visible to the hash. A mismatch
// returns an error of type ErrTypeMismatch.
func Run(ctx context.Context, opts Options) (Results, error) {
	res := Results{
		ID:     uuid.NewString(),
		Status: StatusFailed,
		Frames: opts.Frames,
	}
	if res.Frames <= 0 {
		res.Frames = DefaultFrames
	}

	if err := opts.Scene.Validate(); err != nil {
		return res.failed(err)
	}

	hash, err := spatialhash.New(spatialhash.Options{
		CellSize:         opts.Culler.CellSize,
		SimpleTest:       opts.Culler.SimpleTest,
		DirtyTest:        opts.Culler.DirtyTest,
		ManualUpdate:     opts.Culler.ManualUpdate,
		Unresolved:       opts.Culler.Unresolved,
		IncrementalReset: opts.Culler.IncrementalReset,
	})
	if err != nil {
		return res.failed(err)
	}

	linear := simple.New(simple.Options{
		DirtyTest:    opts.Culler.DirtyTest,
		ManualUpdate: opts.Culler.ManualUpdate,
		Unresolved:   opts.Culler.Unresolved,
	})

	hashScene := scene.Generate(opts.Scene)
	simpleScene := hashScene.Clone()
	res.SceneID = hashScene.ID

	hashBench := scene.NewBench(hashScene, scene.NewViewport(opts.Scene), hash, opts.Culler.ManualUpdate)
	defer hashBench.Close()

	simpleBench := scene.NewBench(simpleScene, scene.NewViewport(opts.Scene), linear, opts.Culler.ManualUpdate)
	defer simpleBench.Close()

	exact := opts.Culler.SimpleTest

	var simpleDuration, hashDuration time.Duration
	for i := 0; i < res.Frames; i++ {
		if err := ctx.Err(); err != nil {
			return res.failed(errors.New("smoke test canceled").Wrap(err))
		}

		start := time.Now()
		simpleBench.HandleFrame()
		simpleDuration += time.Since(start)

		start = time.Now()
		hashBench.HandleFrame()
		hashDuration += time.Since(start)

		if !agree(simpleScene.Entities, hashScene.Entities, simpleBench.Snapshot().Stats, hashBench.Snapshot().Stats, exact) {
			res.Mismatches++
			logs.WithTag("smoke_test_id", res.ID).
				WithTag("frame", i).
				WithTag("simple", simpleBench.Snapshot().Stats).
				WithTag("hash", hashBench.Snapshot().Stats).
				Warn("culling results differ")
		}
	}

	res.SimpleMs = float64(simpleDuration.Microseconds()) / 1000
	res.HashMs = float64(hashDuration.Microseconds()) / 1000

	if res.Mismatches != 0 {
		return res.failed(errors.Newf("%d frames differ", res.Mismatches).
			WithType(ErrTypeMismatch).
			WithTag("scene_id", res.SceneID))
	}

	res.Status = StatusSuccess
	return res, nil
}

func (r Results) failed(err error) (Results, error) {
	r.Status = StatusFailed
	r.Error = err.Error()
	return r, err
}

// agree compares the linear results with the hash results. When exact is
// false, the hash may report more visible entities than the linear culler.
func agree(linear, hash []*models.Entity, linearStats, hashStats models.Stats, exact bool) bool {
	if exact {
		return linearStats == hashStats && slices.EqualFunc(linear, hash, func(x, y *models.Entity) bool {
			return x.ID == y.ID && x.Visible == y.Visible
		})
	}

	return linearStats.Total == hashStats.Total && slices.EqualFunc(linear, hash, func(x, y *models.Entity) bool {
		return x.ID == y.ID && (!x.Visible || y.Visible)
	})
}

// HandleSmokeTest runs a smoke test on the scene described by the request
// body, falling back to opts, and responds with its results.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		b, err := io.ReadAll(r.Body)
		if err != nil {
			logs.Error(errors.New("reading body failed").Wrap(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var req Request
		if len(b) != 0 {
			if err := json.Unmarshal(b, &req); err != nil {
				logs.WithTag("body", string(b)).Debug(err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}

		if err := req.validate(); err != nil {
			httpcmn.WriteJSON(w, http.StatusBadRequest, Results{
				Status: StatusFailed,
				Error:  err.Error(),
			})
			return
		}

		runOpts := opts.with(req)
		if err := runOpts.Scene.Validate(); err != nil {
			httpcmn.WriteJSON(w, http.StatusBadRequest, Results{
				Status: StatusFailed,
				Error:  err.Error(),
			})
			return
		}

		res, err := Run(ctx, runOpts)
		if err != nil {
			logs.WithTag("smoke_test_id", res.ID).Warn(err)
		} else {
			logs.WithTag("smoke_test_id", res.ID).
				WithTag("frames", res.Frames).
				WithTag("simple_ms", res.SimpleMs).
				WithTag("hash_ms", res.HashMs).
				Info("smoke test succeeded")
		}

		httpcmn.WriteJSON(w, http.StatusOK, res)
	}
}

func (o Options) with(req Request) Options {
	if req.Count != 0 {
		o.Scene.Count = req.Count
	}
	if req.Moving != 0 {
		o.Scene.Moving = req.Moving
		if o.Scene.Speed == 0 {
			o.Scene.Speed = o.Scene.Size
		}
	}
	if req.CellSize != 0 {
		o.Culler.CellSize = req.CellSize
	}
	if req.Frames != 0 {
		o.Frames = req.Frames
	}
	if req.Seed != 0 {
		o.Scene.Seed = req.Seed
	}
	return o
}

func (r Request) validate() error {
	if r.Count > MaxRequestCount || r.Moving > MaxRequestCount {
		return errors.New("requested scene is too large").
			WithType(models.ErrTypeInvalidConfiguration).
			WithTag("count", r.Count).
			WithTag("moving", r.Moving).
			WithTag("max", MaxRequestCount)
	}

	if r.Frames > MaxRequestFrames {
		return errors.New("requested frame count is too large").
			WithType(models.ErrTypeInvalidConfiguration).
			WithTag("frames", r.Frames).
			WithTag("max", MaxRequestFrames)
	}
	return nil
}
