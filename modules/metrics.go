package modules

import (
	"time"

	"github.com/aukilabs/cull/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	cullerLabel  = "culler"
	opLabel      = "operation"
	errTypeLabel = "error_type"
)

var (
	cullLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cull_latency",
		Help:    "The time to cull a window.",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
	}, []string{
		cullerLabel,
	})

	cullEntities = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cull_entities",
		Help: "The number of visible, culled and tracked entities after the last cull.",
	}, []string{
		cullerLabel,
		"state",
	})

	cullBuckets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cull_buckets",
		Help: "The count returned by the last cull.",
	}, []string{
		cullerLabel,
	})

	cullOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cull_ops",
		Help: "The number of operations performed on a culler.",
	}, []string{
		cullerLabel,
		opLabel,
	})

	cullErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cull_errors",
		Help: "The errors that occurred while culling or updating entities.",
	}, []string{
		cullerLabel,
		opLabel,
		errTypeLabel,
	})

	cullPopulatedBuckets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cull_populated_buckets",
		Help: "The number of populated buckets.",
	}, []string{
		cullerLabel,
	})

	cullLargestBucket = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cull_largest_bucket",
		Help: "The number of entities in the most populated bucket.",
	}, []string{
		cullerLabel,
	})

	cullAverageBucketSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cull_average_bucket_size",
		Help: "The average number of entities per populated bucket.",
	}, []string{
		cullerLabel,
	})

	cullSparseness = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cull_sparseness",
		Help: "The fraction of empty buckets within the occupied extent.",
	}, []string{
		cullerLabel,
	})
)

// CullerWithMetrics returns a culler that reports the operations performed on
// c as prometheus metrics. When c provides bucket statistics, they are
// reported after a cull at most once per bucketStatsInterval, since computing
// them walks every populated bucket. A zero interval reports them after each
// cull.
func CullerWithMetrics(c Culler, bucketStatsInterval time.Duration) Culler {
	bucketStats, _ := BucketStatsOf(c)

	return &cullerWithMetrics{
		Culler:              c,
		bucketStats:         bucketStats,
		bucketStatsInterval: bucketStatsInterval,
	}
}

type cullerWithMetrics struct {
	Culler

	bucketStats         BucketStats
	bucketStatsInterval time.Duration
	lastBucketStats     time.Time
}

func (c *cullerWithMetrics) Add(entities []*models.Entity, static bool) int {
	added := c.Culler.Add(entities, static)
	c.incOps(opAdd, added)
	return added
}

func (c *cullerWithMetrics) AddOne(e *models.Entity, static bool) bool {
	added := c.Culler.AddOne(e, static)
	if added {
		c.incOps(opAdd, 1)
	}
	return added
}

func (c *cullerWithMetrics) Remove(e *models.Entity) bool {
	removed := c.Culler.Remove(e)
	if removed {
		c.incOps(opRemove, 1)
	}
	return removed
}

func (c *cullerWithMetrics) UpdateObject(e *models.Entity) error {
	err := c.Culler.UpdateObject(e)
	c.incOps(opUpdate, 1)
	if err != nil {
		c.incErrors(opUpdate, err)
	}
	return err
}

func (c *cullerWithMetrics) Cull(rect models.Box) (int, error) {
	var n int
	err := c.measureLatency(func() error {
		var err error
		n, err = c.Culler.Cull(rect)
		return err
	})
	if err != nil {
		c.incErrors(opCull, err)
		return n, err
	}

	c.incOps(opCull, 1)
	c.report(n)
	return n, nil
}

func (c *cullerWithMetrics) Unwrap() Culler {
	return c.Culler
}

func (c *cullerWithMetrics) report(n int) {
	name := c.Name()
	stats := c.Stats()

	cullEntities.WithLabelValues(name, "visible").Set(float64(stats.Visible))
	cullEntities.WithLabelValues(name, "culled").Set(float64(stats.Culled))
	cullEntities.WithLabelValues(name, "total").Set(float64(stats.Total))
	cullBuckets.WithLabelValues(name).Set(float64(n))

	if c.bucketStats == nil {
		return
	}

	now := time.Now()
	if !c.lastBucketStats.IsZero() && now.Sub(c.lastBucketStats) < c.bucketStatsInterval {
		return
	}
	c.lastBucketStats = now

	cullPopulatedBuckets.WithLabelValues(name).Set(float64(c.bucketStats.NumberOfBuckets()))
	cullLargestBucket.WithLabelValues(name).Set(float64(c.bucketStats.Largest()))
	cullAverageBucketSize.WithLabelValues(name).Set(c.bucketStats.AverageSize())
	cullSparseness.WithLabelValues(name).Set(c.bucketStats.Sparseness())
}

func (c *cullerWithMetrics) incOps(op string, n int) {
	if n == 0 {
		return
	}

	cullOps.With(prometheus.Labels{
		cullerLabel: c.Name(),
		opLabel:     op,
	}).Add(float64(n))
}

func (c *cullerWithMetrics) incErrors(op string, err error) {
	cullErrors.With(prometheus.Labels{
		cullerLabel:  c.Name(),
		opLabel:      op,
		errTypeLabel: errors.Type(err),
	}).Inc()
}

func (c *cullerWithMetrics) measureLatency(f func() error) error {
	start := time.Now()

	err := f()
	if err != nil {
		return err
	}

	cullLatency.With(prometheus.Labels{
		cullerLabel: c.Name(),
	}).Observe(time.Since(start).Seconds())
	return nil
}
