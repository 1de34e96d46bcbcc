package scene

import (
	"sync"
	"time"

	"github.com/aukilabs/cull/models"
	"github.com/aukilabs/cull/modules"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// DefaultBucketStatsInterval is how often a bench recomputes the bucket
// statistics of its culler.
const DefaultBucketStatsInterval = time.Second

// Bench culls a scene through a moving viewport, one frame at a time.
type Bench struct {
	scene        *Scene
	viewport     *Viewport
	culler       modules.Culler
	manualUpdate bool

	bucketStatsInterval time.Duration
	lastBucketStats     time.Time

	mutex    sync.RWMutex
	snapshot Snapshot
}

// Snapshot describes the state of a bench after its last frame.
type Snapshot struct {
	SceneID string       `json:"scene_id"`
	Culler  string       `json:"culler"`
	Frames  int          `json:"frames"`
	Culls   int          `json:"culls"`
	Moved   int          `json:"moved"`
	Errors  int          `json:"errors"`
	Window  models.Box   `json:"window"`
	Stats   models.Stats `json:"stats"`

	// The count returned by the last cull.
	LastCull int `json:"last_cull"`

	Buckets *BucketsSnapshot `json:"buckets,omitempty"`
}

// BucketsSnapshot is filled when the culler partitions entities in buckets.
type BucketsSnapshot struct {
	// The frame the statistics were computed at.
	Frame int `json:"frame"`

	Count       int     `json:"count"`
	Largest     int     `json:"largest"`
	AverageSize float64 `json:"average_size"`
	Sparseness  float64 `json:"sparseness"`
}

// NewBench adds the entities of the scene to the culler. Moving entities are
// added as dynamic and the others as static. With manualUpdate, dynamic
// entities are resolved once here and then updated by the bench with
// UpdateObject whenever they move.
func NewBench(s *Scene, v *Viewport, c modules.Culler, manualUpdate bool) *Bench {
	static := make([]*models.Entity, 0, len(s.Entities))
	dynamic := make([]*models.Entity, 0, s.MovingCount())
	for _, e := range s.Entities {
		if s.Moving(e) {
			dynamic = append(dynamic, e)
			continue
		}
		static = append(static, e)
	}

	c.Add(static, true)
	c.Add(dynamic, false)
	if manualUpdate {
		for _, e := range dynamic {
			if err := c.UpdateObject(e); err != nil {
				logs.WithTag("culler", c.Name()).
					WithTag("entity_id", e.ID).
					Debug(err)
			}
		}
	}

	logs.WithTag("scene_id", s.ID).
		WithTag("culler", c.Name()).
		WithTag("static", len(static)).
		WithTag("dynamic", len(dynamic)).
		Info("scene loaded")

	return &Bench{
		scene:        s,
		viewport:     v,
		culler:       c,
		manualUpdate: manualUpdate,

		bucketStatsInterval: DefaultBucketStatsInterval,
		snapshot: Snapshot{
			SceneID: s.ID,
			Culler:  c.Name(),
			Window:  v.Bounds(),
			Stats:   c.Stats(),
		},
	}
}

// HandleFrame moves the scene and the viewport by one frame. The scene is
// culled only when the viewport or an entity moved.
func (b *Bench) HandleFrame() {
	start := time.Now()

	moved := b.scene.Step()
	if b.manualUpdate {
		for _, e := range moved {
			if err := b.culler.UpdateObject(e); err != nil {
				logs.WithTag("culler", b.culler.Name()).
					WithTag("entity_id", e.ID).
					Debug(err)
			}
		}
	}

	b.viewport.Pan()

	culled := false
	var n int
	var err error
	if b.viewport.Dirty() || len(moved) != 0 {
		n, err = b.culler.Cull(b.viewport.Bounds())
		if err != nil {
			logs.WithTag("culler", b.culler.Name()).
				WithTag("window", b.viewport.Bounds()).
				Warn(errors.New("culling frame failed").Wrap(err))
		} else {
			culled = true
			b.viewport.Clean()
		}
	}

	b.record(culled, n, err, len(moved))
	instrumentFrame(b.culler.Name(), culled, len(moved), time.Since(start).Seconds())
}

// SetBucketStatsInterval sets how often the bucket statistics of the snapshot
// are recomputed. They walk every populated bucket, so a zero interval, which
// recomputes them on each cull, is meant for small scenes.
func (b *Bench) SetBucketStatsInterval(d time.Duration) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.bucketStatsInterval = d
}

// Snapshot returns the state of the bench after the last frame. It is safe to
// call while frames are handled.
func (b *Bench) Snapshot() Snapshot {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	s := b.snapshot
	if s.Buckets != nil {
		buckets := *s.Buckets
		s.Buckets = &buckets
	}
	return s
}

// Close stops tracking the scene entities.
func (b *Bench) Close() {
	b.culler.Close()
}

func (b *Bench) record(culled bool, n int, err error, moved int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.snapshot.Frames++
	b.snapshot.Moved += moved
	if err != nil {
		b.snapshot.Errors++
	}
	if !culled {
		return
	}

	b.snapshot.Culls++
	b.snapshot.LastCull = n
	b.snapshot.Window = b.viewport.Bounds()
	b.snapshot.Stats = b.culler.Stats()

	s, ok := modules.BucketStatsOf(b.culler)
	if !ok {
		return
	}

	now := time.Now()
	if b.snapshot.Buckets != nil && now.Sub(b.lastBucketStats) < b.bucketStatsInterval {
		return
	}
	b.lastBucketStats = now

	b.snapshot.Buckets = &BucketsSnapshot{
		Frame:       b.snapshot.Frames,
		Count:       s.NumberOfBuckets(),
		Largest:     s.Largest(),
		AverageSize: s.AverageSize(),
		Sparseness:  s.Sparseness(),
	}
}
