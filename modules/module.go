package modules

import (
	"github.com/aukilabs/cull/models"
)

// Culler is the interface that describes a visibility culling strategy.
type Culler interface {
	// Returns the strategy name.
	Name() string

	// Starts tracking the given entities. Entities already tracked are
	// skipped. Returns the number of entities that were added.
	Add(entities []*models.Entity, static bool) int

	// Starts tracking a single entity. Returns false when the entity is
	// already tracked.
	AddOne(e *models.Entity, static bool) bool

	// Stops tracking an entity. Returns false when the entity is not tracked.
	Remove(e *models.Entity) bool

	// Resolves the entity box again after the host moved or resized it.
	//
	// Returns an error of type models.ErrTypeUnknownEntity when the entity is
	// not tracked and models.ErrTypeGeometryUnavailable when its box cannot
	// be resolved.
	UpdateObject(e *models.Entity) error

	// Sets the Visible flag of every tracked entity according to the given
	// window. The returned count depends on the strategy.
	Cull(rect models.Box) (int, error)

	// Returns the stats of the last cull.
	Stats() models.Stats

	// Stops tracking every entity.
	Close()
}

// BucketStats is implemented by cullers that partition entities into buckets.
type BucketStats interface {
	NumberOfBuckets() int
	Sparseness() float64
	Largest() int
	AverageSize() float64
}

// Unwrap returns the culler wrapped by a decorator such as CullerWithLogs, or
// nil when c does not wrap another culler.
func Unwrap(c Culler) Culler {
	u, ok := c.(interface{ Unwrap() Culler })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

// BucketStatsOf returns the bucket statistics of c or of the first culler it
// wraps that provides them.
func BucketStatsOf(c Culler) (BucketStats, bool) {
	for c != nil {
		if s, ok := c.(BucketStats); ok {
			return s, true
		}
		c = Unwrap(c)
	}
	return nil, false
}
