package simple

import (
	"github.com/aukilabs/cull/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// Options configures a linear culler.
type Options struct {
	// Only resolves entities without a valid cached box on each cull.
	DirtyTest bool

	// Never resolves boxes on cull. Callers use UpdateObject instead.
	ManualUpdate bool

	// What to do with the visibility of entities without geometry.
	Unresolved models.UnresolvedPolicy
}

// DefaultOptions returns the options used by New when none are customized.
func DefaultOptions() Options {
	return Options{
		DirtyTest: true,
	}
}

// Culler tests every tracked entity against the query window. It is the
// reference for the other strategies and the better choice for small scenes.
type Culler struct {
	options  Options
	entities []*models.Entity
	tracked  map[*models.Entity]struct{}
	visible  map[*models.Entity]struct{}
}

func New(opts Options) *Culler {
	return &Culler{
		options: opts,
		tracked: make(map[*models.Entity]struct{}),
		visible: make(map[*models.Entity]struct{}),
	}
}

func (c *Culler) Name() string {
	return "simple"
}

func (c *Culler) Add(entities []*models.Entity, static bool) int {
	added := 0
	for _, e := range entities {
		if c.AddOne(e, static) {
			added++
		}
	}
	return added
}

func (c *Culler) AddOne(e *models.Entity, static bool) bool {
	if e == nil {
		return false
	}

	if _, ok := c.tracked[e]; ok {
		logs.WithTag("culler", c.Name()).
			WithTag("entity_id", e.ID).
			Debug("entity is already tracked")
		return false
	}

	c.tracked[e] = struct{}{}
	c.entities = append(c.entities, e)

	if !static {
		e.MarkDirty()
		return true
	}

	e.Static = true
	if _, err := models.ResolveBox(e); err != nil {
		c.skip(e, err)
	}
	return true
}

func (c *Culler) Remove(e *models.Entity) bool {
	if _, ok := c.tracked[e]; !ok {
		return false
	}

	delete(c.tracked, e)
	delete(c.visible, e)

	for i, tracked := range c.entities {
		if tracked == e {
			copy(c.entities[i:], c.entities[i+1:])
			c.entities[len(c.entities)-1] = nil
			c.entities = c.entities[:len(c.entities)-1]
			break
		}
	}
	return true
}

// RemoveList stops tracking the given entities and returns how many were
// tracked.
func (c *Culler) RemoveList(entities []*models.Entity) int {
	removed := 0
	for _, e := range entities {
		if c.Remove(e) {
			removed++
		}
	}
	return removed
}

func (c *Culler) UpdateObject(e *models.Entity) error {
	if _, ok := c.tracked[e]; !ok {
		return errors.New("entity is not tracked").
			WithType(models.ErrTypeUnknownEntity).
			WithTag("culler", c.Name())
	}

	_, err := models.ResolveBox(e)
	return err
}

// UpdateObjects resolves the box of every tracked entity that needs it.
func (c *Culler) UpdateObjects() {
	for _, e := range c.entities {
		if !e.NeedsUpdate(c.options.DirtyTest) {
			continue
		}
		if _, err := models.ResolveBox(e); err != nil {
			c.skip(e, err)
		}
	}
}

// Cull sets the Visible flag of every tracked entity and returns the number
// of visible entities.
func (c *Culler) Cull(rect models.Box) (int, error) {
	if err := models.ValidateQuery(rect); err != nil {
		return 0, err
	}

	if !c.options.ManualUpdate {
		c.UpdateObjects()
	}

	clear(c.visible)
	for _, e := range c.entities {
		box, ok := e.Box()
		if !ok {
			c.options.Unresolved.Apply(e)
			continue
		}

		e.Visible = box.Intersects(rect)
		if e.Visible {
			c.visible[e] = struct{}{}
		}
	}

	return len(c.visible), nil
}

// Query returns the tracked entities whose cached box intersects the given
// window. Visible flags are left untouched.
func (c *Culler) Query(rect models.Box) []*models.Entity {
	var results []*models.Entity
	c.QueryCallback(rect, func(e *models.Entity) bool {
		results = append(results, e)
		return false
	})
	return results
}

// QueryCallback calls fn for each tracked entity whose cached box intersects
// the given window. Iteration stops when fn returns true, in which case
// QueryCallback returns true.
func (c *Culler) QueryCallback(rect models.Box, fn func(*models.Entity) bool) bool {
	for _, e := range c.entities {
		box, ok := e.Box()
		if !ok || !box.Intersects(rect) {
			continue
		}
		if fn(e) {
			return true
		}
	}
	return false
}

// Entities returns the tracked entities in insertion order.
func (c *Culler) Entities() []*models.Entity {
	entities := make([]*models.Entity, len(c.entities))
	copy(entities, c.entities)
	return entities
}

func (c *Culler) Stats() models.Stats {
	return models.NewStats(len(c.visible), len(c.entities))
}

func (c *Culler) Close() {
	c.entities = nil
	clear(c.tracked)
	clear(c.visible)
}

func (c *Culler) skip(e *models.Entity, err error) {
	logs.WithTag("culler", c.Name()).
		WithTag("entity_id", e.ID).
		Debug(err)
	c.options.Unresolved.Apply(e)
}
