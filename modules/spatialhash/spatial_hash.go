package spatialhash

import (
	"fmt"
	"math"
	"sort"

	"github.com/aukilabs/cull/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// Spatial Hash
//
// A uniform grid of square cells where only populated cells are stored.
// The particularities are:
//  - an entity is stored in every cell its box overlaps, and remembers the
//    keys of these cells so that removing or moving it never scans the grid.
//  - boxes are half-open: a box ending exactly on a cell boundary does not
//    occupy the next cell. A box with a zero extent occupies the cell of its
//    position.
//  - a cull only visits the cells overlapped by the query window, or the
//    populated cells when there are fewer of them. Every other tracked entity
//    is then marked not visible, unless IncrementalReset is set.

const (
	DefaultCellSize = 1000

	// Cell coordinates are clamped so that ranges never overflow.
	maxCellCoord = 1 << 52
)

// Options configures a spatial hash.
type Options struct {
	// The width and height of a cell, in world units. It should approximate
	// the average entity size or the query window granularity.
	CellSize float64

	// Tests entity boxes against the query window after selecting buckets.
	// Without it, every entity of an overlapped bucket is visible.
	SimpleTest bool

	// Only re-indexes entities without a valid cached box on each cull.
	DirtyTest bool

	// Never re-indexes entities on cull. Callers use UpdateObject instead,
	// which keeps the cost of a cull independent of the scene size.
	ManualUpdate bool

	// What to do with the visibility of entities without geometry.
	Unresolved models.UnresolvedPolicy

	// Only clears the Visible flags the previous cull set, instead of the flag
	// of every tracked entity. A cull then costs O(overlap) but Visible must
	// not be written by anything else than this hash.
	IncrementalReset bool
}

// DefaultOptions returns the default spatial hash options.
func DefaultOptions() Options {
	return Options{
		CellSize:   DefaultCellSize,
		SimpleTest: true,
		DirtyTest:  true,
	}
}

// CellKey identifies a grid cell.
type CellKey struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (k CellKey) String() string {
	return fmt.Sprintf("%d,%d", k.X, k.Y)
}

// Bucket is a populated cell.
type Bucket struct {
	Key      CellKey          `json:"key"`
	Entities []*models.Entity `json:"-"`
}

type cellRange struct {
	xStart int
	yStart int
	xEnd   int
	yEnd   int
}

func (r cellRange) count() float64 {
	return float64(r.xEnd-r.xStart+1) * float64(r.yEnd-r.yStart+1)
}

func (r cellRange) contains(k CellKey) bool {
	return k.X >= r.xStart && k.X <= r.xEnd && k.Y >= r.yStart && k.Y <= r.yEnd
}

type entry struct {
	entity  *models.Entity
	box     models.Box
	cells   cellRange
	keys    []CellKey
	indexed bool
	visible bool
	marked  bool
	removed bool
	epoch   uint64
}

type bucket map[*models.Entity]*entry

// Hash is a spatial hash culler. It is not safe for concurrent use.
type Hash struct {
	options Options
	buckets map[CellKey]bucket
	entries map[*models.Entity]*entry

	marked       []*entry
	visibleCount int
	lastBuckets  int
	epoch        uint64
}

// New creates a spatial hash. It returns an error of type
// models.ErrTypeInvalidConfiguration when the cell size is not a positive
// finite number.
func New(opts Options) (*Hash, error) {
	if !(opts.CellSize > 0) || math.IsInf(opts.CellSize, 0) {
		return nil, errors.New("cell size must be a positive number").
			WithType(models.ErrTypeInvalidConfiguration).
			WithTag("cell_size", opts.CellSize)
	}

	return &Hash{
		options: opts,
		buckets: make(map[CellKey]bucket),
		entries: make(map[*models.Entity]*entry),
	}, nil
}

func (h *Hash) Name() string {
	return "hash"
}

// CellSize returns the size of a cell.
func (h *Hash) CellSize() float64 {
	return h.options.CellSize
}

func (h *Hash) Add(entities []*models.Entity, static bool) int {
	added := 0
	for _, e := range entities {
		if h.AddOne(e, static) {
			added++
		}
	}
	return added
}

// AddOne starts tracking an entity and inserts it in every cell its box
// overlaps. Entities without geometry are tracked but stored in no cell.
func (h *Hash) AddOne(e *models.Entity, static bool) bool {
	if e == nil {
		return false
	}

	if _, ok := h.entries[e]; ok {
		logs.WithTag("culler", h.Name()).
			WithTag("entity_id", e.ID).
			Debug("entity is already tracked")
		return false
	}

	if static {
		e.Static = true
	}

	en := &entry{entity: e}
	h.entries[e] = en

	if err := h.update(en); err != nil {
		h.skip(en, err)
		return true
	}

	e.Visible = false
	return true
}

// Remove deletes an entity from every cell it occupies and stops tracking
// it. Cells left empty are dropped.
func (h *Hash) Remove(e *models.Entity) bool {
	en, ok := h.entries[e]
	if !ok {
		return false
	}

	h.unindex(en)
	h.unmark(en)
	en.removed = true
	delete(h.entries, e)
	return true
}

// RemoveList stops tracking the given entities and returns how many were
// tracked.
func (h *Hash) RemoveList(entities []*models.Entity) int {
	removed := 0
	for _, e := range entities {
		if h.Remove(e) {
			removed++
		}
	}
	return removed
}

// UpdateObject re-indexes an entity after the host moved or resized it. When
// the entity still covers the same cells, the grid is left untouched.
func (h *Hash) UpdateObject(e *models.Entity) error {
	en, ok := h.entries[e]
	if !ok {
		return errors.New("entity is not tracked").
			WithType(models.ErrTypeUnknownEntity).
			WithTag("culler", h.Name())
	}

	if err := h.update(en); err != nil {
		h.skip(en, err)
		return err
	}
	return nil
}

// UpdateObjects re-indexes every tracked entity that needs it.
func (h *Hash) UpdateObjects() {
	for _, en := range h.entries {
		if en.indexed && !en.entity.NeedsUpdate(h.options.DirtyTest) {
			continue
		}

		if err := h.update(en); err != nil {
			h.skip(en, err)
		}
	}
}

// Cull marks the entities stored in the cells overlapped by the given window
// as visible and every other tracked entity as not visible. It returns the
// number of populated cells overlapped by the window.
func (h *Hash) Cull(rect models.Box) (int, error) {
	if err := models.ValidateQuery(rect); err != nil {
		return 0, err
	}

	if !h.options.ManualUpdate {
		h.UpdateObjects()
	}

	if h.options.IncrementalReset {
		h.resetMarked()
	} else {
		h.resetAll()
	}
	h.visibleCount = 0

	buckets, _ := h.visit(rect, func(en *entry) bool {
		en.visible = true
		en.entity.Visible = true
		if !en.marked {
			en.marked = true
			h.marked = append(h.marked, en)
		}
		h.visibleCount++
		return false
	})

	h.lastBuckets = buckets
	return buckets, nil
}

// LastBuckets returns the number of populated cells overlapped by the last
// cull window.
func (h *Hash) LastBuckets() int {
	return h.lastBuckets
}

// Query returns the entities stored in the cells overlapped by the given
// window. Visible flags are left untouched and boxes are not resolved again.
func (h *Hash) Query(rect models.Box) []*models.Entity {
	var results []*models.Entity
	h.QueryCallback(rect, func(e *models.Entity) bool {
		results = append(results, e)
		return false
	})
	return results
}

// QueryCallback calls fn once for each entity stored in the cells overlapped
// by the given window. Iteration stops when fn returns true, in which case
// QueryCallback returns true.
func (h *Hash) QueryCallback(rect models.Box, fn func(*models.Entity) bool) bool {
	_, stopped := h.visit(rect, func(en *entry) bool {
		return fn(en.entity)
	})
	return stopped
}

// Neighbors returns the entities sharing at least one cell with the given
// entity.
func (h *Hash) Neighbors(e *models.Entity) []*models.Entity {
	en, ok := h.entries[e]
	if !ok {
		return nil
	}

	h.epoch++
	en.epoch = h.epoch

	var neighbors []*models.Entity
	for _, key := range en.keys {
		for other, oen := range h.buckets[key] {
			if oen.epoch == h.epoch {
				continue
			}
			oen.epoch = h.epoch
			neighbors = append(neighbors, other)
		}
	}
	return neighbors
}

// CellKeys returns the keys of the cells occupied by an entity, row by row.
func (h *Hash) CellKeys(e *models.Entity) []CellKey {
	en, ok := h.entries[e]
	if !ok || len(en.keys) == 0 {
		return nil
	}

	keys := make([]CellKey, len(en.keys))
	copy(keys, en.keys)
	return keys
}

// Tracked reports whether the entity is tracked.
func (h *Hash) Tracked(e *models.Entity) bool {
	_, ok := h.entries[e]
	return ok
}

// Buckets returns the populated cells sorted by row then column. Entities
// within a bucket are sorted by id.
func (h *Hash) Buckets() []Bucket {
	buckets := make([]Bucket, 0, len(h.buckets))
	for key, b := range h.buckets {
		entities := make([]*models.Entity, 0, len(b))
		for e := range b {
			entities = append(entities, e)
		}
		sort.Slice(entities, func(i, j int) bool {
			return entities[i].ID < entities[j].ID
		})

		buckets = append(buckets, Bucket{
			Key:      key,
			Entities: entities,
		})
	}

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Key.Y != buckets[j].Key.Y {
			return buckets[i].Key.Y < buckets[j].Key.Y
		}
		return buckets[i].Key.X < buckets[j].Key.X
	})
	return buckets
}

func (h *Hash) Stats() models.Stats {
	return models.NewStats(h.visibleCount, len(h.entries))
}

func (h *Hash) Close() {
	clear(h.buckets)
	clear(h.entries)
	h.marked = nil
	h.visibleCount = 0
	h.lastBuckets = 0
}

func (h *Hash) update(en *entry) error {
	box, err := models.ResolveBox(en.entity)
	if err != nil {
		h.unindex(en)
		return err
	}

	en.box = box
	cells := h.cellRange(box)
	if en.indexed && en.cells == cells {
		return nil
	}

	h.unindex(en)
	h.index(en, cells)
	return nil
}

func (h *Hash) index(en *entry, cells cellRange) {
	for y := cells.yStart; y <= cells.yEnd; y++ {
		for x := cells.xStart; x <= cells.xEnd; x++ {
			key := CellKey{X: x, Y: y}

			b, ok := h.buckets[key]
			if !ok {
				b = make(bucket)
				h.buckets[key] = b
			}
			b[en.entity] = en
			en.keys = append(en.keys, key)
		}
	}

	en.cells = cells
	en.indexed = true
}

func (h *Hash) unindex(en *entry) {
	if !en.indexed {
		return
	}

	for _, key := range en.keys {
		b := h.buckets[key]
		delete(b, en.entity)
		if len(b) == 0 {
			delete(h.buckets, key)
		}
	}

	en.keys = en.keys[:0]
	en.indexed = false
}

func (h *Hash) resetAll() {
	for _, en := range h.entries {
		en.visible = false
		en.marked = false
		if en.indexed {
			en.entity.Visible = false
		} else {
			h.options.Unresolved.Apply(en.entity)
		}
	}
	clear(h.marked)
	h.marked = h.marked[:0]
}

// resetMarked clears the flags set by the previous cull. Unresolved entities
// left alone by SkipUnresolved keep their flag and stay marked until they are
// resolved again.
func (h *Hash) resetMarked() {
	kept := h.marked[:0]
	for _, en := range h.marked {
		if en.removed || !en.marked {
			continue
		}

		en.visible = false
		if !en.indexed && h.options.Unresolved == models.SkipUnresolved {
			kept = append(kept, en)
			continue
		}

		en.marked = false
		en.entity.Visible = false
	}
	clear(h.marked[len(kept):])
	h.marked = kept
}

func (h *Hash) unmark(en *entry) {
	if en.visible {
		en.visible = false
		h.visibleCount--
	}
}

func (h *Hash) skip(en *entry, err error) {
	logs.WithTag("culler", h.Name()).
		WithTag("entity_id", en.entity.ID).
		Debug(err)

	if h.options.Unresolved == models.HideUnresolved {
		h.unmark(en)
	}
	h.options.Unresolved.Apply(en.entity)
}

// visit calls fn once for each entity of the populated cells overlapped by
// rect, and returns the number of such cells.
func (h *Hash) visit(rect models.Box, fn func(*entry) bool) (int, bool) {
	h.epoch++
	epoch := h.epoch
	cells := h.cellRange(rect)

	visitBucket := func(b bucket) bool {
		for _, en := range b {
			if en.epoch == epoch {
				continue
			}
			en.epoch = epoch

			if h.options.SimpleTest && !en.box.Intersects(rect) {
				continue
			}
			if fn(en) {
				return true
			}
		}
		return false
	}

	buckets := 0
	if cells.count() > float64(len(h.buckets)) {
		for key, b := range h.buckets {
			if !cells.contains(key) {
				continue
			}
			buckets++
			if visitBucket(b) {
				return buckets, true
			}
		}
		return buckets, false
	}

	for y := cells.yStart; y <= cells.yEnd; y++ {
		for x := cells.xStart; x <= cells.xEnd; x++ {
			b, ok := h.buckets[CellKey{X: x, Y: y}]
			if !ok {
				continue
			}
			buckets++
			if visitBucket(b) {
				return buckets, true
			}
		}
	}
	return buckets, false
}

func (h *Hash) cellRange(b models.Box) cellRange {
	xStart, xEnd := h.span(b.X, b.Width)
	yStart, yEnd := h.span(b.Y, b.Height)

	return cellRange{
		xStart: xStart,
		yStart: yStart,
		xEnd:   xEnd,
		yEnd:   yEnd,
	}
}

func (h *Hash) span(start, extent float64) (int, int) {
	first := clampCell(math.Floor(start / h.options.CellSize))
	if extent <= 0 {
		return first, first
	}

	last := clampCell(math.Ceil((start+extent)/h.options.CellSize) - 1)
	if last < first {
		last = first
	}
	return first, last
}

func clampCell(v float64) int {
	return int(math.Max(-maxCellCoord, math.Min(maxCellCoord, v)))
}
