package models

// CacheState describes whether the bounding box cached on an entity can be
// used without asking the host geometry again.
type CacheState uint8

const (
	// CacheEmpty means no box has been resolved yet.
	CacheEmpty CacheState = iota

	// CacheValid means the cached box reflects the host geometry.
	CacheValid

	// CacheDirty means the host changed the geometry since the last
	// resolution.
	CacheDirty
)

func (s CacheState) String() string {
	switch s {
	case CacheValid:
		return "valid"
	case CacheDirty:
		return "dirty"
	default:
		return "empty"
	}
}

// UnresolvedPolicy decides what a culler does with the visibility of an
// entity whose box cannot be resolved.
type UnresolvedPolicy uint8

const (
	// HideUnresolved marks unresolvable entities as not visible.
	HideUnresolved UnresolvedPolicy = iota

	// SkipUnresolved leaves the visibility of unresolvable entities
	// untouched.
	SkipUnresolved
)

// Apply sets the visibility of an unresolvable entity according to the
// policy.
func (p UnresolvedPolicy) Apply(e *Entity) {
	if p == HideUnresolved {
		e.Visible = false
	}
}

// Entity is a host-owned object that can be culled. Cullers keep references to
// entities and never copy them. The host owns Geometry and Static and reads
// Visible; the cached box is maintained by ResolveBox.
type Entity struct {
	ID       uint32
	Geometry Geometry

	// Static hints that the geometry never changes once resolved.
	Static bool

	// Visible is the result of the last cull.
	Visible bool

	cache CacheState
	box   Box
}

// NewEntity returns an entity backed by the given geometry.
func NewEntity(id uint32, g Geometry) *Entity {
	return &Entity{
		ID:       id,
		Geometry: g,
	}
}

// MarkDirty invalidates the cached box. The next resolution asks the
// geometry again, even for static entities. Entities that were never resolved
// stay empty.
func (e *Entity) MarkDirty() {
	if e.cache == CacheValid {
		e.cache = CacheDirty
	}
}

// Dirty reports whether the host invalidated the cached box.
func (e *Entity) Dirty() bool {
	return e.cache == CacheDirty
}

// CacheState returns the validity of the cached box.
func (e *Entity) CacheState() CacheState {
	return e.cache
}

// Box returns the last resolved box. The boolean is false when no box has
// ever been resolved.
func (e *Entity) Box() (Box, bool) {
	return e.box, e.cache != CacheEmpty
}

// NeedsUpdate reports whether a cull has to resolve the entity box again.
// Without dirty testing every entity is resolved on each cull; with it only
// entities without a valid cached box are.
func (e *Entity) NeedsUpdate(dirtyTest bool) bool {
	if !dirtyTest {
		return true
	}
	return e.cache != CacheValid
}
