package models

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// ResolveBox returns the world-space bounding box of an entity.
//
// Static entities with a valid cached box return it without asking the
// geometry. Every other call reads the geometry, caches the result and clears
// the dirty state. An entity without usable geometry returns an error of type
// ErrTypeGeometryUnavailable and loses its cached box.
func ResolveBox(e *Entity) (Box, error) {
	if e.Static && e.cache == CacheValid {
		return e.box, nil
	}

	if e.Geometry == nil {
		e.cache = CacheEmpty
		return Box{}, errors.New("entity has no geometry").
			WithType(ErrTypeGeometryUnavailable).
			WithTag("entity_id", e.ID)
	}

	b, err := e.Geometry.Bounds()
	if err == nil && !b.Valid() {
		err = errors.New("geometry returned an invalid box").
			WithType(ErrTypeGeometryUnavailable)
	}
	if err != nil {
		e.cache = CacheEmpty
		return Box{}, errors.New("resolving entity box failed").
			WithType(ErrTypeGeometryUnavailable).
			WithTag("entity_id", e.ID).
			Wrap(err)
	}

	e.box = b
	e.cache = CacheValid
	return b, nil
}
