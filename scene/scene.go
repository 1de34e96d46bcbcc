package scene

import (
	"math"
	"math/rand"

	"github.com/aukilabs/cull/models"
	"github.com/google/uuid"
)

// Scene is a set of generated entities. A scene is not safe for concurrent
// use.
type Scene struct {
	ID       string
	Config   Config
	Entities []*models.Entity

	entityIDs models.SequentialIDGenerator
	sprites   map[*models.Entity]*models.Sprite
	movers    map[*models.Entity]*mover
	order     []*mover
}

type mover struct {
	entity *models.Entity
	sprite *models.Sprite
	vx     float64
	vy     float64
}

// Generate creates a scene from the given config. The same config always
// produces the same sprites.
func Generate(conf Config) *Scene {
	rnd := rand.New(rand.NewSource(conf.Seed))

	s := &Scene{
		ID:      uuid.NewString(),
		Config:  conf,
		sprites: make(map[*models.Entity]*models.Sprite, conf.Count+len(conf.Sprites)),
		movers:  make(map[*models.Entity]*mover, conf.Moving),
	}

	for i := 0; i < conf.Count; i++ {
		sprite := &models.Sprite{
			X:      conf.StartX + rnd.Float64()*conf.Width,
			Y:      conf.StartY + rnd.Float64()*conf.Height,
			Width:  conf.Size,
			Height: conf.Size,
		}
		e := s.add(sprite)

		if i < conf.Moving {
			angle := rnd.Float64() * 2 * math.Pi
			m := &mover{
				entity: e,
				sprite: sprite,
				vx:     math.Cos(angle) * conf.Speed,
				vy:     math.Sin(angle) * conf.Speed,
			}
			s.movers[e] = m
			s.order = append(s.order, m)
		}
	}

	for i := range conf.Sprites {
		sprite := conf.Sprites[i]
		s.add(&sprite)
	}

	for i := 0; i < conf.Unresolved; i++ {
		s.Entities = append(s.Entities, models.NewEntity(s.entityIDs.New(), nil))
	}
	return s
}

// Clone returns a copy of the scene with its own entities and sprites, so
// that two cullers can track the same scene independently.
func (s *Scene) Clone() *Scene {
	c := &Scene{
		ID:       s.ID,
		Config:   s.Config,
		Entities: make([]*models.Entity, 0, len(s.Entities)),
		sprites:  make(map[*models.Entity]*models.Sprite, len(s.sprites)),
		movers:   make(map[*models.Entity]*mover, len(s.movers)),
	}

	clones := make(map[*models.Entity]*models.Entity, len(s.Entities))
	for _, e := range s.Entities {
		clone := models.NewEntity(e.ID, nil)
		clone.Visible = e.Visible

		if sprite, ok := s.sprites[e]; ok {
			spriteCopy := *sprite
			clone.Geometry = &spriteCopy
			c.sprites[clone] = &spriteCopy
		}

		clones[e] = clone
		c.Entities = append(c.Entities, clone)
	}

	for _, m := range s.order {
		clone := clones[m.entity]
		cm := &mover{
			entity: clone,
			sprite: c.sprites[clone],
			vx:     m.vx,
			vy:     m.vy,
		}
		c.movers[clone] = cm
		c.order = append(c.order, cm)
	}
	return c
}

// Moving reports whether the entity moves on each step.
func (s *Scene) Moving(e *models.Entity) bool {
	_, ok := s.movers[e]
	return ok
}

// MovingCount returns the number of entities moving on each step.
func (s *Scene) MovingCount() int {
	return len(s.movers)
}

// Sprite returns the sprite backing an entity.
func (s *Scene) Sprite(e *models.Entity) (*models.Sprite, bool) {
	sprite, ok := s.sprites[e]
	return sprite, ok
}

// Step moves the moving sprites by one frame and marks their entities as
// dirty. Sprites bounce on the world edges. It returns the moved entities.
func (s *Scene) Step() []*models.Entity {
	if len(s.order) == 0 {
		return nil
	}

	world := s.Config.World()
	moved := make([]*models.Entity, 0, len(s.order))

	for _, m := range s.order {
		if m.vx == 0 && m.vy == 0 {
			continue
		}

		var x, y float64
		x, m.vx = bounce(m.sprite.X, m.vx, world.X, world.MaxX())
		y, m.vy = bounce(m.sprite.Y, m.vy, world.Y, world.MaxY())
		m.sprite.Move(x, y)

		m.entity.MarkDirty()
		moved = append(moved, m.entity)
	}
	return moved
}

func (s *Scene) add(sprite *models.Sprite) *models.Entity {
	e := models.NewEntity(s.entityIDs.New(), sprite)
	s.sprites[e] = sprite
	s.Entities = append(s.Entities, e)
	return e
}

func bounce(pos, velocity, lo, hi float64) (float64, float64) {
	pos += velocity
	switch {
	case pos < lo:
		return lo + (lo - pos), -velocity
	case pos > hi:
		return hi - (pos - hi), -velocity
	default:
		return pos, velocity
	}
}
