package models

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Geometry is implemented by host objects that can report their world-space
// bounds.
type Geometry interface {
	Bounds() (Box, error)
}

// Sprite is a simple host object: a rectangle positioned by its pivot and
// scaled around it.
type Sprite struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`

	// Pivot is the local point, in unscaled units, placed at X, Y.
	PivotX float64 `yaml:"pivot_x"`
	PivotY float64 `yaml:"pivot_y"`

	// Scale multiplies the size around the pivot. A zero scale is treated as
	// 1.
	ScaleX float64 `yaml:"scale_x"`
	ScaleY float64 `yaml:"scale_y"`
}

// Move sets the sprite position.
func (s *Sprite) Move(x, y float64) {
	s.X = x
	s.Y = y
}

// Bounds returns the world-space box of the sprite. Negative scales mirror
// the sprite and still produce a box with positive dimensions.
func (s *Sprite) Bounds() (Box, error) {
	if s == nil {
		return Box{}, errors.New("sprite is nil").
			WithType(ErrTypeGeometryUnavailable)
	}

	scaleX := s.ScaleX
	if scaleX == 0 {
		scaleX = 1
	}
	scaleY := s.ScaleY
	if scaleY == 0 {
		scaleY = 1
	}

	b := Box{
		X:      s.X - s.PivotX*scaleX,
		Y:      s.Y - s.PivotY*scaleY,
		Width:  s.Width * scaleX,
		Height: s.Height * scaleY,
	}
	if b.Width < 0 {
		b.X += b.Width
		b.Width = -b.Width
	}
	if b.Height < 0 {
		b.Y += b.Height
		b.Height = -b.Height
	}

	if s.Width < 0 || s.Height < 0 || !b.Valid() {
		return Box{}, errors.New("sprite has no usable geometry").
			WithType(ErrTypeGeometryUnavailable).
			WithTag("x", s.X).
			WithTag("y", s.Y).
			WithTag("width", s.Width).
			WithTag("height", s.Height)
	}
	return b, nil
}

// BoxGeometry is a fixed box used as geometry.
type BoxGeometry Box

// Bounds returns the box itself.
func (g BoxGeometry) Bounds() (Box, error) {
	b := Box(g)
	if !b.Valid() {
		return Box{}, errors.New("box has no usable geometry").
			WithType(ErrTypeGeometryUnavailable)
	}
	return b, nil
}
