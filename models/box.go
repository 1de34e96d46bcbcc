package models

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Box is an axis-aligned rectangle in world coordinates.
type Box struct {
	X      float64 `json:"x"      yaml:"x"`
	Y      float64 `json:"y"      yaml:"y"`
	Width  float64 `json:"width"  yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// MaxX returns the right edge of the box.
func (b Box) MaxX() float64 {
	return b.X + b.Width
}

// MaxY returns the bottom edge of the box.
func (b Box) MaxY() float64 {
	return b.Y + b.Height
}

// Intersects reports whether two boxes overlap. Boxes that only share an edge
// do not intersect.
func (b Box) Intersects(o Box) bool {
	return b.X < o.X+o.Width &&
		b.X+b.Width > o.X &&
		b.Y < o.Y+o.Height &&
		b.Y+b.Height > o.Y
}

// Contains reports whether o lies entirely within b.
func (b Box) Contains(o Box) bool {
	return o.X >= b.X && o.Y >= b.Y &&
		o.MaxX() <= b.MaxX() && o.MaxY() <= b.MaxY()
}

// Union returns the smallest box containing both b and o.
func (b Box) Union(o Box) Box {
	minX := math.Min(b.X, o.X)
	minY := math.Min(b.Y, o.Y)
	return Box{
		X:      minX,
		Y:      minY,
		Width:  math.Max(b.MaxX(), o.MaxX()) - minX,
		Height: math.Max(b.MaxY(), o.MaxY()) - minY,
	}
}

// Valid reports whether the box has finite coordinates and non-negative
// dimensions.
func (b Box) Valid() bool {
	return isFinite(b.X) && isFinite(b.Y) &&
		isFinite(b.Width) && isFinite(b.Height) &&
		b.Width >= 0 && b.Height >= 0
}

// ValidateQuery returns an error when the box cannot be used as a query
// window.
func ValidateQuery(rect Box) error {
	if rect.Valid() {
		return nil
	}

	return errors.New("invalid query rectangle").
		WithType(ErrTypeInvalidQuery).
		WithTag("x", rect.X).
		WithTag("y", rect.Y).
		WithTag("width", rect.Width).
		WithTag("height", rect.Height)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
