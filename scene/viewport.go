package scene

import (
	"github.com/aukilabs/cull/models"
)

// Viewport is the visible window of a scene. It pans over the world and
// reports whether it moved since the last cull.
type Viewport struct {
	bounds models.Box
	world  models.Box
	panX   float64
	panY   float64
	dirty  bool
}

// NewViewport returns a viewport centered on the world of the given config.
// A new viewport is dirty.
func NewViewport(conf Config) *Viewport {
	world := conf.World()

	return &Viewport{
		bounds: models.Box{
			X:      world.X + (world.Width-conf.ViewportWidth)/2,
			Y:      world.Y + (world.Height-conf.ViewportHeight)/2,
			Width:  conf.ViewportWidth,
			Height: conf.ViewportHeight,
		},
		world: world,
		panX:  conf.PanX,
		panY:  conf.PanY,
		dirty: true,
	}
}

// Bounds returns the world-space window of the viewport.
func (v *Viewport) Bounds() models.Box {
	return v.bounds
}

// MoveTo places the top left corner of the viewport.
func (v *Viewport) MoveTo(x, y float64) {
	if v.bounds.X == x && v.bounds.Y == y {
		return
	}

	v.bounds.X = x
	v.bounds.Y = y
	v.dirty = true
}

// Resize changes the size of the viewport while keeping its center.
func (v *Viewport) Resize(width, height float64) {
	if v.bounds.Width == width && v.bounds.Height == height {
		return
	}

	v.bounds.X += (v.bounds.Width - width) / 2
	v.bounds.Y += (v.bounds.Height - height) / 2
	v.bounds.Width = width
	v.bounds.Height = height
	v.dirty = true
}

// Pan moves the viewport by one frame. The viewport bounces on the world
// edges.
func (v *Viewport) Pan() {
	if v.panX == 0 && v.panY == 0 {
		return
	}

	var x, y float64
	x, v.panX = bounce(v.bounds.X, v.panX, v.world.X, max(v.world.X, v.world.MaxX()-v.bounds.Width))
	y, v.panY = bounce(v.bounds.Y, v.panY, v.world.Y, max(v.world.Y, v.world.MaxY()-v.bounds.Height))
	v.MoveTo(x, y)
}

// Dirty reports whether the viewport moved since the last call to Clean.
func (v *Viewport) Dirty() bool {
	return v.dirty
}

func (v *Viewport) Clean() {
	v.dirty = false
}
