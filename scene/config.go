package scene

import (
	"math"
	"os"

	"github.com/aukilabs/cull/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config describes a generated scene and the viewport moving over it.
type Config struct {
	// The world area where sprites are placed.
	StartX float64 `yaml:"start_x"`
	StartY float64 `yaml:"start_y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`

	// The number of generated sprites and their size.
	Count int     `yaml:"count"`
	Size  float64 `yaml:"size"`

	// The number of generated sprites that move on each frame, and the
	// distance they travel per frame.
	Moving int     `yaml:"moving"`
	Speed  float64 `yaml:"speed"`

	// The number of entities added without geometry.
	Unresolved int `yaml:"unresolved"`

	// Extra sprites placed as is.
	Sprites []models.Sprite `yaml:"sprites"`

	ViewportWidth  float64 `yaml:"viewport_width"`
	ViewportHeight float64 `yaml:"viewport_height"`

	// The distance travelled by the viewport on each frame.
	PanX float64 `yaml:"pan_x"`
	PanY float64 `yaml:"pan_y"`

	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns a scene of 10000 static sprites spread over a 50000
// units wide world, looked at through a 5000 units wide viewport.
func DefaultConfig() Config {
	return Config{
		StartX:         -25000,
		StartY:         -25000,
		Width:          50000,
		Height:         50000,
		Count:          10000,
		Size:           100,
		ViewportWidth:  5000,
		ViewportHeight: 2800,
		PanX:           250,
		PanY:           125,
		Seed:           1,
	}
}

// LoadConfig reads a YAML scene description. Fields missing from the file
// keep their default value.
func LoadConfig(filename string) (Config, error) {
	conf := DefaultConfig()

	b, err := os.ReadFile(filename)
	if err != nil {
		return conf, errors.New("reading scene file failed").
			WithTag("filename", filename).
			Wrap(err)
	}

	if err := yaml.Unmarshal(b, &conf); err != nil {
		return conf, errors.New("parsing scene file failed").
			WithType(models.ErrTypeInvalidConfiguration).
			WithTag("filename", filename).
			Wrap(err)
	}

	if err := conf.Validate(); err != nil {
		return conf, errors.New("invalid scene file").
			WithType(models.ErrTypeInvalidConfiguration).
			WithTag("filename", filename).
			Wrap(err)
	}
	return conf, nil
}

// World returns the area where sprites are placed.
func (c Config) World() models.Box {
	return models.Box{
		X:      c.StartX,
		Y:      c.StartY,
		Width:  c.Width,
		Height: c.Height,
	}
}

// Validate returns an error of type models.ErrTypeInvalidConfiguration when
// the config cannot produce a scene.
func (c Config) Validate() error {
	newErr := func(msg string) error {
		return errors.New(msg).WithType(models.ErrTypeInvalidConfiguration)
	}

	switch {
	case !c.World().Valid():
		return newErr("world must have finite coordinates and a non-negative size")

	case c.Count < 0 || c.Moving < 0 || c.Unresolved < 0:
		return newErr("sprite counts must not be negative")

	case c.Moving > c.Count:
		return errors.Newf("moving sprites exceed the sprite count: %d > %d", c.Moving, c.Count).
			WithType(models.ErrTypeInvalidConfiguration)

	case !(c.Size >= 0) || math.IsInf(c.Size, 0):
		return newErr("sprite size must be a non-negative number")

	case math.IsNaN(c.Speed) || math.IsInf(c.Speed, 0):
		return newErr("speed must be a finite number")

	case !c.viewport().Valid():
		return newErr("viewport must have a non-negative size")

	case math.IsNaN(c.PanX) || math.IsNaN(c.PanY) ||
		math.IsInf(c.PanX, 0) || math.IsInf(c.PanY, 0):
		return newErr("pan must be finite")
	}

	for i, s := range c.Sprites {
		if _, err := s.Bounds(); err != nil {
			return errors.New("invalid sprite").
				WithType(models.ErrTypeInvalidConfiguration).
				WithTag("index", i).
				Wrap(err)
		}
	}
	return nil
}

func (c Config) viewport() models.Box {
	return models.Box{
		X:      c.StartX,
		Y:      c.StartY,
		Width:  c.ViewportWidth,
		Height: c.ViewportHeight,
	}
}
