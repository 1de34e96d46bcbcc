package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aukilabs/cull/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func writeSceneFile(t *testing.T, content string) string {
	filename := filepath.Join(t.TempDir(), "scene.yaml")
	err := os.WriteFile(filename, []byte(content), 0o600)
	require.NoError(t, err)
	return filename
}

func TestDefaultConfig(t *testing.T) {
	conf := DefaultConfig()
	require.NoError(t, conf.Validate())
	require.Equal(t, models.Box{X: -25000, Y: -25000, Width: 50000, Height: 50000}, conf.World())
	require.Equal(t, 10000, conf.Count)
}

func TestLoadConfig(t *testing.T) {
	t.Run("fields override the defaults", func(t *testing.T) {
		filename := writeSceneFile(t, `
count: 42
moving: 2
speed: 10
viewport_width: 640
viewport_height: 480
sprites:
  - x: 1
    y: 2
    width: 3
    height: 4
`)

		conf, err := LoadConfig(filename)
		require.NoError(t, err)
		require.Equal(t, 42, conf.Count)
		require.Equal(t, 2, conf.Moving)
		require.Equal(t, float64(10), conf.Speed)
		require.Equal(t, float64(640), conf.ViewportWidth)
		require.Equal(t, float64(100), conf.Size)
		require.Equal(t, []models.Sprite{{X: 1, Y: 2, Width: 3, Height: 4}}, conf.Sprites)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed file", func(t *testing.T) {
		filename := writeSceneFile(t, "count: [")

		_, err := LoadConfig(filename)
		require.Error(t, err)
		require.True(t, errors.IsType(err, models.ErrTypeInvalidConfiguration))
	})

	t.Run("invalid values", func(t *testing.T) {
		filename := writeSceneFile(t, "count: 1\nmoving: 2\n")

		_, err := LoadConfig(filename)
		require.Error(t, err)
		require.True(t, errors.IsType(err, models.ErrTypeInvalidConfiguration))
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{
			name:   "negative world",
			modify: func(c *Config) { c.Width = -1 },
		},
		{
			name:   "negative count",
			modify: func(c *Config) { c.Count = -1 },
		},
		{
			name:   "negative size",
			modify: func(c *Config) { c.Size = -1 },
		},
		{
			name:   "negative viewport",
			modify: func(c *Config) { c.ViewportHeight = -1 },
		},
		{
			name: "invalid sprite",
			modify: func(c *Config) {
				c.Sprites = []models.Sprite{{Width: -1}}
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conf := DefaultConfig()
			test.modify(&conf)

			err := conf.Validate()
			require.Error(t, err)
			require.True(t, errors.IsType(err, models.ErrTypeInvalidConfiguration))
		})
	}
}
