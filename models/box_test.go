package models

import (
	"math"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestBoxIntersects(t *testing.T) {
	b := Box{X: 0, Y: 0, Width: 10, Height: 10}

	t.Run("overlapping boxes intersect", func(t *testing.T) {
		require.True(t, b.Intersects(Box{X: 5, Y: 5, Width: 10, Height: 10}))
		require.True(t, b.Intersects(Box{X: -5, Y: -5, Width: 30, Height: 30}))
	})

	t.Run("distant boxes do not intersect", func(t *testing.T) {
		require.False(t, b.Intersects(Box{X: 100, Y: 100, Width: 10, Height: 10}))
	})

	t.Run("boxes sharing an edge do not intersect", func(t *testing.T) {
		require.False(t, b.Intersects(Box{X: 10, Y: 0, Width: 10, Height: 10}))
		require.False(t, b.Intersects(Box{X: 0, Y: 10, Width: 10, Height: 10}))
	})

	t.Run("point inside a box intersects", func(t *testing.T) {
		require.True(t, b.Intersects(Box{X: 5, Y: 5}))
		require.False(t, b.Intersects(Box{X: 0, Y: 0}))
	})
}

func TestBoxContains(t *testing.T) {
	b := Box{X: 0, Y: 0, Width: 20, Height: 20}
	require.True(t, b.Contains(Box{X: 5, Y: 5, Width: 10, Height: 10}))
	require.True(t, b.Contains(b))
	require.False(t, b.Contains(Box{X: 15, Y: 15, Width: 10, Height: 10}))
}

func TestBoxUnion(t *testing.T) {
	a := Box{X: 0, Y: 0, Width: 10, Height: 10}
	b := Box{X: 20, Y: -10, Width: 5, Height: 5}
	require.Equal(t, Box{X: 0, Y: -10, Width: 25, Height: 20}, a.Union(b))
}

func TestValidateQuery(t *testing.T) {
	t.Run("zero area query is valid", func(t *testing.T) {
		require.NoError(t, ValidateQuery(Box{X: 3, Y: 4}))
	})

	t.Run("negative dimensions are rejected", func(t *testing.T) {
		err := ValidateQuery(Box{Width: -1, Height: 10})
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidQuery))
	})

	t.Run("non finite coordinates are rejected", func(t *testing.T) {
		require.Error(t, ValidateQuery(Box{X: math.NaN(), Width: 1, Height: 1}))
		require.Error(t, ValidateQuery(Box{Width: math.Inf(1), Height: 1}))
	})
}
