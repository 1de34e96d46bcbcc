package simple

import (
	"testing"

	"github.com/aukilabs/cull/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newSprite(id uint32, x, y, w, h float64) (*models.Entity, *models.Sprite) {
	s := &models.Sprite{X: x, Y: y, Width: w, Height: h}
	return models.NewEntity(id, s), s
}

func TestCullerCull(t *testing.T) {
	t.Run("entities inside the window are visible", func(t *testing.T) {
		c := New(DefaultOptions())
		e1, _ := newSprite(1, 0, 0, 10, 10)
		e2, _ := newSprite(2, 100, 100, 10, 10)
		e3, _ := newSprite(3, 5, 5, 10, 10)
		require.Equal(t, 3, c.Add([]*models.Entity{e1, e2, e3}, false))

		visible, err := c.Cull(models.Box{Width: 20, Height: 20})
		require.NoError(t, err)
		require.Equal(t, 2, visible)
		require.True(t, e1.Visible)
		require.False(t, e2.Visible)
		require.True(t, e3.Visible)
		require.Equal(t, models.Stats{Visible: 2, Culled: 1, Total: 3}, c.Stats())
	})

	t.Run("touching edges are not visible", func(t *testing.T) {
		c := New(DefaultOptions())
		e, _ := newSprite(1, 10, 0, 10, 10)
		c.AddOne(e, true)

		visible, err := c.Cull(models.Box{Width: 10, Height: 10})
		require.NoError(t, err)
		require.Zero(t, visible)
		require.False(t, e.Visible)
	})

	t.Run("culling twice gives the same result", func(t *testing.T) {
		c := New(DefaultOptions())
		e1, _ := newSprite(1, 0, 0, 10, 10)
		e2, _ := newSprite(2, 100, 100, 10, 10)
		c.Add([]*models.Entity{e1, e2}, true)

		rect := models.Box{Width: 50, Height: 50}
		first, err := c.Cull(rect)
		require.NoError(t, err)
		second, err := c.Cull(rect)
		require.NoError(t, err)
		require.Equal(t, first, second)
		require.Equal(t, models.Stats{Visible: 1, Culled: 1, Total: 2}, c.Stats())
	})

	t.Run("invalid window is rejected", func(t *testing.T) {
		c := New(DefaultOptions())
		e, _ := newSprite(1, 0, 0, 10, 10)
		c.AddOne(e, false)

		_, err := c.Cull(models.Box{Width: 10, Height: -10})
		require.Error(t, err)
		require.True(t, errors.IsType(err, models.ErrTypeInvalidQuery))
		require.False(t, e.Visible)
	})

	t.Run("empty culler", func(t *testing.T) {
		c := New(DefaultOptions())

		visible, err := c.Cull(models.Box{Width: 10, Height: 10})
		require.NoError(t, err)
		require.Zero(t, visible)
		require.Equal(t, models.Stats{}, c.Stats())
	})
}

func TestCullerUnresolved(t *testing.T) {
	t.Run("entities without geometry are hidden", func(t *testing.T) {
		c := New(DefaultOptions())
		e := models.NewEntity(1, nil)
		e.Visible = true
		c.AddOne(e, false)

		_, err := c.Cull(models.Box{Width: 10, Height: 10})
		require.NoError(t, err)
		require.False(t, e.Visible)
		require.Equal(t, models.Stats{Visible: 0, Culled: 1, Total: 1}, c.Stats())
	})

	t.Run("entities without geometry keep their visibility when skipped", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Unresolved = models.SkipUnresolved
		c := New(opts)
		e := models.NewEntity(1, nil)
		e.Visible = true
		c.AddOne(e, true)

		_, err := c.Cull(models.Box{Width: 10, Height: 10})
		require.NoError(t, err)
		require.True(t, e.Visible)
		require.Equal(t, models.Stats{Visible: 0, Culled: 1, Total: 1}, c.Stats())
	})
}

func TestCullerUpdate(t *testing.T) {
	t.Run("moving entities are resolved again when dirty", func(t *testing.T) {
		c := New(DefaultOptions())
		e, s := newSprite(1, 0, 0, 10, 10)
		c.AddOne(e, false)

		_, err := c.Cull(models.Box{Width: 20, Height: 20})
		require.NoError(t, err)
		require.True(t, e.Visible)

		s.Move(500, 500)
		_, err = c.Cull(models.Box{Width: 20, Height: 20})
		require.NoError(t, err)
		require.True(t, e.Visible)

		e.MarkDirty()
		_, err = c.Cull(models.Box{Width: 20, Height: 20})
		require.NoError(t, err)
		require.False(t, e.Visible)
	})

	t.Run("without dirty test entities are always resolved", func(t *testing.T) {
		c := New(Options{})
		e, s := newSprite(1, 0, 0, 10, 10)
		c.AddOne(e, false)

		s.Move(500, 500)
		_, err := c.Cull(models.Box{X: 500, Y: 500, Width: 20, Height: 20})
		require.NoError(t, err)
		require.True(t, e.Visible)
	})

	t.Run("manual update uses the cached boxes", func(t *testing.T) {
		c := New(Options{ManualUpdate: true})
		e, s := newSprite(1, 0, 0, 10, 10)
		c.AddOne(e, true)

		s.Move(500, 500)
		e.MarkDirty()
		_, err := c.Cull(models.Box{X: 500, Y: 500, Width: 20, Height: 20})
		require.NoError(t, err)
		require.False(t, e.Visible)

		require.NoError(t, c.UpdateObject(e))
		_, err = c.Cull(models.Box{X: 500, Y: 500, Width: 20, Height: 20})
		require.NoError(t, err)
		require.True(t, e.Visible)
	})

	t.Run("updating an untracked entity returns an error", func(t *testing.T) {
		c := New(DefaultOptions())
		e, _ := newSprite(1, 0, 0, 10, 10)

		err := c.UpdateObject(e)
		require.True(t, errors.IsType(err, models.ErrTypeUnknownEntity))
	})
}

func TestCullerAddRemove(t *testing.T) {
	t.Run("duplicates are ignored", func(t *testing.T) {
		c := New(DefaultOptions())
		e, _ := newSprite(1, 0, 0, 10, 10)

		require.True(t, c.AddOne(e, false))
		require.False(t, c.AddOne(e, false))
		require.False(t, c.AddOne(nil, false))
		require.Len(t, c.Entities(), 1)
	})

	t.Run("remove keeps insertion order", func(t *testing.T) {
		c := New(DefaultOptions())
		e1, _ := newSprite(1, 0, 0, 10, 10)
		e2, _ := newSprite(2, 0, 0, 10, 10)
		e3, _ := newSprite(3, 0, 0, 10, 10)
		c.Add([]*models.Entity{e1, e2, e3}, false)

		require.True(t, c.Remove(e2))
		require.False(t, c.Remove(e2))
		require.Equal(t, []*models.Entity{e1, e3}, c.Entities())
	})

	t.Run("remove list updates stats", func(t *testing.T) {
		c := New(DefaultOptions())
		e1, _ := newSprite(1, 0, 0, 10, 10)
		e2, _ := newSprite(2, 0, 0, 10, 10)
		c.Add([]*models.Entity{e1, e2}, false)

		_, err := c.Cull(models.Box{Width: 10, Height: 10})
		require.NoError(t, err)
		require.Equal(t, 2, c.Stats().Visible)

		require.Equal(t, 2, c.RemoveList([]*models.Entity{e1, e2}))
		require.Equal(t, models.Stats{}, c.Stats())
	})

	t.Run("close untracks everything", func(t *testing.T) {
		c := New(DefaultOptions())
		e, _ := newSprite(1, 0, 0, 10, 10)
		c.AddOne(e, false)

		c.Close()
		require.Empty(t, c.Entities())
		require.False(t, c.Remove(e))
	})
}

func TestCullerQuery(t *testing.T) {
	c := New(DefaultOptions())
	e1, _ := newSprite(1, 0, 0, 10, 10)
	e2, _ := newSprite(2, 100, 100, 10, 10)
	e3, _ := newSprite(3, 5, 5, 10, 10)
	c.Add([]*models.Entity{e1, e2, e3}, true)

	t.Run("query leaves visibility untouched", func(t *testing.T) {
		require.Equal(t, []*models.Entity{e1, e3}, c.Query(models.Box{Width: 20, Height: 20}))
		require.False(t, e1.Visible)
	})

	t.Run("query callback stops early", func(t *testing.T) {
		var visited []*models.Entity
		stopped := c.QueryCallback(models.Box{Width: 200, Height: 200}, func(e *models.Entity) bool {
			visited = append(visited, e)
			return len(visited) == 2
		})
		require.True(t, stopped)
		require.Equal(t, []*models.Entity{e1, e2}, visited)
	})
}
