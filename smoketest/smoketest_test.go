package smoketest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aukilabs/cull/models"
	"github.com/aukilabs/cull/modules"
	"github.com/aukilabs/cull/scene"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	conf := scene.DefaultConfig()
	conf.Count = 2000
	conf.Moving = 100
	conf.Speed = 200
	conf.Unresolved = 5

	culler := modules.DefaultConfig()
	culler.CellSize = 500

	return Options{
		Scene:  conf,
		Culler: culler,
		Frames: 10,
	}
}

func TestRun(t *testing.T) {
	t.Run("smoke test success", func(t *testing.T) {
		res, err := Run(context.Background(), testOptions())
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, res.Status)
		require.Equal(t, 10, res.Frames)
		require.Zero(t, res.Mismatches)
		require.NotEmpty(t, res.ID)
		require.NotEmpty(t, res.SceneID)
		require.Empty(t, res.Error)
	})

	t.Run("default frame count", func(t *testing.T) {
		opts := testOptions()
		opts.Scene.Count = 100
		opts.Frames = 0

		res, err := Run(context.Background(), opts)
		require.NoError(t, err)
		require.Equal(t, DefaultFrames, res.Frames)
	})

	t.Run("invalid cell size", func(t *testing.T) {
		opts := testOptions()
		opts.Culler.CellSize = -1

		res, err := Run(context.Background(), opts)
		require.Error(t, err)
		require.True(t, errors.IsType(err, models.ErrTypeInvalidConfiguration))
		require.Equal(t, StatusFailed, res.Status)
		require.NotEmpty(t, res.Error)
	})

	t.Run("culler options are cross validated", func(t *testing.T) {
		tests := []struct {
			name   string
			modify func(*modules.Config)
		}{
			{
				name:   "without simple test",
				modify: func(c *modules.Config) { c.SimpleTest = false },
			},
			{
				name:   "without dirty test",
				modify: func(c *modules.Config) { c.DirtyTest = false },
			},
			{
				name:   "manual update",
				modify: func(c *modules.Config) { c.ManualUpdate = true },
			},
			{
				name:   "skip unresolved",
				modify: func(c *modules.Config) { c.Unresolved = models.SkipUnresolved },
			},
			{
				name:   "incremental reset",
				modify: func(c *modules.Config) { c.IncrementalReset = true },
			},
		}

		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				opts := testOptions()
				opts.Scene.Count = 500
				test.modify(&opts.Culler)

				res, err := Run(context.Background(), opts)
				require.NoError(t, err)
				require.Equal(t, StatusSuccess, res.Status)
			})
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := Run(ctx, testOptions())
		require.Error(t, err)
		require.Contains(t, res.Error, "canceled")
		require.Equal(t, StatusFailed, res.Status)
	})
}

func TestHandleSmokeTest(t *testing.T) {
	h := HandleSmokeTest(context.Background(), testOptions())

	t.Run("smoke test with request overrides", func(t *testing.T) {
		body, err := json.Marshal(Request{
			Count:  500,
			Frames: 3,
			Seed:   7,
		})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		var res Results
		err = json.Unmarshal(rec.Body.Bytes(), &res)
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, res.Status)
		require.Equal(t, 3, res.Frames)
	})

	t.Run("empty body uses the defaults", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader([]byte("{"))))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid scene", func(t *testing.T) {
		body, err := json.Marshal(Request{Count: -1})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader(body)))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("requests are bounded", func(t *testing.T) {
		for _, req := range []Request{
			{Count: MaxRequestCount + 1},
			{Moving: MaxRequestCount + 1},
			{Frames: MaxRequestFrames + 1},
		} {
			body, err := json.Marshal(req)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader(body)))
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var res Results
			err = json.Unmarshal(rec.Body.Bytes(), &res)
			require.NoError(t, err)
			require.Equal(t, StatusFailed, res.Status)
			require.Contains(t, res.Error, "too large")
		}
	})

	t.Run("only post is allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/smoke-test", nil))
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestOptionsWith(t *testing.T) {
	opts := testOptions()
	opts.Scene.Moving = 0
	opts.Scene.Speed = 0

	o := opts.with(Request{Moving: 3, CellSize: 42})
	require.Equal(t, 3, o.Scene.Moving)
	require.Equal(t, o.Scene.Size, o.Scene.Speed)
	require.Equal(t, float64(42), o.Culler.CellSize)
	require.Equal(t, opts.Frames, o.Frames)
}
