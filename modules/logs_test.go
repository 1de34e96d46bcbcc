package modules

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/cull/models"
	"github.com/aukilabs/cull/modules/simple"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/stretchr/testify/require"
)

func TestCullerWithLogsCounter(t *testing.T) {
	c := CullerWithLogs(simple.New(simple.DefaultOptions()), time.Hour).(*cullerWithLogs)
	defer c.Close()

	e := models.NewEntity(1, &models.Sprite{Width: 10, Height: 10})
	require.Equal(t, 1, c.Add([]*models.Entity{e, e}, false))
	require.False(t, c.AddOne(e, false))

	_, err := c.Cull(models.Box{Width: 10, Height: 10})
	require.NoError(t, err)
	require.True(t, e.Visible)

	require.True(t, c.Remove(e))
	require.Error(t, c.UpdateObject(e))

	require.Equal(t, map[string]int{
		opAdd:    1,
		opCull:   1,
		opRemove: 1,
		opUpdate: 1,
	}, c.counter)
	require.Equal(t, models.Stats{Visible: 1, Total: 1}, c.lastStats)
}

func TestCullerWithLogsLogSummary(t *testing.T) {
	c := CullerWithLogs(simple.New(simple.DefaultOptions()), time.Hour).(*cullerWithLogs)
	defer c.Close()

	c.addCounter(opAdd, 2)
	c.addCounter(opCull, 1)

	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
	})

	c.logSummary()
	require.Empty(t, c.counter)

	logString := b.String()
	require.Contains(t, logString, `"add":2`)
	require.Contains(t, logString, `"cull":1`)
	require.Contains(t, logString, `"culler":"simple"`)
	t.Log(logString)
}

func TestCullerWithLogsStartSummaryWorker(t *testing.T) {
	var wg sync.WaitGroup
	var once sync.Once

	var mu sync.Mutex
	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		mu.Lock()
		fmt.Fprint(&b, e)
		mu.Unlock()
		once.Do(wg.Done)
	})

	wg.Add(1)
	c := CullerWithLogs(simple.New(simple.DefaultOptions()), time.Millisecond).(*cullerWithLogs)
	defer c.Close()

	// No summary is logged until a counter is incremented.
	c.addCounter(opCull, 1)

	wg.Wait()

	mu.Lock()
	out := b.String()
	mu.Unlock()
	require.NotEmpty(t, out)
}

func TestCullerWithLogsCullError(t *testing.T) {
	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
	})

	c := CullerWithLogs(simple.New(simple.DefaultOptions()), time.Hour).(*cullerWithLogs)
	defer c.Close()

	_, err := c.Cull(models.Box{Width: -1})
	require.Error(t, err)
	require.Contains(t, b.String(), "culling failed")
	require.Zero(t, c.counter[opCull])
}
