package modules

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/cull/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	opAdd    = "add"
	opRemove = "remove"
	opUpdate = "update"
	opCull   = "cull"
)

// CullerWithLogs returns a culler that logs failures and periodically logs a
// summary of the operations performed on c.
func CullerWithLogs(c Culler, summaryInterval time.Duration) Culler {
	ctx, cancel := context.WithCancel(context.Background())

	culler := &cullerWithLogs{
		Culler:             c,
		summaryInterval:    summaryInterval,
		closeSummaryWorker: cancel,
		counter:            make(map[string]int),
	}

	go culler.startSummaryWorker(ctx)
	return culler
}

type cullerWithLogs struct {
	Culler

	summaryInterval    time.Duration
	closeSummaryWorker func()
	counterMutex       sync.Mutex
	counter            map[string]int
	lastStats          models.Stats
}

func (c *cullerWithLogs) Add(entities []*models.Entity, static bool) int {
	added := c.Culler.Add(entities, static)
	c.addCounter(opAdd, added)

	if skipped := len(entities) - added; skipped > 0 {
		logs.WithTag("culler", c.Name()).
			WithTag("skipped", skipped).
			Debug("some entities were already tracked")
	}
	return added
}

func (c *cullerWithLogs) AddOne(e *models.Entity, static bool) bool {
	added := c.Culler.AddOne(e, static)
	if added {
		c.addCounter(opAdd, 1)
	}
	return added
}

func (c *cullerWithLogs) Remove(e *models.Entity) bool {
	removed := c.Culler.Remove(e)
	if removed {
		c.addCounter(opRemove, 1)
	}
	return removed
}

func (c *cullerWithLogs) UpdateObject(e *models.Entity) error {
	err := c.Culler.UpdateObject(e)
	c.addCounter(opUpdate, 1)

	if err != nil {
		entry := logs.WithTag("culler", c.Name()).
			WithTag("error_type", errors.Type(err))
		if e != nil {
			entry = entry.WithTag("entity_id", e.ID)
		}

		if errors.IsType(err, models.ErrTypeGeometryUnavailable) {
			entry.Debug(err)
		} else {
			entry.Warn(err)
		}
	}
	return err
}

func (c *cullerWithLogs) Cull(rect models.Box) (int, error) {
	n, err := c.Culler.Cull(rect)
	if err != nil {
		logs.WithTag("culler", c.Name()).
			WithTag("rect", rect).
			Error(errors.New("culling failed").Wrap(err))
		return n, err
	}

	stats := c.Stats()
	logs.WithTag("culler", c.Name()).
		WithTag("rect", rect).
		WithTag("visible", stats.Visible).
		WithTag("culled", stats.Culled).
		WithTag("total", stats.Total).
		Debug("cull done")

	c.counterMutex.Lock()
	c.counter[opCull]++
	c.lastStats = stats
	c.counterMutex.Unlock()
	return n, nil
}

func (c *cullerWithLogs) Close() {
	c.Culler.Close()
	c.closeSummaryWorker()
	c.logSummary()
}

func (c *cullerWithLogs) Unwrap() Culler {
	return c.Culler
}

func (c *cullerWithLogs) startSummaryWorker(ctx context.Context) {
	ticker := time.NewTicker(c.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			c.logSummary()
		}
	}
}

func (c *cullerWithLogs) addCounter(op string, n int) {
	if n == 0 {
		return
	}

	c.counterMutex.Lock()
	defer c.counterMutex.Unlock()

	c.counter[op] += n
}

func (c *cullerWithLogs) logSummary() {
	c.counterMutex.Lock()
	defer c.counterMutex.Unlock()

	if len(c.counter) == 0 {
		return
	}

	entry := logs.
		WithTag("culler", c.Name()).
		WithTag("time_interval", c.summaryInterval).
		WithTag("visible", c.lastStats.Visible).
		WithTag("total", c.lastStats.Total)

	for k, v := range c.counter {
		entry = entry.WithTag(k, v)
		delete(c.counter, k)
	}

	entry.Info("culling summary")
}
