package models

import (
	"sort"
	"sync"
)

// A sequential id generator.
type SequentialIDGenerator struct {
	mutex       sync.Mutex
	currentID   uint32
	reusableIDs []uint32
}

// New returns a sequental id. Reusable ids are returned first, lowest first,
// so that generated scenes are reproducible.
func (g *SequentialIDGenerator) New() uint32 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if len(g.reusableIDs) != 0 {
		id := g.reusableIDs[0]
		g.reusableIDs = g.reusableIDs[1:]
		return id
	}

	g.currentID++
	return g.currentID
}

// Reuse marks the given id as reusable. Ids that were never generated or that
// are already reusable are ignored.
func (g *SequentialIDGenerator) Reuse(id uint32) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if id == 0 || id > g.currentID {
		return
	}

	i := sort.Search(len(g.reusableIDs), func(i int) bool {
		return g.reusableIDs[i] >= id
	})
	if i < len(g.reusableIDs) && g.reusableIDs[i] == id {
		return
	}

	g.reusableIDs = append(g.reusableIDs, 0)
	copy(g.reusableIDs[i+1:], g.reusableIDs[i:])
	g.reusableIDs[i] = id
}
