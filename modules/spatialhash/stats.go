package spatialhash

import (
	"math"

	"github.com/aukilabs/cull/models"
)

// Diagnostics are computed from the populated cells on each call.

// NumberOfBuckets returns the number of populated cells.
func (h *Hash) NumberOfBuckets() int {
	return len(h.buckets)
}

// Largest returns the number of entities in the most populated cell.
func (h *Hash) Largest() int {
	largest := 0
	for _, b := range h.buckets {
		if len(b) > largest {
			largest = len(b)
		}
	}
	return largest
}

// AverageSize returns the mean number of entities per populated cell. Empty
// cells are not counted. It returns 0 when no cell is populated.
func (h *Hash) AverageSize() float64 {
	if len(h.buckets) == 0 {
		return 0
	}

	total := 0
	for _, b := range h.buckets {
		total += len(b)
	}
	return float64(total) / float64(len(h.buckets))
}

// Sparseness returns the fraction of empty cells within the smallest cell
// range spanning every populated cell:
//
//	1 - populated / cells in the occupied extent
//
// A single entity far from the others widens the extent and pushes the value
// towards 1. It returns 0 when no cell is populated.
func (h *Hash) Sparseness() float64 {
	extent, ok := h.occupiedRange()
	if !ok {
		return 0
	}
	return 1 - float64(len(h.buckets))/extent.count()
}

// SparsenessIn returns the fraction of empty cells among the cells overlapped
// by the given window.
func (h *Hash) SparsenessIn(rect models.Box) float64 {
	cells := h.cellRange(rect)

	populated := 0
	if cells.count() > float64(len(h.buckets)) {
		for key := range h.buckets {
			if cells.contains(key) {
				populated++
			}
		}
	} else {
		for y := cells.yStart; y <= cells.yEnd; y++ {
			for x := cells.xStart; x <= cells.xEnd; x++ {
				if _, ok := h.buckets[CellKey{X: x, Y: y}]; ok {
					populated++
				}
			}
		}
	}

	return 1 - float64(populated)/cells.count()
}

// WorldBounds returns the world-space box covered by the occupied extent. The
// boolean is false when no cell is populated.
func (h *Hash) WorldBounds() (models.Box, bool) {
	extent, ok := h.occupiedRange()
	if !ok {
		return models.Box{}, false
	}

	size := h.options.CellSize
	return models.Box{
		X:      float64(extent.xStart) * size,
		Y:      float64(extent.yStart) * size,
		Width:  float64(extent.xEnd-extent.xStart+1) * size,
		Height: float64(extent.yEnd-extent.yStart+1) * size,
	}, true
}

func (h *Hash) occupiedRange() (cellRange, bool) {
	if len(h.buckets) == 0 {
		return cellRange{}, false
	}

	r := cellRange{
		xStart: math.MaxInt,
		yStart: math.MaxInt,
		xEnd:   math.MinInt,
		yEnd:   math.MinInt,
	}
	for key := range h.buckets {
		r.xStart = min(r.xStart, key.X)
		r.yStart = min(r.yStart, key.Y)
		r.xEnd = max(r.xEnd, key.X)
		r.yEnd = max(r.yEnd, key.Y)
	}
	return r, true
}
