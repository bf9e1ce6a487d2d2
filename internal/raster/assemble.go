package raster

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Assemble computes summary statistics over the classified grid and bundles
// them with the diagnostics gathered along the way.
//
// Statistics cover only in-region nodes that received a category: category
// counts are zero-filled for every category of the scheme, and Min/Max are
// NaN when no node qualified.
func Assemble(grid *Grid, scheme Scheme, diag Diagnostics) Result {
	stats := Stats{
		Min:            math.NaN(),
		Max:            math.NaN(),
		CategoryCounts: make(map[int]int, len(scheme)),
	}
	for _, cat := range scheme.Categories() {
		stats.CategoryCounts[cat] = 0
	}

	var values []float64
	if grid != nil {
		for i := range grid.Cells {
			cell := &grid.Cells[i]
			if !cell.InRegion || cell.Category == CategoryNone {
				continue
			}
			stats.CategoryCounts[cell.Category]++
			values = append(values, cell.Value)
		}
	}
	if len(values) > 0 {
		stats.Min = floats.Min(values)
		stats.Max = floats.Max(values)
	}

	return Result{
		Grid:        grid,
		Scheme:      scheme,
		Stats:       stats,
		Diagnostics: diag,
	}
}
