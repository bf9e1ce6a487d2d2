package raster

import (
	"fmt"
	"math"

	"github.com/rainmap/rainmap/internal/region"
)

// GridConfig bounds the lattice the builder may allocate.
type GridConfig struct {
	// Resolution is the node spacing in degrees. Default: DefaultResolution.
	Resolution float64

	// MaxNodes caps the total node count, guarding against pathological
	// memory use from a misconfigured resolution. Default: 25,000,000.
	MaxNodes int
}

// DefaultGridConfig returns the default grid configuration.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Resolution: DefaultResolution,
		MaxNodes:   25_000_000,
	}
}

// BuildGrid derives the regular lattice covering the region bounding box,
// expanded by one resolution step on every side so interpolation has no edge
// artifacts at the region boundary. Every cell starts without a value or
// category and outside the region.
//
// Fails with ErrInvalidGeometry when the geometry is empty or has zero area,
// or when the requested resolution would exceed the node limit.
func BuildGrid(geom region.Geometry, cfg GridConfig) (*Grid, error) {
	def := DefaultGridConfig()
	if cfg.Resolution <= 0 {
		cfg.Resolution = def.Resolution
	}
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = def.MaxNodes
	}

	if geom.Empty() {
		return nil, fmt.Errorf("%w: no polygons", ErrInvalidGeometry)
	}
	if geom.Area() == 0 {
		return nil, fmt.Errorf("%w: zero area", ErrInvalidGeometry)
	}

	b := geom.Bound()
	if b.Max[0] <= b.Min[0] || b.Max[1] <= b.Min[1] {
		return nil, fmt.Errorf("%w: degenerate bounding box", ErrInvalidGeometry)
	}

	res := cfg.Resolution
	spec := GridSpec{
		MinLon:     b.Min[0] - res,
		MaxLon:     b.Max[0] + res,
		MinLat:     b.Min[1] - res,
		MaxLat:     b.Max[1] + res,
		Resolution: res,
	}

	ncols := int(math.Ceil((spec.MaxLon-spec.MinLon)/res)) + 1
	nrows := int(math.Ceil((spec.MaxLat-spec.MinLat)/res)) + 1
	if nodes := float64(nrows) * float64(ncols); nodes > float64(cfg.MaxNodes) {
		return nil, fmt.Errorf("%w: %.0f nodes exceeds limit %d at resolution %g",
			ErrInvalidGeometry, nodes, cfg.MaxNodes, res)
	}

	g := &Grid{
		Spec:  spec,
		NRows: nrows,
		NCols: ncols,
		Cells: make([]Cell, nrows*ncols),
	}
	for row := 0; row < nrows; row++ {
		lat := spec.MinLat + float64(row)*res
		for col := 0; col < ncols; col++ {
			cell := g.At(row, col)
			cell.Lon = spec.MinLon + float64(col)*res
			cell.Lat = lat
			cell.Value = math.NaN()
			cell.Category = CategoryNone
		}
	}
	return g, nil
}
