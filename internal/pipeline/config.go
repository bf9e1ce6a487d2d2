// Package pipeline runs map-product requests end to end: point
// normalization, grid building, interpolation, masking, classification,
// statistics, and the product-specific preprocessing each map kind needs.
package pipeline

import (
	"github.com/rainmap/rainmap/internal/raster"
)

// Config holds the engine knobs of a run.
type Config struct {
	// Grid bounds the lattice the run may allocate.
	Grid raster.GridConfig

	// Interpolation steers the estimator for continuous data.
	Interpolation raster.InterpolationConfig

	// DiscreteLimit is the distinct-value count at or below which a point
	// set is treated as categorical and filled from the single nearest
	// station instead of a weighted blend. Default: 10.
	DiscreteLimit int

	// MatchTolerance widens verification matching by this many categories.
	// Zero demands the exact category.
	MatchTolerance int

	// OutlierLimit caps the narrative outlier list. Default: 3.
	OutlierLimit int
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() Config {
	return Config{
		Grid:          raster.DefaultGridConfig(),
		Interpolation: raster.DefaultInterpolationConfig(),
		DiscreteLimit: 10,
		OutlierLimit:  3,
	}
}
