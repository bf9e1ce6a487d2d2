package raster

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"

	"github.com/rainmap/rainmap/internal/pointset"
)

// NeighborMode selects which observations contribute to a grid node.
type NeighborMode string

const (
	// ModeAllPoints weighs every observation at every node.
	ModeAllPoints NeighborMode = "all"

	// ModeKNearest weighs only the k nearest observations. Cheaper on large
	// sets, slightly lossy for sparse ones.
	ModeKNearest NeighborMode = "k-nearest"

	// ModeRadius weighs only observations within a fixed radius. Nodes with
	// an empty neighborhood are left without a value.
	ModeRadius NeighborMode = "radius"
)

// DistanceMetric selects how node-to-observation distance is measured.
type DistanceMetric string

const (
	// MetricPlanar treats lon/lat as planar coordinates and measures in
	// degrees. An approximation, adequate at the regional extents the
	// products cover.
	MetricPlanar DistanceMetric = "planar"

	// MetricHaversine measures great-circle distance in meters.
	MetricHaversine DistanceMetric = "haversine"
)

// InterpolationConfig holds configuration for inverse distance weighting.
type InterpolationConfig struct {
	// Power is the inverse-distance exponent. Larger values sharpen the
	// influence of near observations. Default: 2.
	Power float64

	// Mode selects the neighborhood. Default: ModeAllPoints.
	Mode NeighborMode

	// Neighbors is the k used by ModeKNearest. Default: 6.
	Neighbors int

	// Radius is the cutoff used by ModeRadius, in the units of Metric.
	// ModeRadius with a non-positive radius falls back to ModeAllPoints.
	Radius float64

	// Epsilon is the coincidence tolerance in degrees: a node this close to
	// an observation takes its value verbatim. Default: 1e-9.
	Epsilon float64

	// Metric selects the distance measure. Default: MetricPlanar.
	Metric DistanceMetric
}

// DefaultInterpolationConfig returns the default configuration.
func DefaultInterpolationConfig() InterpolationConfig {
	return InterpolationConfig{
		Power:     2,
		Mode:      ModeAllPoints,
		Neighbors: 6,
		Epsilon:   1e-9,
		Metric:    MetricPlanar,
	}
}

// Interpolator fills grid values from a point set.
type Interpolator struct {
	config InterpolationConfig
}

// NewInterpolator creates an Interpolator, replacing invalid configuration
// fields with defaults.
func NewInterpolator(config InterpolationConfig) *Interpolator {
	def := DefaultInterpolationConfig()
	if config.Power <= 0 {
		config.Power = def.Power
	}
	switch config.Mode {
	case ModeAllPoints, ModeKNearest, ModeRadius:
	default:
		config.Mode = def.Mode
	}
	if config.Mode == ModeRadius && config.Radius <= 0 {
		config.Mode = ModeAllPoints
	}
	if config.Neighbors <= 0 {
		config.Neighbors = def.Neighbors
	}
	if config.Epsilon <= 0 {
		config.Epsilon = def.Epsilon
	}
	if config.Metric != MetricPlanar && config.Metric != MetricHaversine {
		config.Metric = def.Metric
	}
	return &Interpolator{config: config}
}

// Interpolate estimates a value at every grid node and returns the number of
// nodes left without one.
//
// A node within Epsilon of an observation takes that observation's value
// directly, bypassing the weighted sum, so exact station readings survive.
// Every other node receives the weighted mean of its neighborhood with
// weights 1/d^Power. Only ModeRadius can leave nodes empty; the point set's
// canonical order keeps the summation deterministic.
func (ip *Interpolator) Interpolate(grid *Grid, points pointset.PointSet) int {
	if grid == nil || len(grid.Cells) == 0 {
		return 0
	}
	if len(points) == 0 {
		return len(grid.Cells)
	}

	var index *quadtree.Quadtree
	if ip.config.Mode == ModeKNearest {
		index = quadtree.New(points.Bound().Pad(ip.config.Epsilon))
		for _, r := range points {
			_ = index.Add(r) // the bound covers every point
		}
	}

	empty := 0
	var buf []orb.Pointer
	neighbors := make(pointset.PointSet, 0, ip.config.Neighbors)

	for i := range grid.Cells {
		cell := &grid.Cells[i]

		var value float64
		var ok bool
		switch ip.config.Mode {
		case ModeKNearest:
			buf = index.KNearest(buf[:0], cell.Point(), ip.config.Neighbors)
			neighbors = neighbors[:0]
			for _, p := range buf {
				neighbors = append(neighbors, p.(pointset.Record))
			}
			sort.Slice(neighbors, func(a, b int) bool {
				if neighbors[a].Lon != neighbors[b].Lon {
					return neighbors[a].Lon < neighbors[b].Lon
				}
				return neighbors[a].Lat < neighbors[b].Lat
			})
			value, ok = ip.weighted(cell.Lon, cell.Lat, neighbors, 0)
		case ModeRadius:
			value, ok = ip.weighted(cell.Lon, cell.Lat, points, ip.config.Radius)
		default:
			value, ok = ip.weighted(cell.Lon, cell.Lat, points, 0)
		}

		if !ok {
			empty++
			continue
		}
		cell.Value = value
	}
	return empty
}

// weighted accumulates the inverse-distance mean over the given points. A
// positive radius excludes points beyond it. The boolean is false when no
// point contributed.
func (ip *Interpolator) weighted(lon, lat float64, points pointset.PointSet, radius float64) (float64, bool) {
	var sumWeights, sumWeighted float64
	contributed := false

	for _, r := range points {
		if ip.coincident(lon, lat, r) {
			return r.Value, true
		}

		d := ip.distance(lon, lat, r.Lon, r.Lat)
		if radius > 0 && d > radius {
			continue
		}

		w := 1 / math.Pow(d, ip.config.Power)
		sumWeights += w
		sumWeighted += w * r.Value
		contributed = true
	}

	if !contributed || sumWeights == 0 {
		return 0, false
	}
	return sumWeighted / sumWeights, true
}

// coincident applies the exact-value rule on both axes. The first coincident
// observation in canonical order wins; normalization guarantees there is at
// most one.
func (ip *Interpolator) coincident(lon, lat float64, r pointset.Record) bool {
	return math.Abs(lon-r.Lon) < ip.config.Epsilon && math.Abs(lat-r.Lat) < ip.config.Epsilon
}

// distance measures in the configured metric: degrees for MetricPlanar,
// meters for MetricHaversine.
func (ip *Interpolator) distance(lon1, lat1, lon2, lat2 float64) float64 {
	if ip.config.Metric == MetricHaversine {
		return haversineDistance(lat1, lon1, lat2, lon2)
	}
	return planar.Distance(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}

// haversineDistance calculates the great-circle distance between two points
// in meters.
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000 // meters

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
