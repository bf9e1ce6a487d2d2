// Package pointset validates raw observation records and produces the
// canonical point set the interpolation engine consumes.
package pointset

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
)

// Normalization errors.
var (
	ErrInsufficientData = errors.New("insufficient points after normalization")
)

const (
	// MinPoints is the smallest usable point set. Interpolation and region
	// coverage are meaningless below this.
	MinPoints = 3

	// CoordEpsilon is the tolerance, in degrees, below which two coordinates
	// are considered coincident.
	CoordEpsilon = 1e-9
)

// Record is a single observation: a geographic location and the value
// measured or forecast there.
type Record struct {
	Lon       float64
	Lat       float64
	Value     float64
	StationID string
}

// Point returns the record location as an orb point.
func (r Record) Point() orb.Point {
	return orb.Point{r.Lon, r.Lat}
}

// valid reports whether every field is finite and the coordinates are in
// geographic range.
func (r Record) valid() bool {
	if math.IsNaN(r.Lon) || math.IsInf(r.Lon, 0) || r.Lon < -180 || r.Lon > 180 {
		return false
	}
	if math.IsNaN(r.Lat) || math.IsInf(r.Lat, 0) || r.Lat < -90 || r.Lat > 90 {
		return false
	}
	return !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0)
}

// PointSet is an ordered sequence of records with unique coordinates. The
// order is canonical (longitude, then latitude), so operations that sum over
// the set do not depend on how the input was arranged.
type PointSet []Record

// Values returns the observation values in canonical order.
func (ps PointSet) Values() []float64 {
	values := make([]float64, len(ps))
	for i, r := range ps {
		values[i] = r.Value
	}
	return values
}

// DistinctValues counts the distinct observation values in the set. Callers
// use it to detect categorical inputs such as match flags or class indices.
func (ps PointSet) DistinctValues() int {
	seen := make(map[float64]struct{}, len(ps))
	for _, r := range ps {
		seen[r.Value] = struct{}{}
	}
	return len(seen)
}

// Bound returns the bounding box of the set. The zero bound is returned for
// an empty set.
func (ps PointSet) Bound() orb.Bound {
	if len(ps) == 0 {
		return orb.Bound{}
	}
	b := orb.Bound{Min: ps[0].Point(), Max: ps[0].Point()}
	for _, r := range ps[1:] {
		b = b.Extend(r.Point())
	}
	return b
}

// Report carries normalization diagnostics.
type Report struct {
	// Accepted is the number of records in the resulting point set.
	Accepted int

	// Dropped is the number of records discarded as non-finite or out of
	// geographic range.
	Dropped int

	// Merged is the number of records folded into another one by the
	// coincident-coordinate rule.
	Merged int
}
