// Package region loads administrative boundary geometries and answers
// point-membership queries against them.
package region

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Lookup errors.
var (
	ErrRegionNotFound = errors.New("region not found")
)

// Geometry is a named administrative boundary: one or more polygons treated
// as a union. It is read-only input to the engine.
type Geometry struct {
	Name     string
	Polygons orb.MultiPolygon
}

// Empty reports whether the geometry has no polygons.
func (g Geometry) Empty() bool {
	return len(g.Polygons) == 0
}

// Contains reports whether the location lies inside any polygon of the
// geometry. Points exactly on a boundary count as inside, so shared district
// borders never leave gaps between adjacent units.
func (g Geometry) Contains(lon, lat float64) bool {
	return planar.MultiPolygonContains(g.Polygons, orb.Point{lon, lat})
}

// Bound returns the bounding box over all polygons.
func (g Geometry) Bound() orb.Bound {
	return g.Polygons.Bound()
}

// Area returns the planar area of the union, in squared degrees.
func (g Geometry) Area() float64 {
	return math.Abs(planar.Area(g.Polygons))
}

// toMultiPolygon widens a polygonal orb geometry; non-polygonal geometries
// are rejected.
func toMultiPolygon(g orb.Geometry) (orb.MultiPolygon, bool) {
	switch geom := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{geom}, true
	case orb.MultiPolygon:
		return geom, true
	default:
		return nil, false
	}
}
