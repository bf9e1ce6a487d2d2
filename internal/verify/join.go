// Package verify compares forecast point sets against verifying
// observations: joining them by station location, scoring the agreement,
// and deriving the point sets behind the verification and bias maps.
package verify

import (
	"math"

	"github.com/rainmap/rainmap/internal/pointset"
	"github.com/rainmap/rainmap/internal/raster"
)

// coordKey quantizes a coordinate to a millionth of a degree, about a tenth
// of a meter, so stations reported with different float noise still join.
func coordKey(v float64) int64 {
	return int64(math.Round(v * 1e6))
}

// Pair is a forecast value joined with the verifying measurement at the
// same station location.
type Pair struct {
	Lon       float64
	Lat       float64
	Forecast  float64
	Actual    float64
	StationID string
}

// Join matches forecast points with actual observations at the same
// location. Points without a counterpart on the other side are dropped. The
// result follows the forecast set's canonical order.
func Join(forecast, actual pointset.PointSet) []Pair {
	byLocation := make(map[[2]int64]pointset.Record, len(actual))
	for _, r := range actual {
		byLocation[[2]int64{coordKey(r.Lon), coordKey(r.Lat)}] = r
	}

	pairs := make([]Pair, 0, len(forecast))
	for _, f := range forecast {
		a, ok := byLocation[[2]int64{coordKey(f.Lon), coordKey(f.Lat)}]
		if !ok {
			continue
		}
		station := f.StationID
		if station == "" {
			station = a.StationID
		}
		pairs = append(pairs, Pair{
			Lon:       f.Lon,
			Lat:       f.Lat,
			Forecast:  f.Value,
			Actual:    a.Value,
			StationID: station,
		})
	}
	return pairs
}

// MatchPoints reduces each pair to a hit-or-miss observation: 1 when the
// two sides land within tolerance categories of each other, 0 otherwise.
// Tolerance 0 demands the exact category. Pairs either side of which the
// scheme cannot place are skipped. The result feeds the verification map.
func MatchPoints(pairs []Pair, scheme raster.Scheme, tolerance int) pointset.PointSet {
	points := make(pointset.PointSet, 0, len(pairs))
	for _, p := range pairs {
		fc, ok := scheme.Categorize(p.Forecast)
		if !ok {
			continue
		}
		ac, ok := scheme.Categorize(p.Actual)
		if !ok {
			continue
		}

		value := 0.0
		if abs(fc-ac) <= tolerance {
			value = 1
		}
		points = append(points, pointset.Record{
			Lon:       p.Lon,
			Lat:       p.Lat,
			Value:     value,
			StationID: p.StationID,
		})
	}
	return points
}

// DifferencePoints turns each pair into a bias observation: the forecast
// value minus the measured one, positive when the forecast ran high.
func DifferencePoints(pairs []Pair) pointset.PointSet {
	points := make(pointset.PointSet, 0, len(pairs))
	for _, p := range pairs {
		points = append(points, pointset.Record{
			Lon:       p.Lon,
			Lat:       p.Lat,
			Value:     p.Forecast - p.Actual,
			StationID: p.StationID,
		})
	}
	return points
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
