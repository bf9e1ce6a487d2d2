package pointset

import (
	"fmt"
	"math"
	"sort"
)

// Normalize validates raw records, merges coincident coordinates and returns
// the canonical point set.
//
// Records with non-finite or out-of-range fields are dropped and counted,
// never fatal by themselves. Records whose coordinates differ by less than
// CoordEpsilon on both axes are merged into a single record carrying the
// arithmetic mean of their values. Normalize fails with ErrInsufficientData
// when fewer than MinPoints records survive.
func Normalize(records []Record) (PointSet, Report, error) {
	var report Report

	valid := make(PointSet, 0, len(records))
	for _, r := range records {
		if !r.valid() {
			report.Dropped++
			continue
		}
		valid = append(valid, r)
	}

	sort.Slice(valid, func(i, j int) bool {
		if valid[i].Lon != valid[j].Lon {
			return valid[i].Lon < valid[j].Lon
		}
		return valid[i].Lat < valid[j].Lat
	})

	out := make(PointSet, 0, len(valid))
	for i := 0; i < len(valid); {
		j := i + 1
		sum := valid[i].Value
		for j < len(valid) && coincident(valid[i], valid[j]) {
			sum += valid[j].Value
			j++
		}

		rec := valid[i]
		if n := j - i; n > 1 {
			rec.Value = sum / float64(n)
			report.Merged += n - 1
		}
		out = append(out, rec)
		i = j
	}

	report.Accepted = len(out)
	if len(out) < MinPoints {
		return nil, report, fmt.Errorf("%w: %d usable of %d supplied", ErrInsufficientData, len(out), len(records))
	}
	return out, report, nil
}

func coincident(a, b Record) bool {
	return math.Abs(a.Lon-b.Lon) < CoordEpsilon && math.Abs(a.Lat-b.Lat) < CoordEpsilon
}
