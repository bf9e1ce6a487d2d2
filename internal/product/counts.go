package product

import (
	"math"
	"sort"

	"github.com/rainmap/rainmap/internal/pointset"
	"github.com/rainmap/rainmap/internal/raster"
	"github.com/rainmap/rainmap/internal/region"
)

// AreaCount tallies the observations inside one administrative area,
// bucketed by a summary scheme. Counts carries every category of the
// scheme, zero when empty; Total counts only classifiable observations.
type AreaCount struct {
	Province string
	District string
	Counts   map[int]int
	Total    int
}

// CountPoints buckets a whole point set, ignoring where the points fall.
func CountPoints(points pointset.PointSet, scheme raster.Scheme) AreaCount {
	ac := AreaCount{Counts: zeroCounts(scheme)}
	for _, r := range points {
		cat, ok := scheme.Categorize(r.Value)
		if !ok {
			continue
		}
		ac.Counts[cat]++
		ac.Total++
	}
	return ac
}

// CountByArea joins every observation to the district containing it and
// buckets per district. Points outside every district are skipped; when
// districts share a boundary the first match in collection order wins.
// Districts without observations do not appear. The result is ordered by
// province, then district.
func CountByArea(points pointset.PointSet, coll *region.Collection, scheme raster.Scheme) []AreaCount {
	if coll == nil {
		return nil
	}

	type areaKey struct{ province, district string }
	areas := make(map[areaKey]*AreaCount)

	for _, r := range points {
		cat, ok := scheme.Categorize(r.Value)
		if !ok {
			continue
		}
		for _, f := range coll.Features {
			if f.District == "" || !f.Geometry.Contains(r.Lon, r.Lat) {
				continue
			}
			key := areaKey{f.Province, f.District}
			ac := areas[key]
			if ac == nil {
				ac = &AreaCount{
					Province: f.Province,
					District: f.District,
					Counts:   zeroCounts(scheme),
				}
				areas[key] = ac
			}
			ac.Counts[cat]++
			ac.Total++
			break
		}
	}

	out := make([]AreaCount, 0, len(areas))
	for _, ac := range areas {
		out = append(out, *ac)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Province != out[j].Province {
			return out[i].Province < out[j].Province
		}
		return out[i].District < out[j].District
	})
	return out
}

// Share is one category's slice of a count table, in percent.
type Share struct {
	Category int
	Label    string
	Percent  float64
}

// Shares converts a count table into narrative percentages: rounded to one
// decimal, empty categories dropped, largest first. Ties keep category
// order.
func Shares(ac AreaCount, scheme raster.Scheme) []Share {
	if ac.Total == 0 {
		return nil
	}
	shares := make([]Share, 0, len(ac.Counts))
	for _, cat := range scheme.Categories() {
		n := ac.Counts[cat]
		if n == 0 {
			continue
		}
		pct := math.Round(float64(n)/float64(ac.Total)*1000) / 10
		shares = append(shares, Share{
			Category: cat,
			Label:    scheme.LabelFor(cat),
			Percent:  pct,
		})
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Percent > shares[j].Percent
	})
	return shares
}

// Outlier flags a district whose dominant category departs from the
// region-wide picture.
type Outlier struct {
	Province string
	District string

	// Label is the district's dominant category label.
	Label string

	// Deviation is the distance from the regional share in percentage
	// points; 100 when the dominant category differs outright.
	Deviation float64
}

// outlierThreshold is the minimum share deviation, in percentage points,
// before a district with the same dominant category is still called out.
const outlierThreshold = 15

// Outliers lists up to limit districts that stand out against the regional
// count table, strongest deviation first.
func Outliers(total AreaCount, districts []AreaCount, scheme raster.Scheme, limit int) []Outlier {
	regionCat, regionPct, ok := dominant(total, scheme)
	if !ok {
		return nil
	}

	var outliers []Outlier
	for _, d := range districts {
		cat, pct, ok := dominant(d, scheme)
		if !ok {
			continue
		}
		if cat != regionCat {
			outliers = append(outliers, Outlier{
				Province:  d.Province,
				District:  d.District,
				Label:     scheme.LabelFor(cat),
				Deviation: 100,
			})
			continue
		}
		if dev := math.Abs(pct - regionPct); dev >= outlierThreshold {
			outliers = append(outliers, Outlier{
				Province:  d.Province,
				District:  d.District,
				Label:     scheme.LabelFor(cat),
				Deviation: dev,
			})
		}
	}

	sort.SliceStable(outliers, func(i, j int) bool {
		return outliers[i].Deviation > outliers[j].Deviation
	})
	if limit > 0 && len(outliers) > limit {
		outliers = outliers[:limit]
	}
	return outliers
}

// dominant returns the category holding the largest count and its share in
// percent. Ties resolve to the lower category.
func dominant(ac AreaCount, scheme raster.Scheme) (int, float64, bool) {
	if ac.Total == 0 {
		return raster.CategoryNone, 0, false
	}
	best := raster.CategoryNone
	bestCount := -1
	for _, cat := range scheme.Categories() {
		if n := ac.Counts[cat]; n > bestCount {
			best = cat
			bestCount = n
		}
	}
	pct := math.Round(float64(bestCount)/float64(ac.Total)*1000) / 10
	return best, pct, true
}

func zeroCounts(scheme raster.Scheme) map[int]int {
	counts := make(map[int]int, len(scheme))
	for _, cat := range scheme.Categories() {
		counts[cat] = 0
	}
	return counts
}
