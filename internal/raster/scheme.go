package raster

import (
	"fmt"
	"math"
	"sort"
)

// Bin is one half-open value interval [Lower, Upper) of a classification
// scheme. The last bin of a scheme also accepts its Upper edge, so a value
// sitting exactly on a shared boundary always lands in the upper bin.
type Bin struct {
	Lower    float64
	Upper    float64
	Category int
	Label    string
}

// contains reports whether v falls in the bin. last widens the test to the
// closing edge.
func (b Bin) contains(v float64, last bool) bool {
	if v >= b.Lower && v < b.Upper {
		return true
	}
	return last && v == b.Upper
}

// Scheme is an ordered list of non-overlapping bins. Gaps between bins are
// legal; values falling in a gap are simply unclassifiable.
type Scheme []Bin

// SchemeFromEdges builds a scheme of len(edges)-1 consecutive bins with
// categories numbered from zero. labels may be nil, otherwise it must carry
// one label per bin.
func SchemeFromEdges(edges []float64, labels []string) (Scheme, error) {
	if len(edges) < 2 {
		return nil, fmt.Errorf("%w: need at least two edges, got %d", ErrInvalidScheme, len(edges))
	}
	if labels != nil && len(labels) != len(edges)-1 {
		return nil, fmt.Errorf("%w: %d labels for %d bins", ErrInvalidScheme, len(labels), len(edges)-1)
	}
	scheme := make(Scheme, 0, len(edges)-1)
	for i := 0; i < len(edges)-1; i++ {
		bin := Bin{Lower: edges[i], Upper: edges[i+1], Category: i}
		if labels != nil {
			bin.Label = labels[i]
		}
		scheme = append(scheme, bin)
	}
	if err := scheme.Validate(); err != nil {
		return nil, err
	}
	return scheme, nil
}

// Validate checks that the scheme is usable: at least one bin, each bin with
// Lower < Upper, bins ordered and non-overlapping, categories unique.
func (s Scheme) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: no bins", ErrInvalidScheme)
	}
	seen := make(map[int]struct{}, len(s))
	for i, b := range s {
		if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) {
			return fmt.Errorf("%w: bin %d has NaN edge", ErrInvalidScheme, i)
		}
		if b.Lower >= b.Upper {
			return fmt.Errorf("%w: bin %d has lower %g >= upper %g", ErrInvalidScheme, i, b.Lower, b.Upper)
		}
		if i > 0 && b.Lower < s[i-1].Upper {
			return fmt.Errorf("%w: bin %d overlaps bin %d", ErrInvalidScheme, i, i-1)
		}
		if _, dup := seen[b.Category]; dup {
			return fmt.Errorf("%w: duplicate category %d", ErrInvalidScheme, b.Category)
		}
		seen[b.Category] = struct{}{}
	}
	return nil
}

// Categorize maps a value to its bin's category. The boolean is false for
// NaN, for values outside every bin, and for values in a gap.
func (s Scheme) Categorize(v float64) (int, bool) {
	if math.IsNaN(v) {
		return CategoryNone, false
	}
	for i, b := range s {
		if b.contains(v, i == len(s)-1) {
			return b.Category, true
		}
	}
	return CategoryNone, false
}

// Categories returns every category of the scheme in ascending order.
func (s Scheme) Categories() []int {
	cats := make([]int, 0, len(s))
	for _, b := range s {
		cats = append(cats, b.Category)
	}
	sort.Ints(cats)
	return cats
}

// LabelFor returns the label of the bin holding the category, or the empty
// string when no bin does.
func (s Scheme) LabelFor(category int) string {
	for _, b := range s {
		if b.Category == category {
			return b.Label
		}
	}
	return ""
}
