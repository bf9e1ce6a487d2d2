package region

import (
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
)

// Boundary files carry the administrative names in these GeoJSON properties.
const (
	ProvinceProperty = "PROVINSI"
	DistrictProperty = "KABUPATEN"
)

// DefaultNeighborBuffer is how far beyond the target bounds, in degrees,
// neighboring units are included as basemap context.
const DefaultNeighborBuffer = 2.0

// neighborTolerance is the simplification tolerance for neighbor outlines.
// They are drawn for context, never queried.
const neighborTolerance = 0.01

// Feature is one administrative unit from a boundary file.
type Feature struct {
	Province string
	District string
	Geometry Geometry
}

// Collection holds the boundary features of one file.
type Collection struct {
	Features []Feature
}

// LoadCollection reads a GeoJSON feature collection from path.
func LoadCollection(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading boundary file: %w", err)
	}
	c, err := ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("boundary file %s: %w", path, err)
	}
	return c, nil
}

// ParseCollection parses GeoJSON feature collection bytes. Features without
// polygonal geometry are skipped.
func ParseCollection(data []byte) (*Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing geojson: %w", err)
	}

	c := &Collection{}
	for _, f := range fc.Features {
		mp, ok := toMultiPolygon(f.Geometry)
		if !ok {
			continue
		}

		province := stringProperty(f, ProvinceProperty)
		district := stringProperty(f, DistrictProperty)
		name := district
		if name == "" {
			name = province
		}

		c.Features = append(c.Features, Feature{
			Province: province,
			District: district,
			Geometry: Geometry{Name: name, Polygons: mp},
		})
	}
	return c, nil
}

// Find resolves an administrative name against the collection, districts
// first, provinces second. Matching is case-insensitive and tolerates the
// Kota/Kabupaten qualifier prefixes used in upstream boundary files. All
// features sharing the matched name are unioned into one geometry, so a
// province resolves to the union of its districts.
func (c *Collection) Find(name string) (Geometry, error) {
	want := canonicalName(name)
	if want == "" {
		return Geometry{}, fmt.Errorf("%w: empty name", ErrRegionNotFound)
	}

	var polys orb.MultiPolygon
	matched := ""
	for _, f := range c.Features {
		if canonicalName(f.District) == want {
			polys = append(polys, f.Geometry.Polygons...)
			matched = f.District
		}
	}
	if len(polys) == 0 {
		for _, f := range c.Features {
			if canonicalName(f.Province) == want {
				polys = append(polys, f.Geometry.Polygons...)
				matched = f.Province
			}
		}
	}
	if len(polys) == 0 {
		return Geometry{}, fmt.Errorf("%w: %q", ErrRegionNotFound, name)
	}
	return Geometry{Name: matched, Polygons: polys}, nil
}

// Neighbors returns simplified outlines of units near the target: every
// feature outside the target whose bounds intersect the target bounds padded
// by buffer degrees. A non-positive buffer uses DefaultNeighborBuffer.
func (c *Collection) Neighbors(target Geometry, buffer float64) []Geometry {
	if buffer <= 0 {
		buffer = DefaultNeighborBuffer
	}
	wantName := canonicalName(target.Name)
	within := target.Bound().Pad(buffer)

	var out []Geometry
	for _, f := range c.Features {
		if canonicalName(f.District) == wantName || canonicalName(f.Province) == wantName {
			continue
		}
		if !f.Geometry.Bound().Intersects(within) {
			continue
		}

		simplified := simplify.DouglasPeucker(neighborTolerance).Simplify(f.Geometry.Polygons.Clone())
		mp, ok := toMultiPolygon(simplified)
		if !ok {
			continue
		}
		out = append(out, Geometry{Name: f.Geometry.Name, Polygons: mp})
	}
	return out
}

// canonicalName upper-cases, trims and strips the Kota/Kabupaten qualifiers
// so "Kota Sorong" and "SORONG" compare equal.
func canonicalName(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, prefix := range []string{"KOTA ", "KABUPATEN ", "KAB. ", "KAB "} {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(s, prefix))
		}
	}
	return s
}

func stringProperty(f *geojson.Feature, key string) string {
	if f.Properties == nil {
		return ""
	}
	v, _ := f.Properties[key].(string)
	return strings.TrimSpace(v)
}
