// Package product catalogs the map products the engine can produce: which
// classification scheme, color ramp, and labeling each map type uses at each
// time scale, plus the count summaries and period labels the report text is
// built from.
package product

import (
	"errors"
	"fmt"
	"math"

	"github.com/rainmap/rainmap/internal/raster"
	"github.com/rainmap/rainmap/pkg/colorramp"
)

// Catalog errors.
var (
	ErrUnknownProduct = errors.New("unknown product")
)

// Kind is the map type. The values double as filename tokens.
type Kind string

const (
	KindForecast      Kind = "prakiraan"
	KindAnalysis      Kind = "analisis"
	KindNormal        Kind = "normal"
	KindVerification  Kind = "verifikasi"
	KindBias          Kind = "bias"
	KindProbabilistic Kind = "probabilistik"
	KindDrySpell      Kind = "hth"
)

// DataType is the measured quantity a map classifies.
type DataType string

const (
	// DataRainfall is rainfall amount in millimeters (CH, curah hujan).
	DataRainfall DataType = "ch"

	// DataCharacter is rainfall character as percent of normal (SH, sifat
	// hujan).
	DataCharacter DataType = "sh"

	// DataDrySpell is the consecutive dry-day count (HTH, hari tanpa hujan).
	DataDrySpell DataType = "hth"
)

// Scale is the reporting cadence.
type Scale string

const (
	ScaleMonthly  Scale = "bulanan"
	ScaleDasarian Scale = "dasarian"
)

// Product bundles everything a run needs to classify and render one map.
type Product struct {
	Kind  Kind
	Data  DataType
	Scale Scale

	// Scheme classifies interpolated values; Ramp colors them, one color per
	// bin in scheme order.
	Scheme raster.Scheme
	Ramp   colorramp.Ramp

	// Unit annotates the legend ("mm", "%", "hari"); empty for categorical
	// maps.
	Unit string
}

func mustScheme(edges []float64, labels []string) raster.Scheme {
	s, err := raster.SchemeFromEdges(edges, labels)
	if err != nil {
		panic(err)
	}
	return s
}

// Classification tables. Edges and colors mirror the operational products;
// the ramps carry one color per bin.
var (
	rainfallMonthlyScheme = mustScheme(
		[]float64{0, 20, 50, 100, 150, 200, 300, 400, 500, 1000}, nil)
	rainfallDasarianScheme = mustScheme(
		[]float64{0, 10, 20, 50, 75, 100, 150, 200, 300, 1000}, nil)
	rainfallRamp = colorramp.MustRamp(
		"#340900", "#8E2800", "#DC6200", "#EFA800", "#eae100",
		"#e0fe7c", "#8bd48b", "#369134", "#00450c")
	// The normal maps use the same bins with a slightly different ramp.
	normalRamp = colorramp.MustRamp(
		"#340A00", "#8E2800", "#DC6200", "#EFA800", "#EBE100",
		"#E0FD68", "#8AD58B", "#369135", "#00460C")

	characterScheme = mustScheme(
		[]float64{0, 30, 50, 85, 115, 150, 200, 500}, nil)
	characterRamp = colorramp.MustRamp(
		"#4a1600", "#a85b00", "#f3c40f", "#ffff00", "#8bb700",
		"#238129", "#00460e")

	biasScheme = mustScheme(
		[]float64{-1000, -500, -400, -300, -200, -100, -50, -25, 0,
			25, 50, 100, 200, 300, 400, 500, 1000}, nil)
	biasRamp = colorramp.MustRamp(
		"#af3547", "#c74651", "#dc5b5e", "#ea7972", "#f19580",
		"#f5ae8a", "#f7c69a", "#ffffff", "#ffffff", "#bbe3f0",
		"#95d8ee", "#62cdef", "#34c0ec", "#0cafe4", "#0094d2",
		"#0074bc")

	probabilisticScheme = mustScheme(
		[]float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, nil)
	probabilisticRamp = colorramp.MustRamp(
		"#ffffff", "#0000fe", "#007fff", "#01ffff", "#7eff80",
		"#fffe01", "#ffc800", "#ff7f00", "#ff3f01", "#b10101")

	verificationScheme = mustScheme(
		[]float64{-0.5, 0.5, 1.5},
		[]string{"Tidak Sesuai", "Sesuai"})
	verificationRamp = colorramp.MustRamp("#ffffff", "#1E90FF")

	drySpellScheme = mustScheme(
		[]float64{0, 1, 6, 11, 21, 31, 61, math.Inf(1)},
		[]string{
			"Masih Ada Hujan",
			"Sangat Pendek",
			"Pendek",
			"Menengah",
			"Panjang",
			"Sangat Panjang",
			"Kekeringan Ekstrim",
		})
	drySpellRamp = colorramp.MustRamp(
		"#2E8B57", "#90EE90", "#FFD700", "#FF8C00", "#8B4513",
		"#FFB6C1", "#FF0000")
)

// For returns the product for a map type, data type and scale. Dry-spell
// maps carry their own data type regardless of the one requested.
func For(kind Kind, data DataType, scale Scale) (Product, error) {
	if scale != ScaleMonthly && scale != ScaleDasarian {
		return Product{}, fmt.Errorf("%w: scale %q", ErrUnknownProduct, scale)
	}

	p := Product{Kind: kind, Data: data, Scale: scale}
	switch kind {
	case KindForecast, KindAnalysis:
		switch data {
		case DataRainfall:
			p.Scheme = rainfallSchemeFor(scale)
			p.Ramp = rainfallRamp
			p.Unit = "mm"
		case DataCharacter:
			p.Scheme = characterScheme
			p.Ramp = characterRamp
			p.Unit = "%"
		default:
			return Product{}, fmt.Errorf("%w: %s with data %q", ErrUnknownProduct, kind, data)
		}
	case KindNormal:
		if data != DataRainfall {
			return Product{}, fmt.Errorf("%w: %s with data %q", ErrUnknownProduct, kind, data)
		}
		p.Scheme = rainfallSchemeFor(scale)
		p.Ramp = normalRamp
		p.Unit = "mm"
	case KindBias:
		if data != DataRainfall {
			return Product{}, fmt.Errorf("%w: %s with data %q", ErrUnknownProduct, kind, data)
		}
		p.Scheme = biasScheme
		p.Ramp = biasRamp
		p.Unit = "mm"
	case KindProbabilistic:
		if data != DataRainfall {
			return Product{}, fmt.Errorf("%w: %s with data %q", ErrUnknownProduct, kind, data)
		}
		p.Scheme = probabilisticScheme
		p.Ramp = probabilisticRamp
		p.Unit = "%"
	case KindVerification:
		if data != DataRainfall {
			return Product{}, fmt.Errorf("%w: %s with data %q", ErrUnknownProduct, kind, data)
		}
		p.Scheme = verificationScheme
		p.Ramp = verificationRamp
	case KindDrySpell:
		p.Data = DataDrySpell
		p.Scheme = drySpellScheme
		p.Ramp = drySpellRamp
		p.Unit = "hari"
	default:
		return Product{}, fmt.Errorf("%w: kind %q", ErrUnknownProduct, kind)
	}
	return p, nil
}

func rainfallSchemeFor(scale Scale) raster.Scheme {
	if scale == ScaleDasarian {
		return rainfallDasarianScheme
	}
	return rainfallMonthlyScheme
}

// Title returns the Indonesian map heading, period text included when given.
func (p Product) Title(period string) string {
	kindNames := map[Kind]string{
		KindForecast:      "Prakiraan",
		KindAnalysis:      "Analisis",
		KindNormal:        "Normal",
		KindVerification:  "Verifikasi",
		KindBias:          "Bias",
		KindProbabilistic: "Probabilistik",
		KindDrySpell:      "Monitoring Hari Tanpa Hujan",
	}
	dataNames := map[DataType]string{
		DataRainfall:  "Curah Hujan",
		DataCharacter: "Sifat Hujan",
	}
	scaleNames := map[Scale]string{
		ScaleMonthly:  "Bulanan",
		ScaleDasarian: "Dasarian",
	}

	title := "Peta " + kindNames[p.Kind]
	if name, ok := dataNames[p.Data]; ok {
		title += " " + name
	}
	title += " " + scaleNames[p.Scale]
	if period != "" {
		title += " " + period
	}
	return title
}
