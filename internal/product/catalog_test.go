package product_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainmap/rainmap/internal/product"
)

func TestFor_RampMatchesSchemeSize(t *testing.T) {
	tests := []struct {
		name  string
		kind  product.Kind
		data  product.DataType
		scale product.Scale
		bins  int
		unit  string
	}{
		{name: "monthly rainfall forecast", kind: product.KindForecast, data: product.DataRainfall, scale: product.ScaleMonthly, bins: 9, unit: "mm"},
		{name: "dasarian rainfall forecast", kind: product.KindForecast, data: product.DataRainfall, scale: product.ScaleDasarian, bins: 9, unit: "mm"},
		{name: "rainfall analysis", kind: product.KindAnalysis, data: product.DataRainfall, scale: product.ScaleMonthly, bins: 9, unit: "mm"},
		{name: "character forecast", kind: product.KindForecast, data: product.DataCharacter, scale: product.ScaleMonthly, bins: 7, unit: "%"},
		{name: "character analysis", kind: product.KindAnalysis, data: product.DataCharacter, scale: product.ScaleDasarian, bins: 7, unit: "%"},
		{name: "normal rainfall", kind: product.KindNormal, data: product.DataRainfall, scale: product.ScaleMonthly, bins: 9, unit: "mm"},
		{name: "bias", kind: product.KindBias, data: product.DataRainfall, scale: product.ScaleMonthly, bins: 16, unit: "mm"},
		{name: "probabilistic", kind: product.KindProbabilistic, data: product.DataRainfall, scale: product.ScaleDasarian, bins: 10, unit: "%"},
		{name: "verification", kind: product.KindVerification, data: product.DataRainfall, scale: product.ScaleMonthly, bins: 2, unit: ""},
		{name: "dry spell", kind: product.KindDrySpell, data: product.DataDrySpell, scale: product.ScaleDasarian, bins: 7, unit: "hari"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := product.For(tt.kind, tt.data, tt.scale)
			require.NoError(t, err)

			assert.NoError(t, p.Scheme.Validate())
			assert.Len(t, p.Scheme, tt.bins)
			assert.Len(t, p.Ramp, tt.bins, "one color per bin")
			assert.Equal(t, tt.unit, p.Unit)
		})
	}
}

func TestFor_UnknownCombinations(t *testing.T) {
	tests := []struct {
		name  string
		kind  product.Kind
		data  product.DataType
		scale product.Scale
	}{
		{name: "normal of character data", kind: product.KindNormal, data: product.DataCharacter, scale: product.ScaleMonthly},
		{name: "bias of character data", kind: product.KindBias, data: product.DataCharacter, scale: product.ScaleMonthly},
		{name: "probabilistic of character data", kind: product.KindProbabilistic, data: product.DataCharacter, scale: product.ScaleMonthly},
		{name: "unknown kind", kind: product.Kind("klimatologi"), data: product.DataRainfall, scale: product.ScaleMonthly},
		{name: "unknown scale", kind: product.KindForecast, data: product.DataRainfall, scale: product.Scale("mingguan")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := product.For(tt.kind, tt.data, tt.scale)
			require.Error(t, err)
			assert.ErrorIs(t, err, product.ErrUnknownProduct)
		})
	}
}

func TestFor_DrySpellOverridesDataType(t *testing.T) {
	p, err := product.For(product.KindDrySpell, product.DataRainfall, product.ScaleDasarian)
	require.NoError(t, err)
	assert.Equal(t, product.DataDrySpell, p.Data)
	assert.Equal(t, "Kekeringan Ekstrim", p.Scheme.LabelFor(6))
}

func TestFor_DasarianRainfallUsesFinerBins(t *testing.T) {
	monthly, err := product.For(product.KindForecast, product.DataRainfall, product.ScaleMonthly)
	require.NoError(t, err)
	dasarian, err := product.For(product.KindForecast, product.DataRainfall, product.ScaleDasarian)
	require.NoError(t, err)

	// 15 mm is light for a month but already the second dasarian bin.
	mcat, ok := monthly.Scheme.Categorize(15)
	require.True(t, ok)
	dcat, ok := dasarian.Scheme.Categorize(15)
	require.True(t, ok)
	assert.Equal(t, 0, mcat)
	assert.Equal(t, 1, dcat)
}

func TestProduct_Title(t *testing.T) {
	forecast, err := product.For(product.KindForecast, product.DataRainfall, product.ScaleMonthly)
	require.NoError(t, err)
	assert.Equal(t, "Peta Prakiraan Curah Hujan Bulanan Januari 2026", forecast.Title("Januari 2026"))

	drySpell, err := product.For(product.KindDrySpell, product.DataDrySpell, product.ScaleDasarian)
	require.NoError(t, err)
	assert.Equal(t, "Peta Monitoring Hari Tanpa Hujan Dasarian", drySpell.Title(""))
}

func TestSummaryFor(t *testing.T) {
	monthly, err := product.SummaryFor(product.DataRainfall, product.ScaleMonthly)
	require.NoError(t, err)
	cat, ok := monthly.Categorize(150)
	require.True(t, ok)
	assert.Equal(t, "Menengah", monthly.LabelFor(cat))

	dasarian, err := product.SummaryFor(product.DataRainfall, product.ScaleDasarian)
	require.NoError(t, err)
	cat, ok = dasarian.Categorize(150)
	require.True(t, ok)
	assert.Equal(t, "Tinggi", dasarian.LabelFor(cat), "a boundary value belongs to the upper bin")

	character, err := product.SummaryFor(product.DataCharacter, product.ScaleMonthly)
	require.NoError(t, err)
	cat, ok = character.Categorize(100)
	require.True(t, ok)
	assert.Equal(t, "Normal", character.LabelFor(cat))

	_, err = product.SummaryFor(product.DataType("suhu"), product.ScaleMonthly)
	assert.ErrorIs(t, err, product.ErrUnknownProduct)
}
