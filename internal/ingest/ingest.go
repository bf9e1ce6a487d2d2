// Package ingest reads the tabular station exports the forecasting offices
// upload and turns them into raw point records. Column names vary between
// offices and export tools, so headers are matched against alias sets;
// validation of the parsed values is left to point normalization.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rainmap/rainmap/internal/pointset"
)

// Ingest errors.
var (
	ErrMissingColumn = errors.New("required column not found")
)

// Column alias sets, matched after normalization (uppercase, spaces and
// underscores removed).
var (
	lonAliases     = []string{"LON", "BUJUR", "LONGITUDE", "LONG", "X"}
	latAliases     = []string{"LAT", "LINTANG", "LATITUDE", "Y"}
	stationAliases = []string{"STASIUN", "STATION", "NAMA", "NAME", "POS"}
)

// Options steer how a points file is read.
type Options struct {
	// ValueColumn names the column holding the observation value, matched
	// against the same normalization as the coordinate aliases.
	ValueColumn string

	// ValueAliases lists further accepted names for the value column, tried
	// in order after ValueColumn.
	ValueAliases []string

	// Comma is the field separator. Default: ','.
	Comma rune
}

// ReadPoints parses a delimited station export into raw point records. Rows
// that are too short or fail to parse are skipped and counted, never fatal.
// A header without recognizable longitude, latitude, or value columns fails
// with ErrMissingColumn.
func ReadPoints(path string, opts Options) ([]pointset.Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open points file: %w", err)
	}
	defer f.Close()
	return readPoints(f, opts)
}

func readPoints(r io.Reader, opts Options) ([]pointset.Record, int, error) {
	reader := newCSVReader(r, opts.Comma)

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	lonCol, ok := findColumn(header, lonAliases)
	if !ok {
		return nil, 0, fmt.Errorf("%w: longitude", ErrMissingColumn)
	}
	latCol, ok := findColumn(header, latAliases)
	if !ok {
		return nil, 0, fmt.Errorf("%w: latitude", ErrMissingColumn)
	}

	valueAliases := opts.ValueAliases
	if opts.ValueColumn != "" {
		valueAliases = append([]string{opts.ValueColumn}, valueAliases...)
	}
	valueCol, ok := findColumn(header, valueAliases)
	if !ok {
		return nil, 0, fmt.Errorf("%w: value (looked for %s)", ErrMissingColumn, strings.Join(valueAliases, ", "))
	}
	stationCol, hasStation := findColumn(header, stationAliases)

	var records []pointset.Record
	skipped := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		rec, ok := parseRow(row, lonCol, latCol, valueCol)
		if !ok {
			skipped++
			continue
		}
		if hasStation && stationCol < len(row) {
			rec.StationID = strings.TrimSpace(row[stationCol])
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func parseRow(row []string, lonCol, latCol, valueCol int) (pointset.Record, bool) {
	need := lonCol
	if latCol > need {
		need = latCol
	}
	if valueCol > need {
		need = valueCol
	}
	if need >= len(row) {
		return pointset.Record{}, false
	}

	lon, err := parseNumber(row[lonCol])
	if err != nil {
		return pointset.Record{}, false
	}
	lat, err := parseNumber(row[latCol])
	if err != nil {
		return pointset.Record{}, false
	}
	value, err := parseNumber(row[valueCol])
	if err != nil {
		return pointset.Record{}, false
	}
	return pointset.Record{Lon: lon, Lat: lat, Value: value}, true
}

func newCSVReader(r io.Reader, comma rune) *csv.Reader {
	reader := csv.NewReader(r)
	if comma != 0 {
		reader.Comma = comma
	}
	reader.TrimLeadingSpace = true
	// Exports occasionally carry ragged rows; row length is checked per
	// field instead.
	reader.FieldsPerRecord = -1
	return reader
}

// findColumn locates the first header cell matching any alias, in alias
// preference order.
func findColumn(header []string, aliases []string) (int, bool) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}
	for _, alias := range aliases {
		want := normalizeHeader(alias)
		for i, h := range normalized {
			if h == want {
				return i, true
			}
		}
	}
	return 0, false
}

// normalizeHeader strips the spelling variation seen across exports:
// case, spaces, underscores, and the BOM spreadsheet tools prepend.
func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "_", "")
}

// parseNumber reads a float, tolerating the comma decimal separator some
// exports use.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return v, nil
	}
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}
