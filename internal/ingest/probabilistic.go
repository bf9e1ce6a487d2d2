package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rainmap/rainmap/internal/pointset"
)

// Thresholds lists the probabilistic forecast columns in export order: the
// probability of staying below 50, 100 and 150 mm, then of exceeding them.
var Thresholds = []string{"b50", "b100", "b150", "a50", "a100", "a150"}

// ThresholdLabel spells a threshold key the way titles and legends do.
func ThresholdLabel(key string) string {
	if len(key) < 2 {
		return key
	}
	switch key[0] {
	case 'b':
		return "< " + key[1:] + " mm"
	case 'a':
		return "> " + key[1:] + " mm"
	default:
		return key
	}
}

// ReadProbabilistic parses a probabilistic export: one row per station, one
// probability column per threshold. It returns the point records grouped by
// threshold key, plus the skipped-row count. Thresholds missing from the
// header are simply absent from the result; a file with none of them fails
// with ErrMissingColumn.
func ReadProbabilistic(path string, opts Options) (map[string][]pointset.Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open probabilistic file: %w", err)
	}
	defer f.Close()
	return readProbabilistic(f, opts)
}

func readProbabilistic(r io.Reader, opts Options) (map[string][]pointset.Record, int, error) {
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

	columns := make(map[string]int)
	for _, key := range Thresholds {
		if col, ok := findColumn(header, []string{key}); ok {
			columns[key] = col
		}
	}
	if len(columns) == 0 {
		return nil, 0, fmt.Errorf("%w: no threshold columns (%s)", ErrMissingColumn, strings.Join(Thresholds, ", "))
	}

	out := make(map[string][]pointset.Record, len(columns))
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
		if lonCol >= len(row) || latCol >= len(row) {
			skipped++
			continue
		}

		lon, lonErr := parseNumber(row[lonCol])
		lat, latErr := parseNumber(row[latCol])
		if lonErr != nil || latErr != nil {
			skipped++
			continue
		}

		for key, col := range columns {
			if col >= len(row) {
				continue
			}
			value, err := parseNumber(row[col])
			if err != nil {
				continue
			}
			out[key] = append(out[key], pointset.Record{Lon: lon, Lat: lat, Value: value})
		}
	}
	return out, skipped, nil
}
