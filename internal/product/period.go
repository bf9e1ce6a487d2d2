package product

import (
	"fmt"
	"strings"
	"time"
)

// monthNames holds the Indonesian month names, indexed by time.Month.
var monthNames = [...]string{
	"",
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// dasarianNumerals maps a dasarian index to its conventional numeral.
var dasarianNumerals = map[int]string{1: "I", 2: "II", 3: "III"}

// MonthName returns the Indonesian name of a month, empty when out of range.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m]
}

// Period is the reporting window of one product run.
type Period struct {
	Year  int
	Month time.Month

	// Dasarian is 1, 2 or 3 for dasarian-scale products and ignored for
	// monthly ones.
	Dasarian int
}

// Label renders the period the way map titles spell it: "Januari 2026" for
// monthly products, "Januari II 2026" for dasarian ones.
func (p Period) Label(scale Scale) string {
	parts := []string{MonthName(p.Month)}
	if scale == ScaleDasarian {
		parts = append(parts, dasarianNumerals[p.Dasarian])
	}
	parts = append(parts, fmt.Sprintf("%d", p.Year))
	return strings.Join(compact(parts), " ")
}

// FileName derives the output image name for a product run, all lowercase
// with underscore separators.
func FileName(p Product, period Period) string {
	parts := []string{"peta", string(p.Kind)}
	if string(p.Data) != string(p.Kind) {
		parts = append(parts, string(p.Data))
	}
	parts = append(parts, string(p.Scale))
	for _, part := range strings.Fields(period.Label(p.Scale)) {
		parts = append(parts, strings.ToLower(part))
	}
	return strings.Join(parts, "_") + ".png"
}

func compact(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
