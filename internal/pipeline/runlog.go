package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// runLogHeader is written once, when the history file is created.
var runLogHeader = []string{
	"timestamp", "run_id", "kind", "data", "scale", "region", "period",
	"points", "dropped", "merged", "cells_in_region", "unclassifiable",
	"empty", "duration_ms", "status",
}

// RunEntry is one line of the run history.
type RunEntry struct {
	Time   time.Time
	RunID  string
	Kind   string
	Data   string
	Scale  string
	Region string
	Period string

	Points         int
	Dropped        int
	Merged         int
	CellsInRegion  int
	Unclassifiable int
	Empty          int

	Duration time.Duration
	Status   string
}

// RunLog appends one line per product run to a CSV history file, creating
// the file with a header when it does not exist yet. Appends are serialized,
// so parallel runs may share one log.
type RunLog struct {
	mu   sync.Mutex
	path string
}

// NewRunLog returns a log writing to path. Nothing is touched until the
// first append.
func NewRunLog(path string) *RunLog {
	return &RunLog{path: path}
}

// Append writes one entry.
func (l *RunLog) Append(entry RunEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat run log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(runLogHeader); err != nil {
			return fmt.Errorf("write run log header: %w", err)
		}
	}

	record := []string{
		entry.Time.Format(time.RFC3339),
		entry.RunID,
		entry.Kind,
		entry.Data,
		entry.Scale,
		entry.Region,
		entry.Period,
		strconv.Itoa(entry.Points),
		strconv.Itoa(entry.Dropped),
		strconv.Itoa(entry.Merged),
		strconv.Itoa(entry.CellsInRegion),
		strconv.Itoa(entry.Unclassifiable),
		strconv.Itoa(entry.Empty),
		strconv.FormatInt(entry.Duration.Milliseconds(), 10),
		entry.Status,
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("write run log entry: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush run log: %w", err)
	}
	return nil
}
