// Package dataset prepares training data for the text classifier.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/serenity-health/risk-api/pkg/logging"
)

// Stats summarizes one combine run.
type Stats struct {
	Files      int
	RowsRead   int
	Dropped    int
	Duplicates int
	Written    int
}

// Combiner merges labeled CSV datasets into a single deduplicated file. Each
// input must carry "text" and "status" columns; everything else is ignored.
type Combiner struct {
	logger *logging.Logger

	// MinTextLength drops rows whose text is shorter after trimming.
	MinTextLength int
}

// NewCombiner creates a combiner with the default minimum text length.
func NewCombiner(logger *logging.Logger) *Combiner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Combiner{logger: logger, MinTextLength: 3}
}

// Combine reads every *.csv under dir except outputName and writes the merged
// rows to outputName inside dir.
func (c *Combiner) Combine(dir, outputName string) (*Stats, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("glob datasets: %w", err)
	}
	sort.Strings(paths)

	stats := &Stats{}
	seen := map[string]struct{}{}
	var rows [][]string

	for _, path := range paths {
		if filepath.Base(path) == outputName {
			continue
		}
		stats.Files++

		fileRows, err := c.readFile(path, seen, stats)
		if err != nil {
			return nil, err
		}
		rows = append(rows, fileRows...)
		c.logger.Info("dataset read", "file", filepath.Base(path), "rows_kept", len(fileRows))
	}

	if stats.Files == 0 {
		return nil, fmt.Errorf("no CSV datasets found in %s", dir)
	}

	if err := c.writeOutput(filepath.Join(dir, outputName), rows); err != nil {
		return nil, err
	}
	stats.Written = len(rows)

	c.logger.Info("datasets combined",
		"files", stats.Files,
		"rows_read", stats.RowsRead,
		"dropped", stats.Dropped,
		"duplicates", stats.Duplicates,
		"written", stats.Written,
	)
	return stats, nil
}

func (c *Combiner) readFile(path string, seen map[string]struct{}, stats *Stats) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	textIdx, statusIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "text":
			textIdx = i
		case "status":
			statusIdx = i
		}
	}
	if textIdx < 0 || statusIdx < 0 {
		return nil, fmt.Errorf("dataset %s missing text/status columns", path)
	}

	var out [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		stats.RowsRead++

		if textIdx >= len(record) || statusIdx >= len(record) {
			stats.Dropped++
			continue
		}
		text := strings.TrimSpace(record[textIdx])
		status := strings.TrimSpace(record[statusIdx])
		if len(text) < c.MinTextLength || status == "" {
			stats.Dropped++
			continue
		}

		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, []string{text, status})
	}
	return out, nil
}

func (c *Combiner) writeOutput(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"text", "status"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
