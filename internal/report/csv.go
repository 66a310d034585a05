package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/deixis/benchsweep/internal/result"
)

// ErrNoResults is returned by WriteCSV for a sweep without rows.
var ErrNoResults = errors.New("no results")

// Header returns the CSV header: the axis names followed by the flattened
// result keys of the first row that has a result.
func Header(s *Sweep) []string {
	header := append([]string{}, s.Axes...)
	return append(header, resultKeys(s)...)
}

func resultKeys(s *Sweep) []string {
	for i := range s.Rows {
		if s.Rows[i].Result != nil {
			return s.Rows[i].Flat().Keys()
		}
	}
	return nil
}

// WriteCSV writes one line per row in execution order. Result columns are
// looked up by key: rows without a result, or without one of the header
// keys, get empty cells, and keys absent from the header are dropped.
func WriteCSV(w io.Writer, s *Sweep) error {
	if len(s.Rows) == 0 {
		return ErrNoResults
	}

	cw := csv.NewWriter(w)
	keys := resultKeys(s)
	if err := cw.Write(Header(s)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, r := range s.Rows {
		line := make([]string, 0, len(s.Axes)+len(keys))
		for _, axis := range s.Axes {
			v, _ := r.Variant.Get(axis)
			line = append(line, result.Format(v))
		}
		flat := r.Flat()
		for _, k := range keys {
			v, _ := flat.Get(k)
			line = append(line, result.Format(v))
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("writing row %d: %w", r.Index, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
