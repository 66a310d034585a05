// Package report accumulates the rows of a benchmark sweep, exports them
// as CSV and persists finished sweeps for later inspection.
package report

import (
	"fmt"
	"time"

	"github.com/deixis/benchsweep/internal/result"
	"github.com/deixis/benchsweep/internal/sweep"
	"github.com/google/uuid"
)

// Status classifies the result of one row.
type Status string

const (
	// OK means a result line was found and decoded.
	OK Status = "ok"
	// NoResult means the target printed no result line.
	NoResult Status = "no-result"
	// Malformed means the first result line did not decode.
	Malformed Status = "malformed"
)

// Store persists and retrieves sweeps.
type Store interface {
	Save(s *Sweep) error
	Load(id string) (*Sweep, error)
	List() ([]Summary, error)
}

// Row is one attempted variant. Result is nil unless Status is OK.
type Row struct {
	Index     int           `json:"index"`
	Variant   sweep.Variant `json:"variant"`
	Argv      []string      `json:"argv"`
	RunID     string        `json:"run_id"`
	Status    Status        `json:"status"`
	Detail    string        `json:"detail,omitempty"`
	Result    *result.Value `json:"result"`
	Ready     bool          `json:"ready"`
	ExitCode  int           `json:"exit_code"`
	Escalated bool          `json:"escalated,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	Duration  time.Duration `json:"duration"`
	Output    string        `json:"output,omitempty"`
}

// Flat returns the row's flattened result; empty when there is none.
func (r *Row) Flat() result.Flat {
	return result.Flatten(r.Result, "")
}

// Sweep is the ordered, append-only record of one sweep. Rows appear in
// execution order and there is one per attempted variant.
type Sweep struct {
	ID         string    `json:"id"`
	Axes       []string  `json:"axes"`
	Planned    int       `json:"planned"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Aborted    string    `json:"aborted,omitempty"` // fatal error that stopped the sweep
	Rows       []Row     `json:"rows"`
}

// NewSweep starts an empty sweep over axes with planned variants.
func NewSweep(axes []string, planned int) *Sweep {
	return &Sweep{
		ID:        uuid.New().String(),
		Axes:      axes,
		Planned:   planned,
		StartedAt: time.Now().UTC(),
		Rows:      []Row{},
	}
}

// Append adds r as the next row, assigning its index.
func (s *Sweep) Append(r Row) *Sweep {
	r.Index = len(s.Rows)
	s.Rows = append(s.Rows, r)
	return s
}

// Row returns row i.
func (s *Sweep) Row(i int) (*Row, error) {
	if i < 0 || i >= len(s.Rows) {
		return nil, fmt.Errorf("sweep %s has no row %d (%d rows)", s.ID, i, len(s.Rows))
	}
	return &s.Rows[i], nil
}

// Finish stamps the end time and, if cause is non-nil, the abort reason.
func (s *Sweep) Finish(cause error) {
	s.FinishedAt = time.Now().UTC()
	if cause != nil {
		s.Aborted = cause.Error()
	}
}

// Summary is a one-line description of a stored sweep.
type Summary struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Planned   int       `json:"planned"`
	Rows      int       `json:"rows"`
	OK        int       `json:"ok"`
	Aborted   string    `json:"aborted,omitempty"`
}

// Summary counts the sweep's rows.
func (s *Sweep) Summary() Summary {
	sum := Summary{
		ID:        s.ID,
		StartedAt: s.StartedAt,
		Planned:   s.Planned,
		Rows:      len(s.Rows),
		Aborted:   s.Aborted,
	}
	for _, r := range s.Rows {
		if r.Status == OK {
			sum.OK++
		}
	}
	return sum
}

func (s Summary) String() string {
	line := fmt.Sprintf("%s  %s  %d/%d rows, %d ok",
		s.ID, s.StartedAt.Local().Format(time.DateTime), s.Rows, s.Planned, s.OK)
	if s.Aborted != "" {
		line += "  (aborted: " + s.Aborted + ")"
	}
	return line
}
