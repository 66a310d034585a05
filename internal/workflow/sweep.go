package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/benchsweep/internal/report"
	"github.com/deixis/benchsweep/internal/result"
)

// maxOutputLines is the number of trailing output lines kept per row.
const maxOutputLines = 40

// SweepOptions narrows and observes a sweep.
type SweepOptions struct {
	Offset int // skip the first Offset planned variants
	Limit  int // run at most Limit variants; 0 means all

	// OnRow, if set, is called after each row is recorded.
	OnRow func(row report.Row, planned int)
}

// Sweep runs the planned variants strictly in order, one target at a
// time. Degraded runs (no ready marker, no or malformed result line) are
// recorded as rows without a result and the sweep continues. A launch
// failure or cancellation of ctx stops the sweep: the rows collected so
// far are returned together with the error, and the sweep's Aborted field
// names the cause.
func (e *Engine) Sweep(ctx context.Context, opts SweepOptions) (*report.Sweep, error) {
	plan, err := e.Plan()
	if err != nil {
		return nil, err
	}
	plan = window(plan, opts.Offset, opts.Limit)

	log := e.logger()
	acc := report.NewSweep(e.Config.Matrix.Names(), len(plan))
	log.Info("sweep started", "sweep_id", acc.ID, "variants", len(plan))

	for i, pv := range plan {
		log.Info("running case", "case", i+1, "of", len(plan), "variant", pv.Variant.String())

		acc, err = e.step(ctx, acc, pv)
		if err != nil {
			err = fmt.Errorf("case %d (%s): %w", i+1, pv.Variant, err)
			acc.Finish(err)
			log.Error("sweep aborted", "sweep_id", acc.ID, "completed", len(acc.Rows), "err", err)
			return acc, err
		}
		if opts.OnRow != nil {
			opts.OnRow(acc.Rows[len(acc.Rows)-1], len(plan))
		}
	}

	acc.Finish(nil)
	log.Info("sweep finished", "sweep_id", acc.ID, "rows", len(acc.Rows), "ok", acc.Summary().OK)
	return acc, nil
}

// step runs one variant and appends its row to acc. Only fatal errors are
// returned; in that case acc is returned unchanged.
func (e *Engine) step(ctx context.Context, acc *report.Sweep, pv PlannedVariant) (*report.Sweep, error) {
	res, err := e.Runner.Run(ctx, pv.Argv)
	if err != nil {
		return acc, err
	}

	row := report.Row{
		Variant:   pv.Variant,
		Argv:      pv.Argv,
		RunID:     res.RunID,
		Ready:     res.Ready,
		ExitCode:  res.ExitCode,
		Escalated: res.Escalated,
		Truncated: res.Truncated,
		Duration:  res.Duration,
		Output:    tailLines(res.Output, maxOutputLines),
	}

	v, err := result.Extract(res.Output, e.Config.ResultPrefix())
	switch {
	case err == nil:
		row.Status = report.OK
		row.Result = v
	case errors.Is(err, result.ErrNoResult):
		row.Status = report.NoResult
		row.Detail = err.Error()
		if !res.Ready {
			row.Detail += "; ready marker not seen"
		}
	default:
		row.Status = report.Malformed
		row.Detail = err.Error()
	}

	log := e.logger()
	if row.Status != report.OK {
		log.Warn("no result for case", "run_id", res.RunID, "status", row.Status, "detail", row.Detail, "exit_code", res.ExitCode)
	}
	if res.Escalated {
		log.Warn("target had to be killed", "run_id", res.RunID)
	}
	return acc.Append(row), nil
}

func window(plan []PlannedVariant, offset, limit int) []PlannedVariant {
	if offset > 0 {
		if offset >= len(plan) {
			return nil
		}
		plan = plan[offset:]
	}
	if limit > 0 && limit < len(plan) {
		plan = plan[:limit]
	}
	return plan
}

// tailLines keeps the last n lines of s.
func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.TrimRight(s, "\n")
	}
	return fmt.Sprintf("... (%d earlier lines)\n", len(lines)-n) + strings.Join(lines[len(lines)-n:], "\n")
}
