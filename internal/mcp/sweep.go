package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/benchsweep/internal/report"
	"github.com/deixis/benchsweep/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type sweepParams struct {
	Config string `json:"config,omitempty" jsonschema:"Path to a .benchsweep.yaml to use for this call. Defaults to the config found at startup or in the client's root."`
	Offset int    `json:"offset,omitempty" jsonschema:"Skip this many variants of the plan."`
	Limit  int    `json:"limit,omitempty" jsonschema:"Run at most this many variants. 0 runs all remaining variants."`
}

func (h *handler) sweepHandler(ctx context.Context, req *mcp.CallToolRequest, params sweepParams) (*mcp.CallToolResult, any, error) {
	if params.Offset < 0 || params.Limit < 0 {
		return errorResult("offset and limit must not be negative")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	eng, err := h.engineFor(params.Config)
	if err != nil {
		return errorResult(err.Error())
	}

	s, err := eng.Sweep(ctx, workflow.SweepOptions{Offset: params.Offset, Limit: params.Limit})
	if s == nil {
		return errorResult(fmt.Sprintf("sweep failed: %v", err))
	}

	// Save partial sweeps too so the rows that did run can be inspected.
	if serr := h.store.Save(s); serr != nil {
		h.log.Warn("saving sweep", "sweep_id", s.ID, "err", serr)
	}

	return textResult(formatSweep(s))
}

func formatSweep(s *report.Sweep) string {
	var b strings.Builder

	sum := s.Summary()
	if s.Aborted != "" {
		fmt.Fprintln(&b, "Status: ABORTED")
	} else {
		fmt.Fprintln(&b, "Status: DONE")
	}
	fmt.Fprintf(&b, "Run: %s\n", s.ID)
	fmt.Fprintf(&b, "Rows: %d/%d, %d ok\n", sum.Rows, sum.Planned, sum.OK)
	if s.Aborted != "" {
		fmt.Fprintf(&b, "Aborted: %s\n", s.Aborted)
	}
	fmt.Fprintln(&b)

	if len(s.Rows) == 0 {
		fmt.Fprintln(&b, "no results")
		return b.String()
	}

	fmt.Fprintln(&b, "Rows:")
	for _, r := range s.Rows {
		line := fmt.Sprintf("  #%d %s: %s", r.Index, r.Variant, r.Status)
		if r.Detail != "" {
			line += " (" + r.Detail + ")"
		}
		if r.Escalated {
			line += " [killed]"
		}
		fmt.Fprintln(&b, line)
	}
	fmt.Fprintln(&b)

	var csv strings.Builder
	if err := report.WriteCSV(&csv, s); err != nil && !errors.Is(err, report.ErrNoResults) {
		fmt.Fprintf(&b, "CSV: %v\n\n", err)
	} else {
		fmt.Fprintln(&b, "CSV:")
		fmt.Fprint(&b, csv.String())
		fmt.Fprintln(&b)
	}

	fmt.Fprintf(&b, "Inspect with bench_inspect(run_id=%q, row=<index>).\n", s.ID)
	return b.String()
}
