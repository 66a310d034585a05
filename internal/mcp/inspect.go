package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/benchsweep/internal/report"
	"github.com/deixis/benchsweep/internal/result"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a bench_sweep or bench_list result"`
	Row   *int   `json:"row,omitempty" jsonschema:"Row index to show in detail. Omit to get the sweep's CSV report."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	s, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	if params.Row == nil {
		var b strings.Builder
		fmt.Fprintf(&b, "Run: %s\n\n", s.Summary())
		if err := report.WriteCSV(&b, s); err != nil {
			fmt.Fprintln(&b, err)
		}
		return textResult(b.String())
	}

	row, err := s.Row(*params.Row)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(formatRow(s.ID, row))
}

func formatRow(runID string, r *report.Row) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", runID)
	fmt.Fprintf(&b, "Row #%d: %s\n", r.Index, r.Variant)
	fmt.Fprintf(&b, "Command: %s\n", strings.Join(r.Argv, " "))
	fmt.Fprintf(&b, "Status: %s\n", r.Status)
	if r.Detail != "" {
		fmt.Fprintf(&b, "Detail: %s\n", r.Detail)
	}
	fmt.Fprintf(&b, "Ready: %t, exit code: %d, duration: %s\n", r.Ready, r.ExitCode, r.Duration)
	if r.Escalated {
		fmt.Fprintln(&b, "Target ignored the interrupt and was killed.")
	}
	if r.Truncated {
		fmt.Fprintln(&b, "Output was truncated.")
	}

	if flat := r.Flat(); len(flat) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Result:")
		for _, e := range flat {
			fmt.Fprintf(&b, "  %s = %s\n", e.Key, result.Format(e.Value))
		}
	}

	if r.Output != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Output:")
		for _, line := range strings.Split(r.Output, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	return b.String()
}
