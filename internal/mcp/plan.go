package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/benchsweep/internal/sweep"
	"github.com/deixis/benchsweep/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type planParams struct {
	Config string `json:"config,omitempty" jsonschema:"Path to a .benchsweep.yaml to use for this call. Defaults to the config found at startup or in the client's root."`
}

func (h *handler) planHandler(ctx context.Context, req *mcp.CallToolRequest, params planParams) (*mcp.CallToolResult, any, error) {
	h.mu.Lock()
	eng, err := h.engineFor(params.Config)
	h.mu.Unlock()
	if err != nil {
		return errorResult(err.Error())
	}

	plan, err := eng.Plan()
	if err != nil {
		return errorResult(fmt.Sprintf("plan failed: %v", err))
	}
	return textResult(formatPlan(eng.Config.Matrix, plan))
}

func formatPlan(m sweep.Matrix, plan []workflow.PlannedVariant) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Variants: %d\n", len(plan))
	fmt.Fprintln(&b, "Axes (first varies fastest):")
	for _, a := range m {
		fmt.Fprintf(&b, "  %s: %d values\n", a.Name, len(a.Values))
	}
	fmt.Fprintln(&b)

	for _, pv := range plan {
		fmt.Fprintf(&b, "#%d %s\n", pv.Index, pv.Variant)
		fmt.Fprintf(&b, "    %s\n", strings.Join(pv.Argv, " "))
	}
	return b.String()
}
