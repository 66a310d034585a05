package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type listParams struct{}

func (h *handler) listHandler(ctx context.Context, req *mcp.CallToolRequest, _ listParams) (*mcp.CallToolResult, any, error) {
	sums, err := h.store.List()
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to list runs: %v", err))
	}
	if len(sums) == 0 {
		return textResult("No stored sweeps.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sweeps (%d):\n", len(sums))
	for _, s := range sums {
		fmt.Fprintf(&b, "  %s\n", s)
	}
	return textResult(b.String())
}
