// Package mcp provides the benchsweep MCP server, registering the sweep
// tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/benchsweep"
	"github.com/deixis/benchsweep/internal/config"
	"github.com/deixis/benchsweep/internal/report"
	"github.com/deixis/benchsweep/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	// mu guards engine and serialises sweeps: only one target runs at a time.
	mu     sync.Mutex
	engine *workflow.Engine // nil until a config is found
	store  report.Store
	log    *slog.Logger
}

// NewServer creates an MCP server with all benchsweep tools registered.
// eng may be nil when no config was found at startup; the server then
// looks for one in the client's first root, or in the config argument of
// each tool call.
func NewServer(eng *workflow.Engine, store report.Store, opts ...ServerOption) *mcp.Server {
	so := serverOptions{log: slog.Default()}
	for _, o := range opts {
		o(&so)
	}
	h := &handler{
		engine: eng,
		store:  store,
		log:    so.log,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateEngineFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "benchsweep", Version: benchsweep.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "bench_plan",
		Description: "List every variant of the configured matrix in execution order, with the command each one runs.",
	}, h.planHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "bench_sweep",
		Description: `Run the benchmark target once per variant, strictly in order, and report one row per variant.

Each run waits for the ready marker, dwells, interrupts the target and collects its result line,
so a sweep takes at least the configured dwell per variant. Use offset and limit to run part
of the matrix. Results are stored for drill-down via bench_inspect.`,
	}, h.sweepHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "bench_inspect",
		Description: `Drill into a stored sweep from bench_sweep or bench_list.

Without row, returns the sweep's CSV report. With row, returns that variant's command,
status, flattened result and the tail of its output.`,
	}, h.inspectHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "bench_list",
		Description: "List stored sweeps, newest first.",
	}, h.listHandler)

	return s
}

// ServerOption configures the benchsweep MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	log *slog.Logger
}

// WithLogger sets the logger used by tool handlers.
func WithLogger(l *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.log = l
	}
}

// updateEngineFromRoots queries the client for MCP roots and, if the first
// root holds a config, rebuilds the engine from it. This is called during
// session initialization, before any tool calls.
func (h *handler) updateEngineFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	loaded, err := config.Load(u.Path)
	if err != nil {
		if !errors.Is(err, config.ErrNotFound) {
			h.log.Warn("ignoring config from client root", "root", u.Path, "err", err)
		}
		return
	}

	h.mu.Lock()
	h.engine = workflow.New(loaded)
	h.mu.Unlock()
	h.log.Info("using config from client root", "path", loaded.Path)
}

// engineFor returns the engine for a tool call. A non-empty path loads
// that config file for this call only. Callers must hold h.mu.
func (h *handler) engineFor(path string) (*workflow.Engine, error) {
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		return workflow.New(loaded), nil
	}
	if h.engine == nil {
		return nil, fmt.Errorf("no %s found; pass config or start the server inside a configured directory", config.FileName)
	}
	return h.engine, nil
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
