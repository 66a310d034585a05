package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deixis/benchsweep/internal/config"
	"github.com/deixis/benchsweep/internal/logging"
	"github.com/deixis/benchsweep/internal/report"
	"github.com/deixis/benchsweep/internal/runner"
	"github.com/deixis/benchsweep/internal/sweep"
	"github.com/deixis/benchsweep/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// scriptedRunner prints a result line whose fps is the variant's rd
// argument, except for rd=30 which prints nothing.
type scriptedRunner struct{}

func (scriptedRunner) Run(_ context.Context, argv []string) (*runner.Result, error) {
	rd := strings.TrimPrefix(argv[1], "--rd=")
	out := "loading\n"
	if rd != "30" {
		out += `benchmark: {"fps":{"avg":` + rd + `}}` + "\n"
	}
	return &runner.Result{RunID: "run-" + rd, Output: out, Ready: true}, nil
}

func testEngine() *workflow.Engine {
	return &workflow.Engine{
		Config: &config.Config{
			Command: []string{"game", "--rd={{.rd}}", "--shadows={{.shadows}}"},
			Matrix: sweep.Matrix{
				{Name: "rd", Values: []any{10, 20, 30}},
				{Name: "shadows", Values: []any{true}},
			},
		},
		Runner: scriptedRunner{},
		Log:    logging.Discard(),
	}
}

// setup creates a full benchsweep MCP server + client over in-memory
// transports.
func setup(t *testing.T, eng *workflow.Engine) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	store := report.NewLRUStore(5, report.NewDiskStore(t.TempDir()))
	server := NewServer(eng, store, WithLogger(logging.Discard()))

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// runID extracts the "Run: <id>" line from a bench_sweep result.
func runID(t *testing.T, text string) string {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		if id, ok := strings.CutPrefix(line, "Run: "); ok {
			return id
		}
	}
	t.Fatalf("no Run: line in:\n%s", text)
	return ""
}

// --- bench_plan ---

func TestBenchPlan(t *testing.T) {
	cs := setup(t, testEngine())
	res := callTool(t, cs, "bench_plan", nil)
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	for _, want := range []string{
		"Variants: 3",
		"#0 rd=10 shadows=true",
		"game --rd=30 --shadows=true",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func TestBenchPlan_NoConfig(t *testing.T) {
	cs := setup(t, nil)
	res := callTool(t, cs, "bench_plan", nil)
	if !res.IsError {
		t.Fatalf("expected error without config, got:\n%s", resultText(res))
	}
	if !strings.Contains(resultText(res), config.FileName) {
		t.Errorf("expected config file name in error, got:\n%s", resultText(res))
	}
}

func TestBenchPlan_ConfigArgument(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)
	body := "command: [app, '{{.x}}']\nmatrix:\n  x: [a, b]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cs := setup(t, nil)
	res := callTool(t, cs, "bench_plan", map[string]any{"config": path})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "Variants: 2") || !strings.Contains(text, "app b") {
		t.Errorf("unexpected plan:\n%s", text)
	}
}

// --- bench_sweep ---

func TestBenchSweep(t *testing.T) {
	cs := setup(t, testEngine())
	res := callTool(t, cs, "bench_sweep", nil)
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	for _, want := range []string{
		"Status: DONE",
		"Rows: 3/3, 2 ok",
		"#2 rd=30 shadows=true: no-result",
		"rd,shadows,fps.avg\n10,true,10\n20,true,20\n30,true,\n",
		"bench_inspect",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func TestBenchSweep_Window(t *testing.T) {
	cs := setup(t, testEngine())
	res := callTool(t, cs, "bench_sweep", map[string]any{"offset": 1, "limit": 1})
	text := resultText(res)
	if !strings.Contains(text, "Rows: 1/1, 1 ok") {
		t.Errorf("expected one row, got:\n%s", text)
	}
	if !strings.Contains(text, "#0 rd=20") {
		t.Errorf("expected rd=20 to run, got:\n%s", text)
	}
}

// --- bench_inspect ---

func TestBenchInspect(t *testing.T) {
	cs := setup(t, testEngine())
	id := runID(t, resultText(callTool(t, cs, "bench_sweep", nil)))

	res := callTool(t, cs, "bench_inspect", map[string]any{"run_id": id})
	if text := resultText(res); !strings.Contains(text, "rd,shadows,fps.avg") {
		t.Errorf("expected CSV, got:\n%s", text)
	}

	res = callTool(t, cs, "bench_inspect", map[string]any{"run_id": id, "row": 1})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	for _, want := range []string{
		"Row #1: rd=20 shadows=true",
		"Command: game --rd=20 --shadows=true",
		"fps.avg = 20",
		"    loading",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func TestBenchInspect_BadRow(t *testing.T) {
	cs := setup(t, testEngine())
	id := runID(t, resultText(callTool(t, cs, "bench_sweep", nil)))

	res := callTool(t, cs, "bench_inspect", map[string]any{"run_id": id, "row": 9})
	if !res.IsError {
		t.Errorf("expected error for missing row, got:\n%s", resultText(res))
	}
}

func TestBenchInspect_UnknownRun(t *testing.T) {
	cs := setup(t, testEngine())
	res := callTool(t, cs, "bench_inspect", map[string]any{"run_id": "nope"})
	if !res.IsError {
		t.Errorf("expected error for unknown run, got:\n%s", resultText(res))
	}
}

// --- bench_list ---

func TestBenchList(t *testing.T) {
	cs := setup(t, testEngine())
	if text := resultText(callTool(t, cs, "bench_list", nil)); !strings.Contains(text, "No stored sweeps.") {
		t.Errorf("expected empty list, got:\n%s", text)
	}

	id := runID(t, resultText(callTool(t, cs, "bench_sweep", nil)))
	text := resultText(callTool(t, cs, "bench_list", nil))
	if !strings.Contains(text, "Sweeps (1):") || !strings.Contains(text, id) {
		t.Errorf("expected sweep %s in list, got:\n%s", id, text)
	}
}
