// Package workflow drives a benchmark sweep: it plans the variants of the
// configured matrix and runs them one after another, recording a report
// row for each. It is consumed by both the CLI and the MCP server.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/deixis/benchsweep/internal/argv"
	"github.com/deixis/benchsweep/internal/config"
	"github.com/deixis/benchsweep/internal/logging"
	"github.com/deixis/benchsweep/internal/runner"
	"github.com/deixis/benchsweep/internal/sweep"
)

// ProcessRunner runs one benchmark target to completion.
// Implemented by runner.Runner.
type ProcessRunner interface {
	Run(ctx context.Context, argv []string) (*runner.Result, error)
}

// Engine holds shared dependencies for planning and running sweeps.
type Engine struct {
	Config *config.Config
	Runner ProcessRunner
	Log    *slog.Logger
}

// New builds an Engine whose runner is configured from loaded. The
// target's working directory is resolved against the config file.
func New(loaded *config.LoadResult) *Engine {
	cfg := loaded.Config
	dir := loaded.Root
	if cfg.Dir != "" {
		dir = loaded.Resolve(cfg.Dir)
	}
	return &Engine{
		Config: cfg,
		Runner: &runner.Runner{
			Dir:          dir,
			Env:          cfg.Env,
			ReadyMarker:  cfg.ReadyMarker(),
			Dwell:        cfg.Dwell(),
			DrainTimeout: cfg.DrainTimeout(),
			MaxOutput:    cfg.MaxOutputBytes(),
			Log:          logging.New("runner"),
		},
		Log: logging.New("sweep"),
	}
}

// PlannedVariant is a variant together with the command that runs it.
type PlannedVariant struct {
	Index   int           `json:"index"`
	Variant sweep.Variant `json:"variant"`
	Argv    []string      `json:"argv"`
}

// Plan expands the matrix and renders the command of every variant, in
// execution order. A template error for any variant fails the whole plan
// so that a sweep never starts with a command it cannot finish.
func (e *Engine) Plan() ([]PlannedVariant, error) {
	tmpl, err := argv.Compile(e.Config.Command)
	if err != nil {
		return nil, fmt.Errorf("command: %w", err)
	}

	variants := sweep.Expand(e.Config.Matrix)
	plan := make([]PlannedVariant, len(variants))
	for i, v := range variants {
		args, err := tmpl.Expand(v)
		if err != nil {
			return nil, err
		}
		plan[i] = PlannedVariant{Index: i, Variant: v, Argv: args}
	}
	return plan, nil
}

func (e *Engine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}
