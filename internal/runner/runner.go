// Package runner launches one benchmark target, waits for it to report
// readiness, holds it for a measurement window and shuts it down,
// returning everything it printed after becoming ready.
//
// Shutdown is two-tiered: the process group is first interrupted and
// waited for, then the output pipe is drained with a short bound. If the
// pipe is still open when the bound elapses, the whole group is killed and
// the drain continues until the pipe closes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrLaunch wraps failures to start the target. It is fatal to a sweep:
// a missing binary or broken build affects every later variant as well.
var ErrLaunch = errors.New("launching target")

// Default values for the shutdown schedule.
const (
	DefaultDwell        = 10 * time.Second
	DefaultDrainTimeout = 2 * time.Second
	DefaultMaxOutput    = 1 << 20 // 1 MB
)

// Runner runs benchmark targets one at a time.
type Runner struct {
	Dir          string   // working directory; empty means the current one
	Env          []string // extra KEY=VALUE pairs appended to os.Environ
	ReadyMarker  string
	Dwell        time.Duration
	DrainTimeout time.Duration
	MaxOutput    int // bytes
	Log          *slog.Logger
}

// Result is the outcome of one run.
type Result struct {
	RunID     string
	Output    string        // text printed after the ready marker
	Ready     bool          // ready marker was observed
	Discarded int           // lines consumed while waiting for readiness
	ExitCode  int           // -1 when terminated by a signal
	Escalated bool          // drain timed out and the group was killed
	Truncated bool          // Output exceeded MaxOutput
	Duration  time.Duration // launch to pipe close
}

// Run executes argv and blocks until the target has exited and its
// output pipe is closed. Only a launch failure (wrapping ErrLaunch) or
// cancellation of ctx is returned as an error; ctx cancellation kills the
// process group before returning.
//
// Neither the readiness wait nor the wait after the interrupt is bounded:
// a target that never prints the marker and never exits, or that ignores
// the interrupt, blocks Run until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, argv []string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty argv", ErrLaunch)
	}
	log := r.logger()
	runID := uuid.New().String()
	start := time.Now()

	p, err := startProcess(argv, r.Dir, r.Env)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLaunch, argv[0], err)
	}
	defer p.release()
	log.Debug("target started", "run_id", runID, "pid", p.pid(), "argv", argv)

	c := newCapture(r.ReadyMarker, r.maxOutput())
	go c.pump(p.out)

	// Readiness: marker seen, or EOF with the process gone.
	select {
	case <-c.ready:
		log.Debug("target ready", "run_id", runID, "after", time.Since(start))
	case <-c.done:
		select {
		case <-p.exited:
		case <-ctx.Done():
			return nil, r.abort(p, ctx.Err())
		}
		log.Debug("target exited before ready marker", "run_id", runID)
	case <-ctx.Done():
		return nil, r.abort(p, ctx.Err())
	}

	// Measurement dwell, kept even when the target is already gone.
	dwell := time.NewTimer(r.Dwell)
	select {
	case <-dwell.C:
	case <-ctx.Done():
		dwell.Stop()
		return nil, r.abort(p, ctx.Err())
	}

	if err := p.interrupt(); err != nil {
		log.Debug("interrupt", "run_id", runID, "err", err)
	}
	select {
	case <-p.exited:
	case <-ctx.Done():
		return nil, r.abort(p, ctx.Err())
	}

	escalated := false
	drain := time.NewTimer(r.drainTimeout())
	select {
	case <-c.done:
		drain.Stop()
	case <-drain.C:
		escalated = true
		log.Warn("output still open after interrupt, killing process group", "run_id", runID, "timeout", r.drainTimeout())
		if err := p.kill(); err != nil {
			log.Debug("kill", "run_id", runID, "err", err)
		}
		select {
		case <-c.done:
		case <-ctx.Done():
			return nil, r.abort(p, ctx.Err())
		}
	case <-ctx.Done():
		drain.Stop()
		return nil, r.abort(p, ctx.Err())
	}

	if c.err != nil {
		log.Warn("reading target output", "run_id", runID, "err", c.err)
	}

	output, truncated := c.output()
	return &Result{
		RunID:     runID,
		Output:    output,
		Ready:     c.sawMarker(),
		Discarded: c.discarded,
		ExitCode:  p.exitCode(),
		Escalated: escalated,
		Truncated: truncated,
		Duration:  time.Since(start),
	}, nil
}

// abort kills the group and waits for the leader so that the deferred
// release does not leave anything behind.
func (r *Runner) abort(p *process, cause error) error {
	if err := p.kill(); err != nil {
		r.logger().Debug("kill on abort", "err", err)
	}
	<-p.exited
	return cause
}

func (r *Runner) drainTimeout() time.Duration {
	if r.DrainTimeout > 0 {
		return r.DrainTimeout
	}
	return DefaultDrainTimeout
}

func (r *Runner) maxOutput() int {
	if r.MaxOutput > 0 {
		return r.MaxOutput
	}
	return DefaultMaxOutput
}

func (r *Runner) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
