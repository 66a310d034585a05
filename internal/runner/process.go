package runner

import (
	"errors"
	"os"
	"os/exec"
)

// process owns one launched target: its command, the read end of the
// merged output pipe and the exit notification. It is created by
// startProcess and released exactly once by the Run that created it.
type process struct {
	cmd     *exec.Cmd
	out     *os.File
	exited  chan struct{}
	waitErr error
}

func startProcess(argv []string, dir string, env []string) (*process, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	setProcessGroup(cmd)

	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	// The child holds its own copy; keeping ours would prevent EOF.
	w.Close()

	p := &process{cmd: cmd, out: r, exited: make(chan struct{})}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()
	return p, nil
}

func (p *process) pid() int { return p.cmd.Process.Pid }

// exitCode is valid once exited is closed.
func (p *process) exitCode() int {
	if p.waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(p.waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// release guarantees the leader has been reaped and closes the pipe.
// Closing the read end unblocks a pump still waiting on a descendant that
// escaped the group.
func (p *process) release() {
	select {
	case <-p.exited:
	default:
		_ = p.kill()
		<-p.exited
	}
	_ = p.out.Close()
}
