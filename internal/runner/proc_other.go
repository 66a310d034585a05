//go:build !unix && !windows

package runner

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

func (p *process) interrupt() error {
	return p.cmd.Process.Signal(os.Interrupt)
}

func (p *process) kill() error {
	return p.cmd.Process.Kill()
}
