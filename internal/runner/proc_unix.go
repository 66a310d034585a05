//go:build unix

package runner

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// interrupt sends SIGINT to the whole process group. The group outlives
// its leader while any member is alive, so this also reaches children of
// a leader that already exited.
func (p *process) interrupt() error {
	return signalGroup(p.pid(), unix.SIGINT)
}

// kill sends SIGKILL to the whole process group.
func (p *process) kill() error {
	return signalGroup(p.pid(), unix.SIGKILL)
}

func signalGroup(pgid int, sig unix.Signal) error {
	err := unix.Kill(-pgid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
