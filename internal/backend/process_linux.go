//go:build linux

package backend

import (
	"os"
	"os/exec"
	"syscall"
)

// setSysProcAttr makes the kernel terminate the child when yle-dl dies
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Pdeathsig: syscall.SIGTERM,
	}
}

func interruptProcess(p *os.Process) error {
	return p.Signal(syscall.SIGINT)
}
