//go:build !linux && !windows

package backend

import (
	"os"
	"os/exec"
	"syscall"
)

func setSysProcAttr(cmd *exec.Cmd) {}

func interruptProcess(p *os.Process) error {
	return p.Signal(syscall.SIGINT)
}
