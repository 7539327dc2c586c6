//go:build windows

package backend

import (
	"os"
	"os/exec"
)

func setSysProcAttr(cmd *exec.Cmd) {}

// Windows cannot deliver SIGINT to another process.
func interruptProcess(p *os.Process) error {
	return p.Kill()
}
