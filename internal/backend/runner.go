package backend

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"os/signal"

	"github.com/yourusername/yle-dl-go/internal/domain"
	"go.uber.org/zap"
)

// Runner executes external downloaders. A keyboard interrupt or a
// cancelled context is forwarded to the child as SIGINT, which lets
// rtmpdump and AdobeHDS.php flush a resumable partial file.
type Runner struct {
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
}

// NewRunner creates a runner whose children write their output to stdout
func NewRunner(stdout io.Writer, logger *zap.Logger) *Runner {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Runner{stdout: stdout, stderr: os.Stderr, logger: logger}
}

// Run starts args[0] with the rest as arguments and waits for it. Exit
// codes follow the rtmpdump convention.
func (r *Runner) Run(ctx context.Context, args []string) domain.Result {
	if len(args) == 0 {
		return domain.ResultFailed
	}

	commandLine := ShellEscapeCommand(args)
	r.logger.Debug("Executing", zap.String("command", commandLine))

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	setSysProcAttr(cmd)

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	if err := cmd.Start(); err != nil {
		r.logger.Error("Failed to execute "+commandLine, zap.Error(err))
		return domain.ResultFailed
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		return exitResult(err)
	case <-interrupts:
	case <-ctx.Done():
	}

	if err := interruptProcess(cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		r.logger.Debug("Failed to interrupt child", zap.Error(err))
	}
	<-done

	return domain.ResultIncomplete
}

func exitResult(err error) domain.Result {
	if err == nil {
		return domain.ResultSuccess
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return domain.ResultFromExitCode(exitErr.ExitCode())
	}
	return domain.ResultFailed
}
