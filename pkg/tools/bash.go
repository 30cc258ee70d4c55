package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillrun/pkg/logger"
	"github.com/jingkaihe/skillrun/pkg/osutil"
	llmtypes "github.com/jingkaihe/skillrun/pkg/types/llm"
	tooltypes "github.com/jingkaihe/skillrun/pkg/types/tools"
)

const (
	defaultShell = "bash"

	// waitDelay bounds how long Wait blocks on output pipes held open by
	// background children once the shell itself has exited or been killed.
	waitDelay = time.Second
)

// BashExecutor runs commands through a local shell. It is not sandboxed:
// commands run with the privileges, working directory and environment of the
// current process.
type BashExecutor struct {
	shell   string
	timeout time.Duration
	dir     string
}

// BashOption configures a BashExecutor
type BashOption func(*BashExecutor)

// WithShell sets the shell binary invoked as `<shell> -c <command>`
func WithShell(shell string) BashOption {
	return func(b *BashExecutor) {
		if shell != "" {
			b.shell = shell
		}
	}
}

// WithTimeout bounds each command; zero disables the timeout
func WithTimeout(timeout time.Duration) BashOption {
	return func(b *BashExecutor) {
		b.timeout = timeout
	}
}

// WithWorkingDir runs commands in dir instead of the process working directory
func WithWorkingDir(dir string) BashOption {
	return func(b *BashExecutor) {
		b.dir = dir
	}
}

// NewBashExecutor creates an executor using bash with no timeout by default
func NewBashExecutor(opts ...BashOption) *BashExecutor {
	b := &BashExecutor{shell: defaultShell}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewBashExecutorFromConfig creates an executor from the tool section of the config
func NewBashExecutorFromConfig(config llmtypes.ToolConfig) *BashExecutor {
	return NewBashExecutor(
		WithShell(config.Shell),
		WithTimeout(config.Timeout),
		WithWorkingDir(config.WorkingDir),
	)
}

// Shell returns the configured shell binary
func (b *BashExecutor) Shell() string {
	return b.shell
}

// Execute runs command and maps its outcome onto a ToolResult. Exit status 0
// yields stdout; any other exit status yields stderr flagged as an error.
func (b *BashExecutor) Execute(ctx context.Context, command string) tooltypes.ToolResult {
	runCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, b.shell, "-c", command)
	cmd.Dir = b.dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	osutil.SetProcessGroup(cmd)
	osutil.SetProcessGroupKill(cmd)

	err := cmd.Run()
	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		logger.G(ctx).Debug("command left background processes holding its output open")
		err = nil
	}
	if err != nil {
		if b.timeout > 0 && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return tooltypes.ToolResult{
				Output:  fmt.Sprintf("Command timed out after %s", b.timeout),
				IsError: true,
			}
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			logger.G(ctx).WithField("exit_code", exitErr.ExitCode()).Debug("command exited with non-zero status")
			return tooltypes.ToolResult{
				Output:  stderr.String(),
				IsError: true,
			}
		}

		return tooltypes.ToolResult{
			Output:  fmt.Sprintf("Error executing command: %v", mechanismError(ctx, err)),
			IsError: true,
		}
	}

	return tooltypes.ToolResult{Output: stdout.String()}
}

func mechanismError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
