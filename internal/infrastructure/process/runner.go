// Package process runs external commands for the converter and backend adapters.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Command describes one external invocation
type Command struct {
	Name  string
	Args  []string
	Stdin []byte
	Dir   string
	// Timeout bounds the run; zero means the runner default
	Timeout time.Duration
}

// String renders the command line for logs
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the captured output of a finished command
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Runner executes commands. Tests substitute a scripted implementation.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ErrTimeout is returned when a command exceeds its deadline
var ErrTimeout = errors.New("command timed out")

// ExitError reports a non-zero exit status together with stderr
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Command, e.ExitCode, msg)
}

// ExecRunner runs commands through os/exec
type ExecRunner struct {
	defaultTimeout time.Duration
	logger         *zap.Logger
}

// ExecOption configures an ExecRunner
type ExecOption func(*ExecRunner)

// WithDefaultTimeout sets the timeout used when a command has none
func WithDefaultTimeout(d time.Duration) ExecOption {
	return func(r *ExecRunner) {
		r.defaultTimeout = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ExecOption {
	return func(r *ExecRunner) {
		r.logger = logger
	}
}

// NewExecRunner creates a runner backed by os/exec
func NewExecRunner(opts ...ExecOption) *ExecRunner {
	r := &ExecRunner{
		defaultTimeout: 60 * time.Second,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the command and captures its output
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Stdin) > 0 {
		c.Stdin = bytes.NewReader(cmd.Stdin)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return res, fmt.Errorf("%s: %w after %v", cmd.Name, ErrTimeout, timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			r.logger.Debug("command failed",
				zap.String("command", cmd.String()),
				zap.Int("exit_code", res.ExitCode),
				zap.String("stderr", stderr.String()))
			return res, &ExitError{Command: cmd.Name, ExitCode: res.ExitCode, Stderr: stderr.String()}
		}
		return res, fmt.Errorf("failed to run %s: %w", cmd.Name, err)
	}

	r.logger.Debug("command finished",
		zap.String("command", cmd.String()),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// ResolveBinaryPath checks an absolute path or searches PATH
func ResolveBinaryPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}
	return exec.LookPath(path)
}

var _ Runner = (*ExecRunner)(nil)
