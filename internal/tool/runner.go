// Package tool wraps the external binaries this system delegates to: yt-dlp
// for retrieval, demucs for separation, ffmpeg/ffprobe for remuxing and
// verification. Every invocation is bounded by a timeout and failures carry
// the tool's stderr verbatim.
package tool

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ToolError wraps an external tool failure with its stderr output.
type ToolError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Tool, stderr)
}

func (e *ToolError) Unwrap() error { return e.Err }

// IsToolError reports whether err came from an external tool invocation.
func IsToolError(err error) bool {
	var te *ToolError
	return errors.As(err, &te)
}

// Runner executes external commands with a shared timeout policy.
type Runner struct {
	Timeout time.Duration
}

func NewRunner(timeout time.Duration) *Runner {
	return &Runner{Timeout: timeout}
}

// Run executes the command and returns its stdout. On any failure —
// including a timeout kill — the error is a *ToolError carrying stderr.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s: %w", r.Timeout, err)
		}
		return "", &ToolError{Tool: name, Stderr: stderr.String(), Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// RunLines executes the command and streams stdout lines to onLine while it
// runs. Used for tools that report progress on stdout.
func (r *Runner) RunLines(ctx context.Context, onLine func(line string), name string, args ...string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return &ToolError{Tool: name, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return &ToolError{Tool: name, Err: err}
	}

	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		onLine(scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s: %w", r.Timeout, err)
		}
		return &ToolError{Tool: name, Stderr: stderr.String(), Err: err}
	}
	return nil
}

func (r *Runner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.Timeout)
}
