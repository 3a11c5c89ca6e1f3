// Package invoker runs external command lines and captures their output.
// It exists as a fallback path for managed-service operations that have no
// usable native API call yet.
package invoker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"hios/internal/domain"
)

// Compile-time check: ShellRunner implements the command runner capability.
var _ domain.CommandRunner = (*ShellRunner)(nil)

// ShellRunner executes a command line through `bash -c`, blocking until the
// process terminates. It implements domain.CommandRunner.
type ShellRunner struct {
	logger *slog.Logger

	// attempts/backoff form a small bounded-retry policy. attempts == 1
	// disables retries, which is the default.
	attempts int
	backoff  time.Duration
}

// Option configures a ShellRunner.
type Option func(*ShellRunner)

// WithRetry enables bounded retries with a fixed backoff between attempts.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(r *ShellRunner) {
		if attempts > 0 {
			r.attempts = attempts
		}
		r.backoff = backoff
	}
}

// NewShellRunner creates a runner that logs through the given logger.
func NewShellRunner(logger *slog.Logger, opts ...Option) *ShellRunner {
	r := &ShellRunner{logger: logger, attempts: 1}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the command line and returns its trimmed stdout. It fails if
// the process cannot start, its output cannot be read, or it exits non-zero;
// the exit code is embedded in the error.
func (r *ShellRunner) Run(ctx context.Context, command string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		out, err := r.runOnce(ctx, command)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt < r.attempts {
			r.logger.Warn("command failed, retrying", "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(r.backoff):
			}
		}
	}
	return "", lastErr
}

func (r *ShellRunner) runOnce(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "bash", "-c", command)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("command exited with code %d: %s", exitErr.ExitCode(), command)
		}
		return "", fmt.Errorf("start command %q: %w", command, err)
	}

	return trimTrailingNewline(stdout.String()), nil
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
