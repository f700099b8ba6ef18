// Package probe holds the low-level building blocks every diagnostic tool
// composes: external command capture, socket probes, HTTP fetches, TLS
// inspection, platform command selection, and the text parsers for the
// platform tools' output.
package probe

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// CaptureResult is the transcript of a single external command run.
type CaptureResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
	TimedOut bool
}

// ErrTimeout is returned by Run when the command exceeded its deadline.
var ErrTimeout = errors.New("command timed out")

// Run executes argv under a total timeout, capturing both streams. Output
// is decoded as UTF-8 with invalid bytes replaced, and optionally truncated
// to maxLines lines (0 = unlimited). The process is killed on timeout.
func Run(ctx context.Context, timeout time.Duration, maxLines int, argv ...string) (CaptureResult, error) {
	if len(argv) == 0 {
		return CaptureResult{}, errors.New("empty argv")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CaptureResult{
		Stdout:  sanitizeUTF8(truncateLines(stdout.String(), maxLines)),
		Stderr:  sanitizeUTF8(truncateLines(stderr.String(), maxLines)),
		Elapsed: time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
		return res, ErrTimeout
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		// A nonzero exit is part of the transcript, not a Go-level error.
		err = nil
	default:
		res.ExitCode = -1
		return res, err
	}
	return res, nil
}

func truncateLines(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "\n") + "\n[output truncated]"
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

// BinaryPath reports whether the named binary is on PATH and where.
func BinaryPath(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}
