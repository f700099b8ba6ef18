// Package retry provides bounded retry with exponential backoff for probe
// operations. Transient network failures (timeouts, refused connections)
// are retried; anything wrapped in Permanent stops immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Config controls the retry schedule.
type Config struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration

	// Factor multiplies the delay after each failed attempt.
	Factor float64

	// Jitter randomizes each delay in [0.5, 1.5) of its nominal value to
	// avoid synchronized retries across a sweep.
	Jitter bool
}

// DefaultConfig matches the probe sweeps' needs: one retry after a short
// pause, doubling thereafter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  2,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Factor:       2.0,
		Jitter:       false,
	}
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks an error as non-retryable. Do returns it (unwrapped)
// without consuming further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do runs fn until it succeeds, exhausts cfg.MaxAttempts, returns a
// Permanent error, or ctx is cancelled. The returned error is the last
// failure observed.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	_, err := DoWithValue(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoWithValue is Do for functions that produce a value.
func DoWithValue[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Factor <= 0 {
		cfg.Factor = 2.0
	}

	var lastErr error
	delay := cfg.InitialDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}

		var p *permanentError
		if errors.As(err, &p) {
			return zero, p.err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		if cfg.MaxDelay > 0 && wait > cfg.MaxDelay {
			wait = cfg.MaxDelay
		}
		if cfg.Jitter && wait > 0 {
			wait = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}

		select {
		case <-ctx.Done():
			return zero, lastErr
		case <-time.After(wait):
		}
		delay = time.Duration(float64(delay) * cfg.Factor)
	}

	return zero, fmt.Errorf("after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// Backoff returns the nominal delay before the given attempt (1-based)
// under cfg, without jitter. Exposed for schedule inspection in sweeps.
func Backoff(cfg Config, attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := cfg.InitialDelay
	for i := 2; i < attempt; i++ {
		d = time.Duration(float64(d) * cfg.Factor)
	}
	if cfg.MaxDelay > 0 && d > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return d
}
