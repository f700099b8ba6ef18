// Package batch runs one probe against many targets with bounded
// concurrency, collecting every outcome into a uniform summary.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/retry"
)

// ProbeFunc runs one probe against a single target and always returns a
// result envelope, even on failure.
type ProbeFunc func(ctx context.Context, target string) *envelope.Result

// Options tunes a batch run.
type Options struct {
	// Workers bounds concurrent probes. Defaults to 5.
	Workers int
	// PerTargetTimeout bounds each individual probe. Defaults to 30s.
	PerTargetTimeout time.Duration
	// Retry enables one retry pass for transient network failures.
	Retry bool
	// RetryConfig overrides the retry schedule when Retry is set.
	RetryConfig retry.Config
}

// Summary aggregates a finished batch.
type Summary struct {
	Total       int     `json:"total"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
	Status      string  `json:"status"`
}

// Outcome pairs each target with its result, in input order.
type Outcome struct {
	Target string           `json:"target"`
	Result *envelope.Result `json:"result"`
}

// Split partitions finished outcomes into the parsed rows of successful
// targets and uniform failure rows carrying the error taxonomy. Sweep
// tools expose the two lists side by side rather than one merged slice.
// Both lists are non-nil so the wire shape is stable.
func Split(outcomes []Outcome) (succeeded, failed []map[string]any) {
	succeeded = []map[string]any{}
	failed = []map[string]any{}
	for _, o := range outcomes {
		if o.Result != nil && o.Result.Success {
			row := o.Result.ParsedData
			if row == nil {
				row = map[string]any{}
			}
			succeeded = append(succeeded, row)
			continue
		}
		row := map[string]any{"target": o.Target}
		if o.Result != nil {
			row["error_type"] = o.Result.ErrorType
			row["error_message"] = o.Result.ErrorMessage
		}
		failed = append(failed, row)
	}
	return succeeded, failed
}

// Retryable reports whether a failed envelope represents a transient
// network condition worth retrying. Input and configuration failures
// never are.
func Retryable(res *envelope.Result) bool {
	if res == nil || res.Success {
		return false
	}
	if res.ErrorType != string(envelope.CategoryNetwork) {
		return false
	}
	// Only timeouts and refused/failed connections are transient.
	return res.Code == envelope.CodeTimeout || res.Code == envelope.CodeConnectionFailed
}

// Run probes every target with at most opts.Workers in flight. A probe
// that panics is converted into an execution failure for that target;
// the batch itself never panics and leaks no goroutines. Outcomes are
// returned in the same order as targets.
func Run(ctx context.Context, targets []string, probe ProbeFunc, opts Options) ([]Outcome, Summary) {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.PerTargetTimeout <= 0 {
		opts.PerTargetTimeout = 30 * time.Second
	}
	if opts.RetryConfig.MaxAttempts == 0 {
		opts.RetryConfig = retry.DefaultConfig()
	}

	outcomes := make([]Outcome, len(targets))
	sem := semaphore.NewWeighted(int64(opts.Workers))
	var wg sync.WaitGroup

	for i, target := range targets {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled; record the remainder as timeouts.
			for j := i; j < len(targets); j++ {
				outcomes[j] = Outcome{
					Target: targets[j],
					Result: cancelledResult(targets[j]),
				}
			}
			break
		}
		wg.Add(1)
		go func(idx int, target string) {
			defer wg.Done()
			defer sem.Release(1)
			outcomes[idx] = Outcome{Target: target, Result: runOne(ctx, target, probe, opts)}
		}(i, target)
	}
	wg.Wait()

	return outcomes, summarize(outcomes)
}

func runOne(ctx context.Context, target string, probe ProbeFunc, opts Options) *envelope.Result {
	attempt := func(ctx context.Context) (res *envelope.Result) {
		defer func() {
			if r := recover(); r != nil {
				res = envelope.New("batch").
					Target(target).
					FailureMessage(envelope.CodeCommandFailed, fmt.Sprintf("probe panicked: %v", r))
			}
		}()
		probeCtx, cancel := context.WithTimeout(ctx, opts.PerTargetTimeout)
		defer cancel()
		res = probe(probeCtx, target)
		if res == nil {
			res = envelope.New("batch").
				Target(target).
				FailureMessage(envelope.CodeCommandFailed, "probe returned no result")
		}
		return res
	}

	res := attempt(ctx)
	if opts.Retry && Retryable(res) {
		delay := retry.Backoff(opts.RetryConfig, 2)
		select {
		case <-ctx.Done():
			return res
		case <-time.After(delay):
		}
		res = attempt(ctx)
	}
	return res
}

func cancelledResult(target string) *envelope.Result {
	return envelope.New("batch").
		Target(target).
		Failure(envelope.CodeTimeout, map[string]any{"target": target, "timeout": "0"})
}

func summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.Result != nil && o.Result.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(s.Total) * 100
	}
	switch {
	case s.Total == 0 || s.Succeeded == s.Total:
		s.Status = "success"
	case s.Succeeded > 0:
		s.Status = "partial"
	default:
		s.Status = "error"
	}
	return s
}
