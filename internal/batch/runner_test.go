package batch

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/retry"
)

func okProbe(ctx context.Context, target string) *envelope.Result {
	return envelope.New("test").Target(target).Success(map[string]any{"target": target})
}

func failProbe(code envelope.Code) ProbeFunc {
	return func(ctx context.Context, target string) *envelope.Result {
		return envelope.New("test").Target(target).Failure(code, map[string]any{"target": target})
	}
}

func TestRunPreservesOrder(t *testing.T) {
	targets := []string{"a", "b", "c", "d", "e"}
	outcomes, summary := Run(context.Background(), targets, okProbe, Options{Workers: 3})
	if len(outcomes) != 5 {
		t.Fatalf("outcomes = %d, want 5", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Target != targets[i] {
			t.Errorf("outcome %d target = %q, want %q", i, o.Target, targets[i])
		}
		if !o.Result.Success {
			t.Errorf("outcome %d failed: %v", i, o.Result.ErrorMessage)
		}
	}
	if summary.Status != "success" || summary.Succeeded != 5 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var inFlight, peak int64
	var mu sync.Mutex
	probe := func(ctx context.Context, target string) *envelope.Result {
		cur := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if cur > peak {
			peak = cur
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return envelope.New("test").Target(target).Success(nil)
	}
	targets := make([]string, 12)
	for i := range targets {
		targets[i] = "t"
	}
	Run(context.Background(), targets, probe, Options{Workers: 3})
	mu.Lock()
	defer mu.Unlock()
	if peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
}

func TestRunPartialSummary(t *testing.T) {
	calls := 0
	probe := func(ctx context.Context, target string) *envelope.Result {
		calls++
		if target == "bad" {
			return envelope.New("test").Target(target).Failure(envelope.CodeInvalidTarget, nil)
		}
		return envelope.New("test").Target(target).Success(nil)
	}
	_, summary := Run(context.Background(), []string{"good", "bad"}, probe, Options{Workers: 1})
	if summary.Status != "partial" {
		t.Errorf("status = %q, want partial", summary.Status)
	}
	if summary.SuccessRate != 50 {
		t.Errorf("rate = %v, want 50", summary.SuccessRate)
	}
}

func TestRunAllFailedSummary(t *testing.T) {
	_, summary := Run(context.Background(), []string{"x", "y"}, failProbe(envelope.CodeInvalidTarget), Options{Workers: 2})
	if summary.Status != "error" || summary.Failed != 2 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunRecoversPanics(t *testing.T) {
	probe := func(ctx context.Context, target string) *envelope.Result {
		panic("boom")
	}
	outcomes, summary := Run(context.Background(), []string{"x"}, probe, Options{Workers: 1})
	if summary.Status != "error" {
		t.Fatalf("summary = %+v", summary)
	}
	res := outcomes[0].Result
	if res.Success || res.ErrorType != "execution" {
		t.Errorf("panic result = %+v", res)
	}
	if !strings.Contains(res.ErrorMessage, "boom") {
		t.Errorf("panic value lost: %q", res.ErrorMessage)
	}
}

func TestRetryOnTransientNetworkFailure(t *testing.T) {
	var calls int64
	probe := func(ctx context.Context, target string) *envelope.Result {
		if atomic.AddInt64(&calls, 1) == 1 {
			return envelope.New("test").Target(target).Failure(envelope.CodeTimeout, nil)
		}
		return envelope.New("test").Target(target).Success(nil)
	}
	outcomes, _ := Run(context.Background(), []string{"x"}, probe, Options{
		Workers: 1,
		Retry:   true,
		RetryConfig: retry.Config{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			Factor:       2,
		},
	})
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if !outcomes[0].Result.Success {
		t.Errorf("retry did not recover: %+v", outcomes[0].Result)
	}
}

func TestNoRetryOnInputFailure(t *testing.T) {
	var calls int64
	probe := func(ctx context.Context, target string) *envelope.Result {
		atomic.AddInt64(&calls, 1)
		return envelope.New("test").Target(target).Failure(envelope.CodeInvalidTarget, nil)
	}
	Run(context.Background(), []string{"x"}, probe, Options{Workers: 1, Retry: true})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (input failures are not transient)", calls)
	}
}

func TestRetryable(t *testing.T) {
	timeout := envelope.New("t").Failure(envelope.CodeTimeout, nil)
	refused := envelope.New("t").Failure(envelope.CodeConnectionFailed, nil)
	dns := envelope.New("t").Failure(envelope.CodeDNSResolution, nil)
	input := envelope.New("t").Failure(envelope.CodeInvalidTarget, nil)
	ok := envelope.New("t").Success(nil)

	if !Retryable(timeout) || !Retryable(refused) {
		t.Error("transient network codes must be retryable")
	}
	if Retryable(dns) {
		t.Error("dns_resolution is not retryable")
	}
	if Retryable(input) || Retryable(ok) || Retryable(nil) {
		t.Error("non-network and successful results must not be retryable")
	}
}

func TestRunEmptyTargets(t *testing.T) {
	outcomes, summary := Run(context.Background(), nil, okProbe, Options{})
	if len(outcomes) != 0 {
		t.Errorf("outcomes = %d, want 0", len(outcomes))
	}
	if summary.Status != "success" || summary.Total != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunCancelledContextMarksRemainder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, summary := Run(ctx, []string{"a", "b"}, okProbe, Options{Workers: 1})
	if summary.Failed != 2 {
		t.Fatalf("failed = %d, want 2", summary.Failed)
	}
	for _, o := range outcomes {
		if o.Result.Success || o.Result.Code != envelope.CodeTimeout {
			t.Errorf("outcome for %s = %+v", o.Target, o.Result)
		}
		if !strings.Contains(o.Result.ErrorMessage, o.Target) {
			t.Errorf("message %q does not name the target", o.Result.ErrorMessage)
		}
	}
}

func TestRunDefaultsRetrySchedule(t *testing.T) {
	// An unset schedule falls back to the package default; the run must
	// still complete normally for probes that never need the retry.
	outcomes, summary := Run(context.Background(), []string{"x"}, okProbe, Options{Workers: 1, Retry: true})
	if summary.Succeeded != 1 || !outcomes[0].Result.Success {
		t.Fatalf("summary = %+v, outcome = %+v", summary, outcomes[0].Result)
	}
}

func TestSplitPartitionsOutcomes(t *testing.T) {
	mixed := func(ctx context.Context, target string) *envelope.Result {
		if strings.HasPrefix(target, "bad") {
			return envelope.New("test").Target(target).
				Failure(envelope.CodeUnreachable, map[string]any{"target": target})
		}
		return okProbe(ctx, target)
	}

	outcomes, _ := Run(context.Background(), []string{"a", "bad1", "b", "bad2"}, mixed, Options{Workers: 2})
	succeeded, failed := Split(outcomes)
	if len(succeeded) != 2 || len(failed) != 2 {
		t.Fatalf("split = %d/%d, want 2/2", len(succeeded), len(failed))
	}
	for _, row := range failed {
		if row["error_type"] != "network" {
			t.Errorf("error_type = %v", row["error_type"])
		}
		if msg, _ := row["error_message"].(string); msg == "" {
			t.Error("error_message missing")
		}
		if row["target"] == nil {
			t.Error("target identity missing")
		}
	}
}

func TestSplitNeverNil(t *testing.T) {
	succeeded, failed := Split(nil)
	if succeeded == nil || failed == nil {
		t.Error("both lists must be non-nil for a stable wire shape")
	}
}
