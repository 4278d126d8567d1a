package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-trader/internal/types"
)

// flaky fails transiently n times, then succeeds.
func flaky(n int) func(ctx context.Context) (*types.SessionReport, error) {
	failures := 0
	return func(ctx context.Context) (*types.SessionReport, error) {
		if failures < n {
			failures++
			return nil, &types.TransientError{Op: "model", Err: errors.New("timeout")}
		}
		return &types.SessionReport{Outcome: types.OutcomeFinished}, nil
	}
}

func newTestDriver(maxRetries int, delays *[]time.Duration) *Driver {
	d := NewDriver("sig-a", RetryConfig{MaxRetries: maxRetries, BaseDelay: time.Second})
	d.Sleep = func(ctx context.Context, dur time.Duration) error {
		*delays = append(*delays, dur)
		return nil
	}
	return d
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	d := newTestDriver(3, &delays)

	attempts := 0
	fn := flaky(2)
	report, err := d.Run(context.Background(), "2025-10-01", func(ctx context.Context) (*types.SessionReport, error) {
		attempts++
		return fn(ctx)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if report.Retries != 2 {
		t.Errorf("expected 2 retries recorded, got %d", report.Retries)
	}

	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestRetryExhaustion(t *testing.T) {
	var delays []time.Duration
	d := newTestDriver(2, &delays)

	attempts := 0
	cause := errors.New("endpoint down")
	_, err := d.Run(context.Background(), "2025-10-01", func(ctx context.Context) (*types.SessionReport, error) {
		attempts++
		return nil, &types.TransientError{Op: "tool", Err: cause}
	})

	if attempts != 3 {
		t.Errorf("expected max_retries+1 = 3 attempts, got %d", attempts)
	}
	var failed *FailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected FailedError, got %v", err)
	}
	if failed.Attempts != 3 {
		t.Errorf("expected Attempts=3, got %d", failed.Attempts)
	}
	if !errors.Is(err, cause) {
		t.Error("FailedError must wrap the last underlying cause")
	}

	// exponential, monotonically non-decreasing
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestNonTransientPropagatesImmediately(t *testing.T) {
	var delays []time.Duration
	d := newTestDriver(5, &delays)

	attempts := 0
	cred := &types.CredentialError{Name: "OPENAI_API_KEY"}
	_, err := d.Run(context.Background(), "2025-10-01", func(ctx context.Context) (*types.SessionReport, error) {
		attempts++
		return nil, cred
	})

	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
	if !types.IsCredential(err) {
		t.Errorf("expected credential error to surface unchanged, got %v", err)
	}
	var failed *FailedError
	if errors.As(err, &failed) {
		t.Error("non-transient failure must not be wrapped in FailedError")
	}
	if len(delays) != 0 {
		t.Errorf("expected no backoff, got %v", delays)
	}
}

func TestZeroRetriesMeansSingleAttempt(t *testing.T) {
	var delays []time.Duration
	d := newTestDriver(0, &delays)

	attempts := 0
	_, err := d.Run(context.Background(), "2025-10-01", func(ctx context.Context) (*types.SessionReport, error) {
		attempts++
		return nil, &types.TransientError{Op: "model", Err: errors.New("boom")}
	})

	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
	var failed *FailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected FailedError, got %v", err)
	}
	if len(delays) != 0 {
		t.Errorf("expected no sleeps, got %v", delays)
	}
}

func TestSleepHonorsCancellation(t *testing.T) {
	d := NewDriver("sig-a", RetryConfig{MaxRetries: 3, BaseDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Run(ctx, "2025-10-01", func(ctx context.Context) (*types.SessionReport, error) {
		return nil, &types.TransientError{Op: "model", Err: errors.New("boom")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled from backoff sleep, got %v", err)
	}
}
