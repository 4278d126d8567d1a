package session

import (
	"context"
	"fmt"
	"time"

	"ai-trader/internal/logger"
	"ai-trader/internal/types"
)

// FailedError reports a session whose retries were exhausted. It wraps the
// last underlying cause so callers can classify it.
type FailedError struct {
	Signature string
	Date      string
	Attempts  int
	Cause     error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("session %s/%s failed after %d attempts: %v", e.Signature, e.Date, e.Attempts, e.Cause)
}

func (e *FailedError) Unwrap() error { return e.Cause }

// RetryConfig bounds the driver.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Driver wraps one state-machine run with bounded retries and exponential
// backoff. The backoff sleep is the only intentional suspension point
// besides model/tool I/O.
type Driver struct {
	Signature string
	Config    RetryConfig

	// Sleep is injectable for tests; defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewDriver(signature string, cfg RetryConfig) *Driver {
	return &Driver{Signature: signature, Config: cfg, Sleep: sleepContext}
}

// Run invokes fn at most MaxRetries+1 times. Transient failures back off
// base_delay * 2^n after attempt n; anything else propagates immediately.
func (d *Driver) Run(ctx context.Context, date string, fn func(ctx context.Context) (*types.SessionReport, error)) (*types.SessionReport, error) {
	var lastErr error
	for attempt := 0; attempt <= d.Config.MaxRetries; attempt++ {
		report, err := fn(ctx)
		if err == nil {
			report.Retries = attempt
			return report, nil
		}
		if !types.IsTransient(err) {
			return nil, err
		}
		lastErr = err

		if attempt == d.Config.MaxRetries {
			break
		}
		delay := d.Config.BaseDelay << attempt
		logger.Warn(ctx, "Session attempt failed, backing off",
			"signature", d.Signature,
			"date", date,
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err,
		)
		if serr := d.Sleep(ctx, delay); serr != nil {
			return nil, serr
		}
	}
	return nil, &FailedError{
		Signature: d.Signature,
		Date:      date,
		Attempts:  d.Config.MaxRetries + 1,
		Cause:     lastErr,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
