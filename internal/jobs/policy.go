package jobs

import (
	"context"
	"errors"
	"time"
)

// Policy bounds how a job is retried.
type Policy struct {
	MaxAttempts int             // Total attempts including the first
	Timeout     time.Duration   // Budget of a single attempt
	Backoff     []time.Duration // Wait after failed attempt n is Backoff[n-1]
}

// DefaultPolicy allows 3 attempts of 5 minutes each, waiting 10s and then
// 30s between them. The 60s step would only apply to a fourth attempt.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Timeout:     300 * time.Second,
		Backoff:     []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second},
	}
}

// Validate checks the policy is usable.
func (p Policy) Validate() error {
	var errs []error
	if p.MaxAttempts < 1 {
		errs = append(errs, errors.New("max attempts must be at least 1"))
	}
	if p.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	for _, d := range p.Backoff {
		if d < 0 {
			errs = append(errs, errors.New("backoff delays must not be negative"))
			break
		}
	}
	return errors.Join(errs...)
}

// Delay returns the wait after the given failed attempt. Attempts past the
// end of Backoff reuse its last entry; an empty Backoff means no wait.
func (p Policy) Delay(attempt int) time.Duration {
	if len(p.Backoff) == 0 || attempt < 1 {
		return 0
	}
	if attempt > len(p.Backoff) {
		return p.Backoff[len(p.Backoff)-1]
	}
	return p.Backoff[attempt-1]
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// sleepWithContext is the default Sleeper.
func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
