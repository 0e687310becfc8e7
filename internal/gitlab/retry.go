package gitlab

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig bounds the retry loop around a single GitLab call.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// OnRetry is called before each wait.
	OnRetry func(err *Error, attempt int, wait time.Duration)
}

// DefaultRetryConfig returns three retries with 1s backoff doubling up to 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2,
	}
}

// WithRetry runs op and retries retryable failures with exponential backoff.
// A rate limit response carrying Retry-After waits that long instead, capped
// at MaxBackoff. The returned error is always classified by Wrap.
func WithRetry(ctx context.Context, cfg RetryConfig, resource string, op func(ctx context.Context) error) error {
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	backoff := cfg.InitialBackoff

	for attempt := 0; ; attempt++ {
		err := Wrap(op(ctx), resource)
		if err == nil {
			return nil
		}
		gErr, ok := AsError(err)
		if !ok || !gErr.Retryable {
			return err
		}
		if attempt >= cfg.MaxRetries {
			return fmt.Errorf("after %d retries: %w", attempt, err)
		}

		wait := backoff
		if gErr.RetryAfter > 0 {
			wait = gErr.RetryAfter
		}
		if cfg.MaxBackoff > 0 && wait > cfg.MaxBackoff {
			wait = cfg.MaxBackoff
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(gErr, attempt+1, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}

		backoff = time.Duration(float64(backoff) * cfg.Multiplier)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
