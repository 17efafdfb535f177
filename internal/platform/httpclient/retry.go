package httpclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
)

const (
	defaultMaxRetries   = 2
	defaultInitialDelay = 500 * time.Millisecond
	delayMultiplier     = 2
)

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first; negative disables retries.
	MaxRetries   int
	InitialDelay time.Duration
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultInitialDelay
	}

	return cfg
}

// withRetry runs op until it succeeds, fails permanently or runs out of retries.
// Only ErrTransientFetch is retried, with exponential backoff.
func (c *Client) withRetry(ctx context.Context, op func() error) error {
	var lastErr error

	delay := c.retry.InitialDelay

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry interrupted: %w", ctx.Err())
			case <-time.After(delay):
				delay *= delayMultiplier
			}
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if !isRetryableError(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func isRetryableError(err error) bool {
	return errors.Is(err, coreerrors.ErrTransientFetch)
}
