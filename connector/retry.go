package connector

import (
	"context"
	"time"
)

// Retry runs fn until it succeeds, the retry budget is exhausted, or ctx
// ends. Delays back off exponentially from BaseDelay up to MaxDelay. A nil
// cfg runs fn exactly once.
func Retry(ctx context.Context, cfg *RetryConfig, fn func(context.Context) error) error {
	if cfg == nil {
		return fn(ctx)
	}

	delay := cfg.BaseDelay
	if delay == 0 {
		delay = time.Second
	}

	var err error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt == cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}
	return err
}
