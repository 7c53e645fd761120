// Package startup holds connect-with-retry helpers used by main. Dependencies
// may come up after the API container, so connection failures are retried with
// doubling backoff until maxWait elapses.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/dmchat/internal/logger"
)

const (
	initialBackoff = 2 * time.Second
	maxBackoff     = 30 * time.Second
)

// retry calls attempt until it succeeds, ctx is cancelled or maxWait elapses.
func retry(ctx context.Context, name string, maxWait time.Duration, attempt func(context.Context) error) error {
	deadline := time.Now().Add(maxWait)
	backoff := initialBackoff
	for {
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s (gave up after %v): %w", name, maxWait, err)
		}
		logger.Errorf("%s failed, retry in %v: %v", name, backoff, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}
