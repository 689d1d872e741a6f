// Package retry provides the bounded retry loop behind cache populate
// writes. Populates are best-effort: the query's future has already
// resolved by the time a write runs, so a failed write costs a future cache
// miss, nothing more. That shapes the policy — a transient backend wobble
// is worth a few more attempts, while a permanent failure (corrupt payload,
// bad schema) or a cancellation will not improve on retry and aborts the
// loop at once.
//
// Example usage:
//
//	err := retry.Do(ctx, retry.Config{MaxAttempts: 3}, func() error {
//	    if err := client.Set(ctx, key, value, ttl).Err(); err != nil {
//	        return errors.NewTemporary("redis set failed", err)
//	    }
//	    return nil
//	})
package retry

import (
	"context"
	"time"

	"github.com/Combine-Capital/tsqi/pkg/errors"
	"github.com/cenkalti/backoff/v5"
)

// Config bounds one write's retry loop. Zero values take the populate
// defaults: 3 attempts, 50ms initial delay, 1s cap.
type Config struct {
	// MaxAttempts is the total number of attempts (the initial try plus
	// retries).
	MaxAttempts uint

	// InitialDelay is the delay before the first retry; subsequent delays
	// back off exponentially.
	InitialDelay time.Duration

	// MaxDelay caps the backoff between attempts.
	MaxDelay time.Duration
}

// withDefaults returns a config with the populate defaults applied.
func (c Config) withDefaults() Config {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = 50 * time.Millisecond
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = time.Second
	}
	return c
}

// Do runs fn until it succeeds or the attempt budget is spent, backing off
// exponentially between attempts. Only TemporaryError failures are retried;
// any other outcome — permanent, not-found, invalid input, or a
// cancellation — is returned immediately, as is expiry of ctx. The error
// from the final attempt is returned when the budget runs out.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg = cfg.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay
	b.MaxInterval = cfg.MaxDelay

	// backoff.Retry requires Operation[T]; writes have no return value,
	// so T is struct{}.
	operation := func() (struct{}, error) {
		err := fn()
		if err == nil {
			return struct{}{}, nil
		}
		if errors.IsCancelled(err) || !errors.IsTemporary(err) {
			// Retrying won't change these outcomes
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(cfg.MaxAttempts),
	)
	return err
}
