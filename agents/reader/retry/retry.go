/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retry is the single timeout and retry wrapper every model call
// goes through.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"
)

// MaxAllowedRetries bounds Config.MaxRetries.
const MaxAllowedRetries = 1

// Config configures the per-call timeout and retry policy.
type Config struct {
	// Timeout bounds each attempt (default: 30s).
	Timeout time.Duration
	// MaxRetries is the number of automatic retries, 0 or 1 (default: 1).
	MaxRetries int
	// Backoff is the pause before a retry (default: 1s).
	Backoff time.Duration
	// MaxJitter is the maximum random jitter added to Backoff (default: 250ms).
	MaxJitter time.Duration
}

// Validate checks that the configuration has valid values.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.MaxRetries < 0 || c.MaxRetries > MaxAllowedRetries {
		return fmt.Errorf("max retries must be between 0 and %d, got %d", MaxAllowedRetries, c.MaxRetries)
	}
	if c.Backoff < 0 {
		return errors.New("backoff cannot be negative")
	}
	if c.MaxJitter < 0 {
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

// DefaultConfig returns the default policy.
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		MaxRetries: 1,
		Backoff:    1 * time.Second,
		MaxJitter:  250 * time.Millisecond,
	}
}

// Do runs fn with a per-attempt timeout, retrying once on errors isRetryable
// accepts. Timeouts are always retryable. Each attempt runs detached from
// ctx's cancellation, so a call that has been sent either completes or
// times out; cancellation of ctx only prevents further attempts. Do returns
// the number of attempts made.
func Do[T any](ctx context.Context, cfg Config, operation string, isRetryable func(error) bool, fn func(context.Context) (T, error)) (T, int, error) {
	var result T
	var lastErr error

	attempts := 0
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}
		attempts++
		result, lastErr = runAttempt(ctx, cfg.Timeout, fn)
		if lastErr == nil {
			return result, attempts, nil
		}

		if !errors.Is(lastErr, context.DeadlineExceeded) && (isRetryable == nil || !isRetryable(lastErr)) {
			return result, attempts, lastErr
		}

		if attempt >= cfg.MaxRetries {
			break
		}

		var jitter time.Duration
		if cfg.MaxJitter > 0 {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(cfg.MaxJitter)))
			if err == nil {
				jitter = time.Duration(n.Int64())
			}
		}

		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("backoff", cfg.Backoff+jitter).
			With("error", lastErr.Error()).
			Warn("Model call failed, retrying")

		select {
		case <-ctx.Done():
			return result, attempts, fmt.Errorf("%s: %w (last error: %w)", operation, ctx.Err(), lastErr)
		case <-time.After(cfg.Backoff + jitter):
		}
	}

	return result, attempts, fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, lastErr)
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	result, err := fn(actx)
	if err != nil && actx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) {
		// Clients report expiry in their own words.
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return result, err
}
