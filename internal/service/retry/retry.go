// Package retry replaces busy-wait loops with bounded polling.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrTimeout is returned when op never succeeded before the deadline.
var ErrTimeout = errors.New("timed out")

// Until calls op every interval until it returns nil, the timeout elapses or ctx ends.
// A timeout yields ErrTimeout wrapping the last failure of op.
func Until(ctx context.Context, timeout, interval time.Duration, op func() error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	err := backoff.Retry(func() error {
		if err := op(); err != nil {
			lastErr = err
			return err
		}
		return nil
	}, backoff.WithContext(backoff.NewConstantBackOff(interval), ctx))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		if lastErr == nil {
			return ErrTimeout
		}
		return fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, lastErr)
	}
	return err
}

// Permanent stops Until immediately with err.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
