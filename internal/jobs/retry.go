package jobs

import (
	"context"
	"fmt"
	"time"
)

// retry calls fn up to attempts times, waiting backoff*(i+1) between tries.
func retry[T any](ctx context.Context, attempts int, backoff time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff * time.Duration(i+1)):
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
