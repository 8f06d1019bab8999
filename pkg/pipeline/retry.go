package pipeline

import (
	"context"
	"log"
	"time"
)

// withRetry runs fn up to attempts times, doubling the wait between
// tries. The last error is returned when every attempt fails.
func withRetry(ctx context.Context, attempts int, wait time.Duration, what string, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		log.Printf("[WARN] %s failed (attempt %d/%d), retrying in %s: %v", what, i+1, attempts, wait, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
