package retry

import (
	"context"
	"math/rand"
	"time"
)

// Retryable decide si vale la pena otro intento para err.
type Retryable func(err error) bool

// Always reintenta cualquier error.
func Always(error) bool { return true }

func WithRetry(
	ctx context.Context,
	attempts int,
	baseDelay time.Duration,
	retryable Retryable,
	fn func() error,
) error {
	if attempts <= 0 {
		attempts = 1
	}
	if retryable == nil {
		retryable = Always
	}

	var err error

	for i := 1; i <= attempts; i++ {
		// Verificar si el context expiró
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err = fn()
		if err == nil {
			return nil
		}

		// No hacer sleep en el último intento ni con errores definitivos
		if i == attempts || !retryable(err) {
			break
		}

		// Backoff exponencial con jitter
		sleep := baseDelay * time.Duration(1<<uint(i-1))
		var jitter time.Duration
		if baseDelay > 0 {
			jitter = time.Duration(rand.Int63n(int64(baseDelay)))
		}

		select {
		case <-time.After(sleep + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}
