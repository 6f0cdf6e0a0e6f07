package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const retryDelay = 300 * time.Millisecond

// WithRetryOnce runs fn and, if it fails transiently, retries exactly once
// after a short delay. Background polls use this and then wait for their
// next scheduled tick rather than escalating; a failing poll is never a
// user-facing error.
func WithRetryOnce[T any](ctx context.Context, logger zerolog.Logger, operation string, fn func() (T, error)) (T, error) {
	result, err := fn()
	if err == nil {
		return result, nil
	}
	if !IsTransient(err) {
		return result, err
	}

	logger.Debug().
		Err(err).
		Str("operation", operation).
		Msg("transient failure, retrying once")

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-time.After(retryDelay):
	}

	result, err = fn()
	if err != nil {
		logger.Debug().
			Err(err).
			Str("operation", operation).
			Msg("retry failed, deferring to next tick")
	}
	return result, err
}
