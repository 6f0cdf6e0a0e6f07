package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/kallerud/lotline/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestWithRetryOnceRecoversTransientFailure(t *testing.T) {
	attempts := 0
	result, err := WithRetryOnce(context.Background(), logging.Component("test"), "list", func() (int, error) {
		attempts++
		if attempts == 1 {
			return 0, &APIError{Status: http.StatusServiceUnavailable}
		}
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, result)
	require.Equal(t, 2, attempts)
}

func TestWithRetryOnceStopsAfterSecondFailure(t *testing.T) {
	attempts := 0
	_, err := WithRetryOnce(context.Background(), logging.Component("test"), "list", func() (int, error) {
		attempts++
		return 0, &APIError{Status: http.StatusInternalServerError}
	})
	require.Error(t, err)
	require.Equal(t, 2, attempts, "exactly one retry, then defer to next tick")
}

func TestWithRetryOnceSkipsNonTransient(t *testing.T) {
	permanent := errors.New("bad request")
	attempts := 0
	_, err := WithRetryOnce(context.Background(), logging.Component("test"), "send", func() (int, error) {
		attempts++
		return 0, &APIError{Status: http.StatusBadRequest, Message: permanent.Error()}
	})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestWithRetryOnceHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	_, err := WithRetryOnce(ctx, logging.Component("test"), "list", func() (int, error) {
		attempts++
		return 0, &APIError{Status: http.StatusInternalServerError}
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)
}
