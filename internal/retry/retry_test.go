package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, nil, func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestWithRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 2, time.Millisecond, nil, func() error {
		calls++
		return errors.New("still broken")
	})
	require.EqualError(t, err, "still broken")
	require.Equal(t, 2, calls)
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	permanent := errors.New("unauthorized")
	calls := 0
	err := WithRetry(context.Background(), 5, time.Millisecond, func(err error) bool {
		return !errors.Is(err, permanent)
	}, func() error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}

func TestWithRetry_HonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := WithRetry(ctx, 3, time.Millisecond, nil, func() error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, calls)
}
