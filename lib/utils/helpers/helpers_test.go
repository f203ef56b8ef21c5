package helpers

import (
	"context"
	"testing"
	"time"

	apperrors "approvals-backend/lib/utils/app-errors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestReadWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run(`transient failure is retried once`, func(t *testing.T) {
		calls := 0
		value, err := ReadWithRetry(ctx, time.Second, func(ctx context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, apperrors.NewStorageError("get", context.DeadlineExceeded)
			}
			return 7, nil
		})
		require.Nil(t, err)
		require.Equal(t, 7, value)
		require.Equal(t, 2, calls)
	})

	t.Run(`second transient failure is returned`, func(t *testing.T) {
		calls := 0
		_, err := ReadWithRetry(ctx, time.Second, func(ctx context.Context) (int, error) {
			calls++
			return 0, apperrors.NewStorageError("get", context.DeadlineExceeded)
		})
		require.True(t, apperrors.IsTransient(err))
		require.Equal(t, 2, calls)
	})

	t.Run(`permanent failure is not retried`, func(t *testing.T) {
		calls := 0
		_, err := ReadWithRetry(ctx, time.Second, func(ctx context.Context) (int, error) {
			calls++
			return 0, apperrors.NewStorageError("get", errors.New("syntax error"))
		})
		require.True(t, apperrors.IsStorage(err))
		require.Equal(t, 1, calls)

		calls = 0
		_, err = ReadWithRetry(ctx, time.Second, func(ctx context.Context) (int, error) {
			calls++
			return 0, apperrors.NewNotFound("approval", "1")
		})
		require.True(t, apperrors.IsNotFound(err))
		require.Equal(t, 1, calls)
	})

	t.Run(`timeout bounds the call`, func(t *testing.T) {
		_, err := WithTimeout(ctx, 10*time.Millisecond, func(ctx context.Context) (bool, error) {
			<-ctx.Done()
			return false, ctx.Err()
		})
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestTrimmedOrDefault(t *testing.T) {
	require.Equal(t, "x", TrimmedOrDefault("  ", "x"))
	require.Equal(t, "a", TrimmedOrDefault(" a ", "x"))
}
