package helpers

import (
	"context"
	"strings"
	"time"

	apperrors "approvals-backend/lib/utils/app-errors"
)

func IsContextDone(ctx context.Context) bool {
	if ctx == nil {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
	}
	return false
}

// WithTimeout runs fn under a context bounded by timeout. A non-positive timeout
// leaves the parent deadline in charge.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}

// ReadWithRetry runs an idempotent read and repeats it once when the first attempt
// failed with a transient storage error. Writes must not go through it.
func ReadWithRetry[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	result, err := WithTimeout(ctx, timeout, fn)
	if err == nil || !apperrors.IsTransient(err) || IsContextDone(ctx) {
		return result, err
	}
	return WithTimeout(ctx, timeout, fn)
}

func TrimmedOrDefault(value, def string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	return value
}
