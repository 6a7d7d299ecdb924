package genclient

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSleep(record *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*record = append(*record, d)
		return ctx.Err()
	}
}

func TestLinearBackoff(t *testing.T) {
	b := LinearBackoff(time.Second)
	assert.Equal(t, time.Second, b(1))
	assert.Equal(t, 2*time.Second, b(2))
	assert.Equal(t, 3*time.Second, b(3))
}

func TestRetryPolicyDo(t *testing.T) {
	var slept []time.Duration
	policy := DefaultRetryPolicy(3, time.Second)
	policy.Sleep = fakeSleep(&slept)

	t.Run("retries transient until success", func(t *testing.T) {
		slept = nil
		calls := 0
		err := policy.Do(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return &StatusError{Code: 429}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
	})

	t.Run("stops on terminal error", func(t *testing.T) {
		slept = nil
		calls := 0
		err := policy.Do(context.Background(), func(context.Context) error {
			calls++
			return &StatusError{Code: 500, Body: "boom"}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Empty(t, slept)
	})

	t.Run("gives up at the ceiling", func(t *testing.T) {
		slept = nil
		calls := 0
		err := policy.Do(context.Background(), func(context.Context) error {
			calls++
			return &TransportError{Err: errors.New("connection refused")}
		})
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 3, calls)
		assert.Len(t, slept, 2)
	})

	t.Run("canceled context aborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := policy.Do(ctx, func(context.Context) error {
			return context.DeadlineExceeded
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestIsRetriableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &StatusError{Code: 429}, true},
		{"server error", &StatusError{Code: 503}, false},
		{"unauthorized", &StatusError{Code: 401}, false},
		{"deadline", fmt.Errorf("attempt: %w", context.DeadlineExceeded), true},
		{"transport", &TransportError{Err: errors.New("reset")}, true},
		{"empty content", ErrEmptyContent, false},
		{"provider error", &ProviderError{Message: "bad model"}, false},
		{"unknown", errors.New("something else"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetriableError(tt.err))
		})
	}
}
