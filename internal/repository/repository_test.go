package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := s.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "auth_token", "tok-1"))
	require.NoError(t, s.Set(ctx, "auth_token", "tok-2"))

	v, ok, err := s.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-2", v)

	require.NoError(t, s.Remove(ctx, "auth_token"))
	require.NoError(t, s.Remove(ctx, "auth_token"))

	_, ok, err = s.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func shortRetryDelays(t *testing.T) {
	t.Helper()
	saved := retryDelays
	retryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	t.Cleanup(func() { retryDelays = saved })
}

func TestWithRetry(t *testing.T) {
	shortRetryDelays(t)

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "success first try",
			errs:      []error{nil},
			wantCalls: 1,
		},
		{
			name: "serialization failure then success",
			errs: []error{
				&pgconn.PgError{Code: pgerrcode.SerializationFailure},
				nil,
			},
			wantCalls: 2,
		},
		{
			name: "connection refused exhausts retries",
			errs: []error{
				errors.New("dial tcp: connection refused"),
				errors.New("dial tcp: connection refused"),
				errors.New("dial tcp: connection refused"),
				errors.New("dial tcp: connection refused"),
			},
			wantCalls: 4,
			wantErr:   true,
		},
		{
			name:      "unique violation is not retried",
			errs:      []error{&pgconn.PgError{Code: pgerrcode.UniqueViolation}},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "context error is not retried",
			errs:      []error{context.DeadlineExceeded},
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := withRetry(context.Background(), func() error {
				e := tt.errs[calls]
				calls++
				return e
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithRetry_StopsOnCanceledContext(t *testing.T) {
	saved := retryDelays
	retryDelays = []time.Duration{time.Hour}
	t.Cleanup(func() { retryDelays = saved })

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := withRetry(ctx, func() error {
		calls++
		cancel()
		return errors.New("write: broken pipe")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDelayBackoff(t *testing.T) {
	b := delayBackoff([]time.Duration{time.Second, 3 * time.Second, 5 * time.Second})

	var got []time.Duration
	for {
		d, stop := b.Next()
		if stop {
			break
		}
		got = append(got, d)
	}

	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second, 5 * time.Second}, got)
}
