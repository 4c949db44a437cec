package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_SucceedsFirstTry(t *testing.T) {
	reconnects := 0
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Reconnect: func(context.Context) error {
		reconnects++
		return nil
	}}

	attempts := 0
	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 0, reconnects)
}

func TestPolicy_EventualSuccess(t *testing.T) {
	reconnects := 0
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, Reconnect: func(context.Context) error {
		reconnects++
		return nil
	}}

	attempts := 0
	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, reconnects)
}

func TestPolicy_SingleAttemptStillReconnects(t *testing.T) {
	reconnects := 0
	p := Policy{MaxAttempts: 1, Reconnect: func(context.Context) error {
		reconnects++
		return nil
	}}

	want := errors.New("write failed")
	err := p.Do(context.Background(), func(context.Context) error { return want })
	assert.Equal(t, want, err)
	assert.Equal(t, 1, reconnects)
}

func TestPolicy_InvalidAttempts(t *testing.T) {
	err := Policy{}.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestPolicy_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p := Policy{MaxAttempts: 3, BaseDelay: time.Second}
	err := p.Do(ctx, func(context.Context) error { return errors.New("boom") })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
