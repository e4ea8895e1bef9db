package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(tries int) RetryPolicy {
	return RetryPolicy{MaxTries: tries, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsAtMaxTries(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(2), func() (int, error) {
		calls++
		return 0, errors.New("down")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryDoesNotRepeatPermanentErrors(t *testing.T) {
	sentinel := errors.New("bad request")
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(5), func() (int, error) {
		calls++
		return 0, Permanent(sentinel)
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}
