package errors

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	inner := stderrors.New("boom")

	err := NewError("loading config", inner)
	assert.Equal(t, "loading config: boom", err.Error())

	// Aggregates stay matchable
	assert.True(t, stderrors.Is(err, inner))

	var missing ErrMissingStore
	err = NewError("starting service", ErrMissingStore{})
	assert.True(t, stderrors.As(err, &missing))
}

func TestAPIError(t *testing.T) {
	base := &APIError{Code: 310000, Message: "sign not match"}
	assert.Equal(t, "api error 310000: sign not match", base.Error())

	formatted := base.WithMessagef("keyword %q missing", "alert")
	assert.Equal(t, "api error 310000: keyword \"alert\" missing", formatted.Error())

	// The original is untouched
	assert.Equal(t, "sign not match", base.Message)
}

func TestRetryWithBackoff(t *testing.T) {
	config := &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}

	calls := 0
	err := RetryWithBackoff(config, func() error {
		calls++
		if calls < 2 {
			return stderrors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	sentinel := stderrors.New("permanent")
	err = RetryWithBackoff(config, func() error {
		calls++
		return sentinel
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, stderrors.Is(err, sentinel))
}
