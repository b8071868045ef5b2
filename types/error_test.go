package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_FluentBuilders(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(ErrPersistence, "failed to persist conversation").
		WithSession("s1").
		WithStep("PERSIST").
		WithRetryable(true).
		WithCause(cause)

	assert.Equal(t, ErrPersistence, err.Code)
	assert.Equal(t, "s1", err.SessionID)
	assert.Equal(t, "PERSIST", err.Step)
	assert.True(t, err.Retryable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "PERSISTENCE")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetErrorCode(t *testing.T) {
	err := NewError(ErrUnknownPersona, "persona missing")
	assert.Equal(t, ErrUnknownPersona, GetErrorCode(err))

	wrapped := fmt.Errorf("advance failed: %w", err)
	assert.Equal(t, ErrUnknownPersona, GetErrorCode(wrapped))

	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewError(ErrRateLimited, "slow down").WithRetryable(true)))
	assert.False(t, IsRetryable(NewError(ErrInvalidMessage, "empty")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
