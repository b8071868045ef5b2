package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResilientGateway_RetriesTransientFailures(t *testing.T) {
	calls := 0
	gen := NewResilientGateway(GenerateFunc(func(context.Context, GenerateRequest) (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("upstream 503: %w", ErrUnavailable)
		}
		return "recovered", nil
	}), RetryConfig{MaxRetries: 2, Backoff: 1}, zap.NewNop())

	text, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 3, calls)
}

func TestResilientGateway_ExhaustsRetryBudget(t *testing.T) {
	calls := 0
	gen := NewResilientGateway(GenerateFunc(func(context.Context, GenerateRequest) (string, error) {
		calls++
		return "", ErrUnavailable
	}), RetryConfig{MaxRetries: 2, Backoff: 1}, zap.NewNop())

	_, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, calls)
}

func TestResilientGateway_PermanentErrorsPassThrough(t *testing.T) {
	boom := errors.New("invalid api key")
	calls := 0
	gen := NewResilientGateway(GenerateFunc(func(context.Context, GenerateRequest) (string, error) {
		calls++
		return "", boom
	}), RetryConfig{MaxRetries: 3, Backoff: 1}, zap.NewNop())

	_, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestResilientGateway_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := NewResilientGateway(GenerateFunc(func(context.Context, GenerateRequest) (string, error) {
		return "", ErrUnavailable
	}), RetryConfig{MaxRetries: 5, Backoff: 1}, zap.NewNop())

	_, err := gen.Generate(ctx, GenerateRequest{Prompt: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetrieveFunc(t *testing.T) {
	r := RetrieveFunc(func(_ context.Context, query string, topK int) ([]Snippet, error) {
		return []Snippet{{Content: query, Score: 1}}, nil
	})

	snippets, err := r.Retrieve(context.Background(), "salary bands", 3)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "salary bands", snippets[0].Content)
}
