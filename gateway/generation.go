package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrUnavailable is the sentinel for transient generation failures. Provider
// adapters should wrap transient upstream errors (timeouts, 5xx, overload)
// with it so the orchestrator can distinguish them from permanent failures.
var ErrUnavailable = errors.New("generation gateway unavailable")

// GenerateRequest carries one generation call.
type GenerateRequest struct {
	// System is the static system prompt (persona identity and rules).
	System string
	// Prompt is the user-side content: knowledge, history, current input.
	Prompt string
	// Temperature overrides the provider default when > 0.
	Temperature float32
	// MaxTokens caps the completion length when > 0.
	MaxTokens int
}

// GenerationGateway produces text from a prompt. Implementations may fail
// with an error wrapping ErrUnavailable when the provider is transiently
// unreachable.
type GenerationGateway interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateFunc adapts a function to the GenerationGateway interface.
type GenerateFunc func(ctx context.Context, req GenerateRequest) (string, error)

func (f GenerateFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}

// RetryConfig controls the resilient wrapper.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first call.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// Backoff is the fixed delay between attempts.
	Backoff time.Duration `yaml:"backoff" json:"backoff"`
}

// ResilientGateway wraps a GenerationGateway with bounded retries on
// transient failures. Non-transient errors pass through immediately.
type ResilientGateway struct {
	inner  GenerationGateway
	config RetryConfig
	logger *zap.Logger
}

// NewResilientGateway wraps inner with the given retry policy.
func NewResilientGateway(inner GenerationGateway, config RetryConfig, logger *zap.Logger) *ResilientGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResilientGateway{
		inner:  inner,
		config: config,
		logger: logger.With(zap.String("component", "generation_gateway")),
	}
}

func (g *ResilientGateway) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("retrying generation",
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(g.config.Backoff):
			}
		}

		text, err := g.inner.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

var _ GenerationGateway = (*ResilientGateway)(nil)
var _ GenerationGateway = (GenerateFunc)(nil)
