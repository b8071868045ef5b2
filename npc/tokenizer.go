package npc

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// TokenCounter estimates prompt token usage for the history window budget.
type TokenCounter interface {
	CountTokens(text string) int
}

// TiktokenCounter counts tokens with a real BPE encoding.
type TiktokenCounter struct {
	enc    *tiktoken.Tiktoken
	logger *zap.Logger
}

// NewTiktokenCounter creates a counter for the given model (e.g. "gpt-4o").
func NewTiktokenCounter(model string, logger *zap.Logger) (*TiktokenCounter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding for %q: %w", model, err)
	}
	return &TiktokenCounter{enc: enc, logger: logger}, nil
}

func (c *TiktokenCounter) CountTokens(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// EstimatorCounter approximates tokens as len/4 characters. Used as the
// fallback when encoding data is unavailable, and by tests.
type EstimatorCounter struct{}

func (EstimatorCounter) CountTokens(text string) int {
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}

// NewTokenCounter returns a tiktoken-backed counter for the model, falling
// back to the character estimator when the encoding cannot be loaded.
func NewTokenCounter(model string, logger *zap.Logger) TokenCounter {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := NewTiktokenCounter(model, logger)
	if err != nil {
		logger.Warn("tiktoken unavailable, using character estimator",
			zap.String("model", model), zap.Error(err))
		return EstimatorCounter{}
	}
	return c
}

var _ TokenCounter = (*TiktokenCounter)(nil)
var _ TokenCounter = EstimatorCounter{}
