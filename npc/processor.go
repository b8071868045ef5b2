package npc

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/edtronaut/coworker/gateway"
	"github.com/edtronaut/coworker/persona"
	"github.com/edtronaut/coworker/types"
)

// Config controls prompt assembly and generation parameters.
type Config struct {
	// HistoryWindow is the maximum number of prior turns included in the
	// prompt. Older turns are dropped.
	HistoryWindow int `yaml:"history_window" json:"history_window"`

	// HistoryTokenBudget bounds the token size of the history window.
	// 0 disables token trimming.
	HistoryTokenBudget int `yaml:"history_token_budget" json:"history_token_budget"`

	// Temperature passed through to the generation gateway.
	Temperature float32 `yaml:"temperature" json:"temperature"`

	// MaxTokens caps the reply length. 0 uses the provider default.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`
}

// DefaultConfig returns the default processor configuration.
func DefaultConfig() Config {
	return Config{
		HistoryWindow:      10,
		HistoryTokenBudget: 3000,
		Temperature:        0.7,
	}
}

// Processor builds grounded prompts and produces candidate NPC turns.
type Processor struct {
	gen     gateway.GenerationGateway
	counter TokenCounter
	config  Config
	logger  *zap.Logger
}

// NewProcessor creates a Processor. counter may be nil to disable token
// trimming of the history window.
func NewProcessor(gen gateway.GenerationGateway, counter TokenCounter, config Config, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.HistoryWindow <= 0 {
		config.HistoryWindow = DefaultConfig().HistoryWindow
	}
	return &Processor{
		gen:     gen,
		counter: counter,
		config:  config,
		logger:  logger.With(zap.String("component", "npc_processor")),
	}
}

// GenerateReply produces a candidate NPC turn for the conversation's latest
// user message. It has no side effects beyond the returned candidate.
func (p *Processor) GenerateReply(ctx context.Context, desc *persona.Descriptor, in PromptInput) (types.Turn, error) {
	if desc == nil {
		return types.Turn{}, fmt.Errorf("persona descriptor is required")
	}
	if in.Conversation == nil || in.Conversation.TurnCount() == 0 {
		return types.Turn{}, fmt.Errorf("conversation with at least one turn is required")
	}

	prompt := buildPrompt(in, p.config.HistoryWindow, p.config.HistoryTokenBudget, p.counter)

	p.logger.Debug("generating candidate turn",
		zap.String("session_id", in.Conversation.SessionID),
		zap.String("persona_id", desc.ID),
		zap.Bool("revision", in.RevisionInstruction != ""),
		zap.Int("snippets", len(in.Snippets)))

	text, err := p.gen.Generate(ctx, gateway.GenerateRequest{
		System:      desc.SystemPrompt(),
		Prompt:      prompt,
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
	})
	if err != nil {
		return types.Turn{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return types.Turn{}, fmt.Errorf("generation gateway returned an empty reply")
	}
	return types.NewNPCTurn(desc.ID, text), nil
}
