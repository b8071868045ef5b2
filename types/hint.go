package types

import (
	"time"

	"github.com/google/uuid"
)

// HintSeverity grades a coaching hint.
type HintSeverity string

const (
	HintSuggestion HintSeverity = "suggestion"
	HintWarning    HintSeverity = "warning"
	HintPraise     HintSeverity = "praise"
)

// Hint is ephemeral coaching text produced by the Director for a single turn.
// Hints are returned to the caller and never persisted as part of turn history.
type Hint struct {
	ID        string       `json:"id"`
	Content   string       `json:"content"`
	Severity  HintSeverity `json:"severity"`
	Relevance float64      `json:"relevance,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewHint creates a hint with the given severity.
func NewHint(content string, severity HintSeverity) *Hint {
	if severity == "" {
		severity = HintSuggestion
	}
	return &Hint{
		ID:        uuid.New().String(),
		Content:   content,
		Severity:  severity,
		CreatedAt: time.Now().UTC(),
	}
}

// TurnResult is the outcome of advancing a conversation by one user message.
// Turn is either the accepted NPC turn or the Director's intervention turn.
type TurnResult struct {
	SessionID   string   `json:"session_id"`
	Turn        Turn     `json:"turn"`
	Hint        *Hint    `json:"hint,omitempty"`
	SafetyFlags []string `json:"safety_flags,omitempty"`
	TurnCount   int      `json:"turn_count"`
}
