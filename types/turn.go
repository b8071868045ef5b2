package types

import (
	"time"

	"github.com/google/uuid"
)

// Speaker identifies who produced a conversation turn.
type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerNPC  Speaker = "npc"
	// SpeakerDirector marks system turns injected by the supervisor when it
	// intervenes instead of letting an NPC reply through.
	SpeakerDirector Speaker = "director"
)

// Safety flags attached to turns by the orchestration pipeline.
const (
	// FlagForcedAccept marks a candidate that exhausted the revise budget and
	// was accepted as-is.
	FlagForcedAccept = "forced_accept"

	// FlagJailbreakAttempt marks a turn produced in response to a detected
	// prompt-injection or jailbreak attempt.
	FlagJailbreakAttempt = "jailbreak_attempt"

	// FlagOffTopic marks a turn flagged as steering the simulation off-topic.
	FlagOffTopic = "off_topic"

	// FlagDegradedContext marks a turn generated without retrieved knowledge
	// because the retrieval gateway failed.
	FlagDegradedContext = "degraded_context"

	// FlagAuditDegraded marks a turn whose supervisor audit could not complete
	// and was accepted without a consistency check.
	FlagAuditDegraded = "audit_degraded"
)

// Turn is one atomic utterance by a single speaker within a Conversation.
// Turns are immutable once appended; turn numbers are assigned by the owning
// Conversation and are strictly increasing and contiguous starting at 1.
type Turn struct {
	ID          string    `json:"id"`
	Number      int       `json:"number"`
	Speaker     Speaker   `json:"speaker"`
	Content     string    `json:"content"`
	NPCID       string    `json:"npc_id,omitempty"`
	SafetyFlags []string  `json:"safety_flags,omitempty"`
	Intents     []string  `json:"intents,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTurn creates an unnumbered turn. The turn number is assigned when the
// turn is appended to a Conversation.
func NewTurn(speaker Speaker, content string) Turn {
	return Turn{
		ID:        uuid.New().String(),
		Speaker:   speaker,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// NewUserTurn creates a turn spoken by the learner.
func NewUserTurn(content string) Turn {
	return NewTurn(SpeakerUser, content)
}

// NewNPCTurn creates a turn spoken by the given NPC persona.
func NewNPCTurn(npcID, content string) Turn {
	t := NewTurn(SpeakerNPC, content)
	t.NPCID = npcID
	return t
}

// NewDirectorTurn creates a supervisor system turn.
func NewDirectorTurn(content string) Turn {
	return NewTurn(SpeakerDirector, content)
}

// WithIntents returns a copy of the turn with the detected intents attached.
func (t Turn) WithIntents(intents []string) Turn {
	t.Intents = intents
	return t
}

// WithSafetyFlag returns a copy of the turn with the flag appended, skipping
// duplicates.
func (t Turn) WithSafetyFlag(flag string) Turn {
	if t.HasSafetyFlag(flag) {
		return t
	}
	flags := make([]string, 0, len(t.SafetyFlags)+1)
	flags = append(flags, t.SafetyFlags...)
	t.SafetyFlags = append(flags, flag)
	return t
}

// HasSafetyFlag reports whether the turn carries the given flag.
func (t Turn) HasSafetyFlag(flag string) bool {
	for _, f := range t.SafetyFlags {
		if f == flag {
			return true
		}
	}
	return false
}
