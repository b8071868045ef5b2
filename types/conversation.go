package types

import (
	"fmt"
	"sort"
	"time"
)

// ConversationStatus is the lifecycle status of a simulation session.
type ConversationStatus string

const (
	StatusActive    ConversationStatus = "active"
	StatusCompleted ConversationStatus = "completed"
	StatusArchived  ConversationStatus = "archived"
)

// ScenarioState tracks the progression of a running training scenario.
// It is mutated only by the Director's audit step.
type ScenarioState struct {
	ScenarioID        string   `json:"scenario_id,omitempty"`
	Phase             string   `json:"phase"`
	ObjectivesTouched []string `json:"objectives_touched,omitempty"`
	ObjectivesTotal   int      `json:"objectives_total,omitempty"`
}

// TouchObjective records that the conversation reached an objective.
// Returns true if the objective was newly touched. The touched set is kept
// sorted so serialized state compares stably.
func (s *ScenarioState) TouchObjective(id string) bool {
	if id == "" || s.Touched(id) {
		return false
	}
	s.ObjectivesTouched = append(s.ObjectivesTouched, id)
	sort.Strings(s.ObjectivesTouched)
	return true
}

// Touched reports whether the objective has already been reached.
func (s *ScenarioState) Touched(id string) bool {
	for _, o := range s.ObjectivesTouched {
		if o == id {
			return true
		}
	}
	return false
}

// IsComplete reports whether every configured objective has been touched.
func (s *ScenarioState) IsComplete() bool {
	return s.ObjectivesTotal > 0 && len(s.ObjectivesTouched) >= s.ObjectivesTotal
}

// Clone returns a deep copy of the state.
func (s ScenarioState) Clone() ScenarioState {
	out := s
	out.ObjectivesTouched = append([]string(nil), s.ObjectivesTouched...)
	return out
}

// Conversation is the aggregate root for one simulation session between a
// learner and an NPC persona. The orchestrator exclusively owns the in-flight
// object for the duration of one advance call; the store owns the durable copy.
type Conversation struct {
	SessionID string             `json:"session_id"`
	PersonaID string             `json:"persona_id"`
	Scenario  ScenarioState      `json:"scenario"`
	Turns     []Turn             `json:"turns,omitempty"`
	Status    ConversationStatus `json:"status"`
	StartedAt time.Time          `json:"started_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewConversation creates an empty active conversation for a session.
func NewConversation(sessionID, personaID string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		SessionID: sessionID,
		PersonaID: personaID,
		Scenario:  ScenarioState{Phase: "introduction"},
		Status:    StatusActive,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// TurnCount returns the number of turns in the conversation.
func (c *Conversation) TurnCount() int { return len(c.Turns) }

// LastTurn returns the most recent turn, or nil for an empty conversation.
func (c *Conversation) LastTurn() *Turn {
	if len(c.Turns) == 0 {
		return nil
	}
	return &c.Turns[len(c.Turns)-1]
}

// AppendTurn numbers the turn and appends it. Insertion order is chronological
// order; the assigned numbers are contiguous starting at 1.
func (c *Conversation) AppendTurn(t Turn) Turn {
	t.Number = len(c.Turns) + 1
	c.Turns = append(c.Turns, t)
	c.UpdatedAt = time.Now().UTC()
	return t
}

// RecentTurns returns up to k of the most recent turns in chronological order.
func (c *Conversation) RecentTurns(k int) []Turn {
	if k <= 0 || len(c.Turns) == 0 {
		return nil
	}
	if k > len(c.Turns) {
		k = len(c.Turns)
	}
	return c.Turns[len(c.Turns)-k:]
}

// RecentUserTurns returns up to k of the most recent learner turns in
// chronological order.
func (c *Conversation) RecentUserTurns(k int) []Turn {
	if k <= 0 {
		return nil
	}
	out := make([]Turn, 0, k)
	for i := len(c.Turns) - 1; i >= 0 && len(out) < k; i-- {
		if c.Turns[i].Speaker == SpeakerUser {
			out = append(out, c.Turns[i])
		}
	}
	// Collected newest-first; reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Validate checks the turn numbering invariant: strictly increasing and
// contiguous starting at 1.
func (c *Conversation) Validate() error {
	for i, t := range c.Turns {
		if t.Number != i+1 {
			return fmt.Errorf("turn %d has number %d, want %d", i, t.Number, i+1)
		}
	}
	return nil
}

// Clone returns a deep copy, so stores can hand out snapshots without sharing
// the backing turn slice.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Scenario = c.Scenario.Clone()
	out.Turns = make([]Turn, len(c.Turns))
	for i, t := range c.Turns {
		t.SafetyFlags = append([]string(nil), t.SafetyFlags...)
		t.Intents = append([]string(nil), t.Intents...)
		out.Turns[i] = t
	}
	return &out
}
