package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendTurn_NumbersContiguously(t *testing.T) {
	conv := NewConversation("s1", "gucci_chro")

	first := conv.AppendTurn(NewUserTurn("hello"))
	second := conv.AppendTurn(NewNPCTurn("gucci_chro", "hi"))
	third := conv.AppendTurn(NewUserTurn("about my raise"))

	assert.Equal(t, 1, first.Number)
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, 3, third.Number)
	assert.NoError(t, conv.Validate())
}

func TestValidate_DetectsBrokenNumbering(t *testing.T) {
	conv := NewConversation("s1", "gucci_chro")
	conv.AppendTurn(NewUserTurn("hello"))
	conv.Turns[0].Number = 7

	assert.Error(t, conv.Validate())
}

func TestRecentTurns(t *testing.T) {
	conv := NewConversation("s1", "gucci_chro")
	for i := 0; i < 5; i++ {
		conv.AppendTurn(NewUserTurn("m"))
	}

	assert.Nil(t, conv.RecentTurns(0))
	assert.Len(t, conv.RecentTurns(3), 3)
	assert.Equal(t, 3, conv.RecentTurns(3)[0].Number)
	assert.Len(t, conv.RecentTurns(100), 5)
}

func TestRecentUserTurns_SkipsOtherSpeakersAndKeepsOrder(t *testing.T) {
	conv := NewConversation("s1", "gucci_chro")
	conv.AppendTurn(NewUserTurn("one"))
	conv.AppendTurn(NewNPCTurn("gucci_chro", "reply"))
	conv.AppendTurn(NewUserTurn("two"))
	conv.AppendTurn(NewDirectorTurn("redirect"))
	conv.AppendTurn(NewUserTurn("three"))

	got := conv.RecentUserTurns(2)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Content)
	assert.Equal(t, "three", got[1].Content)
}

func TestClone_IsDeep(t *testing.T) {
	conv := NewConversation("s1", "gucci_chro")
	conv.AppendTurn(NewUserTurn("hello").WithIntents([]string{"greeting"}))
	conv.Scenario.TouchObjective("negotiation_opened")

	clone := conv.Clone()
	clone.Turns[0].Intents[0] = "mutated"
	clone.Scenario.TouchObjective("agreement_reached")
	clone.AppendTurn(NewUserTurn("extra"))

	assert.Equal(t, "greeting", conv.Turns[0].Intents[0])
	assert.Equal(t, []string{"negotiation_opened"}, conv.Scenario.ObjectivesTouched)
	assert.Len(t, conv.Turns, 1)
}

func TestScenarioState_TouchObjective(t *testing.T) {
	var s ScenarioState
	s.ObjectivesTotal = 2

	assert.True(t, s.TouchObjective("b"))
	assert.False(t, s.TouchObjective("b"))
	assert.False(t, s.TouchObjective(""))
	assert.False(t, s.IsComplete())

	assert.True(t, s.TouchObjective("a"))
	assert.Equal(t, []string{"a", "b"}, s.ObjectivesTouched)
	assert.True(t, s.IsComplete())
}

func TestScenarioState_IsCompleteNeedsConfiguredTotal(t *testing.T) {
	var s ScenarioState
	s.TouchObjective("anything")
	assert.False(t, s.IsComplete())
}

func TestTurn_WithSafetyFlagDeduplicates(t *testing.T) {
	turn := NewNPCTurn("gucci_chro", "hello").
		WithSafetyFlag(FlagForcedAccept).
		WithSafetyFlag(FlagForcedAccept).
		WithSafetyFlag(FlagDegradedContext)

	assert.Equal(t, []string{FlagForcedAccept, FlagDegradedContext}, turn.SafetyFlags)
	assert.True(t, turn.HasSafetyFlag(FlagForcedAccept))
	assert.False(t, turn.HasSafetyFlag(FlagJailbreakAttempt))
}

func TestTurn_BuildersDoNotShareBackingArrays(t *testing.T) {
	base := NewUserTurn("hello").WithSafetyFlag("a")
	b := base.WithSafetyFlag("b")
	c := base.WithSafetyFlag("c")

	assert.Equal(t, []string{"a", "b"}, b.SafetyFlags)
	assert.Equal(t, []string{"a", "c"}, c.SafetyFlags)
	assert.Equal(t, []string{"a"}, base.SafetyFlags)
}
