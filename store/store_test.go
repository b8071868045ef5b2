package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edtronaut/coworker/types"
)

// runStoreSuite exercises the ConversationStore contract. Every backend that
// can run hermetically in tests goes through the same suite.
func runStoreSuite(t *testing.T, open func(t *testing.T) ConversationStore) {
	t.Helper()
	ctx := context.Background()

	newConv := func(sessionID string, messages ...string) *types.Conversation {
		conv := types.NewConversation(sessionID, "gucci_chro")
		for i, m := range messages {
			if i%2 == 0 {
				conv.AppendTurn(types.NewUserTurn(m))
			} else {
				conv.AppendTurn(types.NewNPCTurn("gucci_chro", m))
			}
		}
		return conv
	}

	t.Run("load missing session", func(t *testing.T) {
		s := open(t)
		_, err := s.Load(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("append creates and round-trips", func(t *testing.T) {
		s := open(t)
		conv := newConv("s1", "I want a raise.", "Tell me more.")
		conv.Turns[0] = conv.Turns[0].
			WithIntents([]string{"negotiation"}).
			WithSafetyFlag(types.FlagDegradedContext)
		conv.Scenario.TouchObjective("negotiation_opened")
		conv.Scenario.ObjectivesTotal = 4
		conv.Scenario.Phase = "negotiation"

		require.NoError(t, s.Append(ctx, conv, conv.Turns))

		got, err := s.Load(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "gucci_chro", got.PersonaID)
		assert.Equal(t, types.StatusActive, got.Status)
		require.Len(t, got.Turns, 2)
		assert.Equal(t, 1, got.Turns[0].Number)
		assert.Equal(t, "I want a raise.", got.Turns[0].Content)
		assert.Equal(t, []string{"negotiation"}, got.Turns[0].Intents)
		assert.True(t, got.Turns[0].HasSafetyFlag(types.FlagDegradedContext))
		assert.Equal(t, types.SpeakerNPC, got.Turns[1].Speaker)
		assert.Equal(t, "gucci_chro", got.Turns[1].NPCID)
		assert.Equal(t, []string{"negotiation_opened"}, got.Scenario.ObjectivesTouched)
		assert.Equal(t, "negotiation", got.Scenario.Phase)
		assert.NoError(t, got.Validate())
	})

	t.Run("append is idempotent by turn number", func(t *testing.T) {
		s := open(t)
		conv := newConv("s1", "hello", "hi")
		require.NoError(t, s.Append(ctx, conv, conv.Turns))

		// A retried call re-sends the same turns.
		require.NoError(t, s.Append(ctx, conv, conv.Turns))

		got, err := s.Load(ctx, "s1")
		require.NoError(t, err)
		assert.Len(t, got.Turns, 2)
		assert.NoError(t, got.Validate())
	})

	t.Run("append accumulates across invocations", func(t *testing.T) {
		s := open(t)
		conv := newConv("s1", "one", "two")
		require.NoError(t, s.Append(ctx, conv, conv.Turns))

		third := conv.AppendTurn(types.NewUserTurn("three"))
		fourth := conv.AppendTurn(types.NewNPCTurn("gucci_chro", "four"))
		conv.Status = types.StatusCompleted
		require.NoError(t, s.Append(ctx, conv, []types.Turn{third, fourth}))

		got, err := s.Load(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, got.Turns, 4)
		assert.Equal(t, "three", got.Turns[2].Content)
		assert.Equal(t, types.StatusCompleted, got.Status)
		assert.NoError(t, got.Validate())
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		conv := newConv("s1", "hello")
		require.NoError(t, s.Append(ctx, conv, conv.Turns))

		deleted, err := s.Delete(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = s.Load(ctx, "s1")
		assert.ErrorIs(t, err, ErrNotFound)

		deleted, err = s.Delete(ctx, "s1")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("list", func(t *testing.T) {
		s := open(t)
		a := newConv("a", "hello", "hi")
		b := newConv("b", "hey")
		require.NoError(t, s.Append(ctx, a, a.Turns))
		require.NoError(t, s.Append(ctx, b, b.Turns))

		summaries, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 2)

		byID := map[string]Summary{}
		for _, sum := range summaries {
			byID[sum.SessionID] = sum
		}
		assert.Equal(t, 2, byID["a"].TurnCount)
		assert.Equal(t, 1, byID["b"].TurnCount)
		assert.Equal(t, "gucci_chro", byID["a"].PersonaID)
	})

	t.Run("ping", func(t *testing.T) {
		s := open(t)
		assert.NoError(t, s.Ping(ctx))
	})

	t.Run("invalid input", func(t *testing.T) {
		s := open(t)
		_, err := s.Load(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.ErrorIs(t, s.Append(ctx, nil, nil), ErrInvalidInput)
		_, err = s.Delete(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestMemoryStore_Suite(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) ConversationStore {
		s := NewMemoryStore(MemoryStoreConfig{}, zap.NewNop())
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestRedisStore_Suite(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) ConversationStore {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)

		s, err := NewRedisStore(RedisConfig{Addr: mr.Addr()}, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteStore_Suite(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) ConversationStore {
		s, err := NewSQLiteStore(DatabaseConfig{DSN: ":memory:"}, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestNew_SelectsBackend(t *testing.T) {
	s, err := New(Config{Type: TypeMemory}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New(Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New(Config{Type: TypeSQLite, Database: DatabaseConfig{DSN: ":memory:"}}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &GormStore{}, s)
	s.Close()

	_, err = New(Config{Type: "etcd"}, zap.NewNop())
	assert.Error(t, err)
}
