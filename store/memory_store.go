package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edtronaut/coworker/types"
)

// MemoryStoreConfig configures the in-memory backend.
type MemoryStoreConfig struct {
	// MaxSessions caps stored sessions; oldest sessions are evicted first.
	// 0 means unbounded.
	MaxSessions int

	// Now is used in tests. Defaults to time.Now.
	Now func() time.Time
}

// MemoryStore keeps conversations in process memory. Used for tests, local
// development, and small deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.Conversation
	closed   bool

	maxSessions int
	now         func() time.Time
	logger      *zap.Logger
}

// NewMemoryStore creates an in-memory conversation store.
func NewMemoryStore(config MemoryStoreConfig, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		sessions:    make(map[string]*types.Conversation),
		maxSessions: config.MaxSessions,
		now:         now,
		logger:      logger.With(zap.String("component", "store_memory")),
	}
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*types.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	conv, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return conv.Clone(), nil
}

func (s *MemoryStore) Append(ctx context.Context, conv *types.Conversation, newTurns []types.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if conv == nil || conv.SessionID == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	stored, ok := s.sessions[conv.SessionID]
	if !ok {
		stored = types.NewConversation(conv.SessionID, conv.PersonaID)
		stored.StartedAt = conv.StartedAt
		s.sessions[conv.SessionID] = stored
		s.evictIfNeededLocked()
	}

	// Dedup by turn number: a retried call re-sends already persisted turns.
	for _, t := range newTurns {
		if t.Number > len(stored.Turns) {
			stored.Turns = append(stored.Turns, t)
		}
	}
	stored.Scenario = conv.Scenario.Clone()
	stored.Status = conv.Status
	stored.UpdatedAt = s.now().UTC()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if sessionID == "" {
		return false, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrStoreClosed
	}
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return ok, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]Summary, 0, len(s.sessions))
	for _, conv := range s.sessions {
		out = append(out, Summary{
			SessionID: conv.SessionID,
			PersonaID: conv.PersonaID,
			Status:    conv.Status,
			TurnCount: conv.TurnCount(),
			StartedAt: conv.StartedAt,
			UpdatedAt: conv.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) evictIfNeededLocked() {
	if s.maxSessions <= 0 || len(s.sessions) <= s.maxSessions {
		return
	}
	type kv struct {
		id      string
		started time.Time
	}
	all := make([]kv, 0, len(s.sessions))
	for id, conv := range s.sessions {
		all = append(all, kv{id: id, started: conv.StartedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].started.Before(all[j].started) })

	toEvict := len(s.sessions) - s.maxSessions
	for i := 0; i < toEvict && i < len(all); i++ {
		delete(s.sessions, all[i].id)
		s.logger.Debug("session evicted", zap.String("session_id", all[i].id))
	}
}

var _ ConversationStore = (*MemoryStore)(nil)
