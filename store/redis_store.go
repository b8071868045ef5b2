package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/edtronaut/coworker/types"
)

// RedisStore keeps conversations in Redis as JSON with a session TTL.
// It is the fast ephemeral backend: sessions expire after inactivity.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(config RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	keyPrefix := config.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "coworker:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix + "session:",
		ttl:       config.SessionTTL,
		logger:    logger.With(zap.String("component", "store_redis")),
	}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*types.Conversation, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis load: %w", err)
	}
	var conv types.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, nil
}

// Append merges the new turns into the stored conversation under optimistic
// locking (WATCH), so the write is all-or-nothing even if the key changes
// concurrently. Turns whose numbers are already persisted are skipped.
func (s *RedisStore) Append(ctx context.Context, conv *types.Conversation, newTurns []types.Turn) error {
	if conv == nil || conv.SessionID == "" {
		return ErrInvalidInput
	}
	key := s.key(conv.SessionID)

	txn := func(tx *redis.Tx) error {
		stored := types.NewConversation(conv.SessionID, conv.PersonaID)
		stored.StartedAt = conv.StartedAt

		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			// First append for this session.
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(data, stored); err != nil {
				return fmt.Errorf("decode conversation: %w", err)
			}
		}

		for _, t := range newTurns {
			if t.Number > len(stored.Turns) {
				stored.Turns = append(stored.Turns, t)
			}
		}
		stored.Scenario = conv.Scenario.Clone()
		stored.Status = conv.Status
		stored.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("encode conversation: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		return err
	}

	// Retry on WATCH conflicts; orchestrator-level serialization makes
	// conflicts rare, but the store does not rely on it.
	for attempt := 0; attempt < 3; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("redis append: %w", err)
		}
	}
	return fmt.Errorf("redis append: too many write conflicts for session %s", conv.SessionID)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, ErrInvalidInput
	}
	deleted, err := s.client.Del(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis delete: %w", err)
	}
	return deleted > 0, nil
}

func (s *RedisStore) List(ctx context.Context) ([]Summary, error) {
	var out []Summary
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue // expired between SCAN and GET
		}
		var conv types.Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			s.logger.Warn("skipping corrupt session record", zap.String("key", iter.Val()))
			continue
		}
		out = append(out, Summary{
			SessionID: conv.SessionID,
			PersonaID: conv.PersonaID,
			Status:    conv.Status,
			TurnCount: conv.TurnCount(),
			StartedAt: conv.StartedAt,
			UpdatedAt: conv.UpdatedAt,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ ConversationStore = (*RedisStore)(nil)
