package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edtronaut/coworker/types"
)

// Common errors.
var (
	ErrNotFound     = errors.New("session not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// Type selects the storage backend.
type Type string

const (
	TypeMemory   Type = "memory"
	TypeRedis    Type = "redis"
	TypePostgres Type = "postgres"
	TypeMySQL    Type = "mysql"
	TypeSQLite   Type = "sqlite"
	TypeMongo    Type = "mongo"
)

// Summary is a lightweight listing entry for a stored session.
type Summary struct {
	SessionID string                   `json:"session_id"`
	PersonaID string                   `json:"persona_id"`
	Status    types.ConversationStatus `json:"status"`
	TurnCount int                      `json:"turn_count"`
	StartedAt time.Time                `json:"started_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// ConversationStore is the single writer of record for conversation state.
//
// Append persists the turns added in one orchestrator invocation together
// with the updated scenario state, atomically (all-or-nothing) and
// idempotently (turns whose numbers are already persisted are skipped).
// conv carries the session metadata and the full updated aggregate; the
// record is created on first append.
type ConversationStore interface {
	// Load returns a snapshot of the stored conversation, or ErrNotFound.
	Load(ctx context.Context, sessionID string) (*types.Conversation, error)

	// Append atomically persists newTurns and the conversation's scenario
	// state and status.
	Append(ctx context.Context, conv *types.Conversation, newTurns []types.Turn) error

	// Delete removes the session. Returns true if something was deleted.
	Delete(ctx context.Context, sessionID string) (bool, error)

	// List returns summaries of all stored sessions.
	List(ctx context.Context) ([]Summary, error)

	// Ping checks backend health.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr       string        `yaml:"addr" json:"addr"`
	Password   string        `yaml:"password" json:"password"`
	DB         int           `yaml:"db" json:"db"`
	KeyPrefix  string        `yaml:"key_prefix" json:"key_prefix"`
	SessionTTL time.Duration `yaml:"session_ttl" json:"session_ttl"`
	PoolSize   int           `yaml:"pool_size" json:"pool_size"`
}

// DatabaseConfig configures the relational backend.
type DatabaseConfig struct {
	// DSN is the driver-specific connection string. For sqlite it is the
	// database file path (":memory:" for an ephemeral database).
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// MongoConfig configures the document backend.
type MongoConfig struct {
	URI        string `yaml:"uri" json:"uri"`
	Database   string `yaml:"database" json:"database"`
	Collection string `yaml:"collection" json:"collection"`
}

// Config selects and configures a backend.
type Config struct {
	Type     Type           `yaml:"type" json:"type"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Mongo    MongoConfig    `yaml:"mongo" json:"mongo"`
}

// DefaultConfig returns an in-memory store configuration.
func DefaultConfig() Config {
	return Config{
		Type: TypeMemory,
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			KeyPrefix:  "coworker:",
			SessionTTL: 30 * time.Minute,
			PoolSize:   10,
		},
		Mongo: MongoConfig{
			Database:   "coworker",
			Collection: "conversations",
		},
	}
}

// New creates the backend selected by the configuration.
func New(config Config, logger *zap.Logger) (ConversationStore, error) {
	switch config.Type {
	case TypeMemory, "":
		return NewMemoryStore(MemoryStoreConfig{}, logger), nil
	case TypeRedis:
		return NewRedisStore(config.Redis, logger)
	case TypePostgres:
		return NewPostgresStore(config.Database, logger)
	case TypeMySQL:
		return NewMySQLStore(config.Database, logger)
	case TypeSQLite:
		return NewSQLiteStore(config.Database, logger)
	case TypeMongo:
		return NewMongoStore(config.Mongo, logger)
	default:
		return nil, fmt.Errorf("unknown store type %q", config.Type)
	}
}
