package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/edtronaut/coworker/types"
)

// conversationRecord is the sessions table.
type conversationRecord struct {
	SessionID    string `gorm:"primaryKey;size:128"`
	PersonaID    string `gorm:"size:128"`
	Status       string `gorm:"size:32"`
	ScenarioJSON string `gorm:"type:text"`
	StartedAt    time.Time
	UpdatedAt    time.Time
}

func (conversationRecord) TableName() string { return "conversations" }

// turnRecord is the turns table. The unique (session_id, number) index makes
// appends idempotent by turn number.
type turnRecord struct {
	ID          string `gorm:"primaryKey;size:64"`
	SessionID   string `gorm:"size:128;uniqueIndex:idx_session_turn,priority:1;index"`
	Number      int    `gorm:"uniqueIndex:idx_session_turn,priority:2"`
	Speaker     string `gorm:"size:16"`
	Content     string `gorm:"type:text"`
	NPCID       string `gorm:"size:128"`
	FlagsJSON   string `gorm:"type:text"`
	IntentsJSON string `gorm:"type:text"`
	CreatedAt   time.Time
}

func (turnRecord) TableName() string { return "turns" }

// GormStore is the durable relational backend.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPostgresStore opens a Postgres-backed store.
func NewPostgresStore(config DatabaseConfig, logger *zap.Logger) (*GormStore, error) {
	return newGormStore(postgres.Open(config.DSN), config, logger)
}

// NewMySQLStore opens a MySQL-backed store.
func NewMySQLStore(config DatabaseConfig, logger *zap.Logger) (*GormStore, error) {
	return newGormStore(mysql.Open(config.DSN), config, logger)
}

// NewSQLiteStore opens a SQLite-backed store (cgo-free driver). The DSN is
// the database file path; ":memory:" gives an ephemeral database.
func NewSQLiteStore(config DatabaseConfig, logger *zap.Logger) (*GormStore, error) {
	return newGormStore(sqlite.Open(config.DSN), config, logger)
}

// NewGormStore wraps an already opened gorm DB. Used by tests that supply
// their own connection.
func NewGormStore(db *gorm.DB, logger *zap.Logger) (*GormStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&conversationRecord{}, &turnRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &GormStore{
		db:     db,
		logger: logger.With(zap.String("component", "store_gorm")),
	}, nil
}

func newGormStore(dialector gorm.Dialector, config DatabaseConfig, logger *zap.Logger) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	return NewGormStore(db, logger)
}

func (s *GormStore) Load(ctx context.Context, sessionID string) (*types.Conversation, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}

	var rec conversationRecord
	err := s.db.WithContext(ctx).First(&rec, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var turnRecs []turnRecord
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("number ASC").
		Find(&turnRecs).Error; err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	conv := &types.Conversation{
		SessionID: rec.SessionID,
		PersonaID: rec.PersonaID,
		Status:    types.ConversationStatus(rec.Status),
		StartedAt: rec.StartedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if rec.ScenarioJSON != "" {
		if err := json.Unmarshal([]byte(rec.ScenarioJSON), &conv.Scenario); err != nil {
			return nil, fmt.Errorf("decode scenario state: %w", err)
		}
	}
	conv.Turns = make([]types.Turn, 0, len(turnRecs))
	for _, tr := range turnRecs {
		t, err := tr.toTurn()
		if err != nil {
			return nil, err
		}
		conv.Turns = append(conv.Turns, t)
	}
	return conv, nil
}

func (s *GormStore) Append(ctx context.Context, conv *types.Conversation, newTurns []types.Turn) error {
	if conv == nil || conv.SessionID == "" {
		return ErrInvalidInput
	}

	scenario, err := json.Marshal(conv.Scenario)
	if err != nil {
		return fmt.Errorf("encode scenario state: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := conversationRecord{
			SessionID:    conv.SessionID,
			PersonaID:    conv.PersonaID,
			Status:       string(conv.Status),
			ScenarioJSON: string(scenario),
			StartedAt:    conv.StartedAt,
			UpdatedAt:    time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "scenario_json", "updated_at"}),
		}).Create(&rec).Error; err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}

		for _, t := range newTurns {
			tr, err := toTurnRecord(conv.SessionID, t)
			if err != nil {
				return err
			}
			// DoNothing on the (session_id, number) conflict: a retried
			// append of already persisted turns is a no-op.
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "session_id"}, {Name: "number"}},
				DoNothing: true,
			}).Create(&tr).Error; err != nil {
				return fmt.Errorf("insert turn %d: %w", t.Number, err)
			}
		}
		return nil
	})
}

func (s *GormStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, ErrInvalidInput
	}
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&conversationRecord{}, "session_id = ?", sessionID)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return tx.Delete(&turnRecord{}, "session_id = ?", sessionID).Error
	})
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return deleted, nil
}

func (s *GormStore) List(ctx context.Context) ([]Summary, error) {
	var recs []conversationRecord
	if err := s.db.WithContext(ctx).Order("session_id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]Summary, 0, len(recs))
	for _, rec := range recs {
		var count int64
		if err := s.db.WithContext(ctx).Model(&turnRecord{}).
			Where("session_id = ?", rec.SessionID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("count turns: %w", err)
		}
		out = append(out, Summary{
			SessionID: rec.SessionID,
			PersonaID: rec.PersonaID,
			Status:    types.ConversationStatus(rec.Status),
			TurnCount: int(count),
			StartedAt: rec.StartedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return out, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toTurnRecord(sessionID string, t types.Turn) (turnRecord, error) {
	flags, err := json.Marshal(t.SafetyFlags)
	if err != nil {
		return turnRecord{}, fmt.Errorf("encode safety flags: %w", err)
	}
	intents, err := json.Marshal(t.Intents)
	if err != nil {
		return turnRecord{}, fmt.Errorf("encode intents: %w", err)
	}
	return turnRecord{
		ID:          t.ID,
		SessionID:   sessionID,
		Number:      t.Number,
		Speaker:     string(t.Speaker),
		Content:     t.Content,
		NPCID:       t.NPCID,
		FlagsJSON:   string(flags),
		IntentsJSON: string(intents),
		CreatedAt:   t.CreatedAt,
	}, nil
}

func (tr turnRecord) toTurn() (types.Turn, error) {
	t := types.Turn{
		ID:        tr.ID,
		Number:    tr.Number,
		Speaker:   types.Speaker(tr.Speaker),
		Content:   tr.Content,
		NPCID:     tr.NPCID,
		CreatedAt: tr.CreatedAt,
	}
	if tr.FlagsJSON != "" {
		if err := json.Unmarshal([]byte(tr.FlagsJSON), &t.SafetyFlags); err != nil {
			return types.Turn{}, fmt.Errorf("decode safety flags: %w", err)
		}
	}
	if tr.IntentsJSON != "" {
		if err := json.Unmarshal([]byte(tr.IntentsJSON), &t.Intents); err != nil {
			return types.Turn{}, fmt.Errorf("decode intents: %w", err)
		}
	}
	return t, nil
}

var _ ConversationStore = (*GormStore)(nil)
