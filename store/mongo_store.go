package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/edtronaut/coworker/types"
)

// conversationDoc is the per-session document. Storing the whole aggregate in
// one document keeps Append a single atomic replace.
type conversationDoc struct {
	SessionID string              `bson:"_id"`
	PersonaID string              `bson:"persona_id"`
	Status    string              `bson:"status"`
	Scenario  types.ScenarioState `bson:"scenario"`
	Turns     []types.Turn        `bson:"turns,omitempty"`
	StartedAt time.Time           `bson:"started_at"`
	UpdatedAt time.Time           `bson:"updated_at"`
}

// MongoStore is the durable document backend.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *zap.Logger
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(config MongoConfig, logger *zap.Logger) (*MongoStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := mongo.Connect(options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	database := config.Database
	if database == "" {
		database = "coworker"
	}
	collection := config.Collection
	if collection == "" {
		collection = "conversations"
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
		logger: logger.With(zap.String("component", "store_mongo")),
	}, nil
}

func (s *MongoStore) Load(ctx context.Context, sessionID string) (*types.Conversation, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	var doc conversationDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo load: %w", err)
	}
	return docToConversation(doc), nil
}

const mongoAppendRetries = 3

// Append merges the new turns into the stored aggregate and replaces the
// session document. The replace is filtered on the turn count seen during the
// read, so a concurrent writer makes the filter miss and the merge is retried
// instead of overwriting the other writer's turns. Replaying already persisted
// turn numbers is a no-op, so retries are idempotent.
func (s *MongoStore) Append(ctx context.Context, conv *types.Conversation, newTurns []types.Turn) error {
	if conv == nil || conv.SessionID == "" {
		return ErrInvalidInput
	}

	for attempt := 0; attempt < mongoAppendRetries; attempt++ {
		merged := conv.Turns
		known := 0
		var stored conversationDoc
		err := s.coll.FindOne(ctx, bson.M{"_id": conv.SessionID}).Decode(&stored)
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			// First append for this session.
		case err != nil:
			return fmt.Errorf("mongo append: %w", err)
		default:
			known = len(stored.Turns)
			merged = mergeTurns(stored.Turns, newTurns)
		}

		doc := conversationDoc{
			SessionID: conv.SessionID,
			PersonaID: conv.PersonaID,
			Status:    string(conv.Status),
			Scenario:  conv.Scenario.Clone(),
			Turns:     merged,
			StartedAt: conv.StartedAt,
			UpdatedAt: time.Now().UTC(),
		}
		res, err := s.coll.ReplaceOne(ctx, appendFilter(conv.SessionID, known), doc,
			options.Replace().SetUpsert(true))
		switch {
		case mongo.IsDuplicateKeyError(err):
			// Another writer created the document first. Reread and merge.
		case err != nil:
			return fmt.Errorf("mongo append: %w", err)
		case res.MatchedCount > 0 || res.UpsertedCount > 0:
			return nil
		}
		// The turn count moved between read and replace. Reread and merge.
		s.logger.Debug("append contention, retrying",
			zap.String("session_id", conv.SessionID), zap.Int("attempt", attempt+1))
	}
	return fmt.Errorf("mongo append: session %s contended for %d attempts", conv.SessionID, mongoAppendRetries)
}

// mergeTurns appends the turns the stored document does not hold yet. Turns
// whose numbers are already persisted are dropped.
func mergeTurns(stored []types.Turn, newTurns []types.Turn) []types.Turn {
	merged := stored
	for _, t := range newTurns {
		if t.Number > len(merged) {
			merged = append(merged, t)
		}
	}
	return merged
}

// appendFilter matches the session document only while it still holds exactly
// knownTurns turns. The turns field is omitted from empty documents, so zero
// is expressed as absence.
func appendFilter(sessionID string, knownTurns int) bson.M {
	filter := bson.M{"_id": sessionID}
	if knownTurns == 0 {
		filter["turns"] = bson.M{"$exists": false}
	} else {
		filter["turns"] = bson.M{"$size": knownTurns}
	}
	return filter
}

func (s *MongoStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, ErrInvalidInput
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": sessionID})
	if err != nil {
		return false, fmt.Errorf("mongo delete: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) List(ctx context.Context) ([]Summary, error) {
	cursor, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("mongo list: %w", err)
	}
	defer cursor.Close(ctx)

	var out []Summary
	for cursor.Next(ctx) {
		var doc conversationDoc
		if err := cursor.Decode(&doc); err != nil {
			s.logger.Warn("skipping corrupt session document", zap.Error(err))
			continue
		}
		out = append(out, Summary{
			SessionID: doc.SessionID,
			PersonaID: doc.PersonaID,
			Status:    types.ConversationStatus(doc.Status),
			TurnCount: len(doc.Turns),
			StartedAt: doc.StartedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo list: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func docToConversation(doc conversationDoc) *types.Conversation {
	return &types.Conversation{
		SessionID: doc.SessionID,
		PersonaID: doc.PersonaID,
		Status:    types.ConversationStatus(doc.Status),
		Scenario:  doc.Scenario,
		Turns:     doc.Turns,
		StartedAt: doc.StartedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

var _ ConversationStore = (*MongoStore)(nil)
