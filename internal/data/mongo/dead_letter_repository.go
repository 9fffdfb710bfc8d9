package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/todaysales-settlement/internal/domain/deadletter"
)

const (
	// DeadLetterCollectionName is the name of the DLQ archive collection in MongoDB
	DeadLetterCollectionName = "dead_letters"
)

// DeadLetterRepository implements the deadletter.Repository interface for MongoDB.
// All DLQs share one collection keyed by queue name.
type DeadLetterRepository struct {
	db        *mongo.Database
	logger    *slog.Logger
	queues    map[string]struct{}
	maxLength int64
	ttl       time.Duration
}

// NewDeadLetterRepository creates a DLQ archive for the given queues. maxLength bounds
// each queue, ttl is the retention of a single entry.
func NewDeadLetterRepository(logger *slog.Logger, db *mongo.Database, queues []string, maxLength int64, ttl time.Duration) *DeadLetterRepository {
	known := make(map[string]struct{}, len(queues))
	for _, q := range queues {
		known[q] = struct{}{}
	}
	return &DeadLetterRepository{
		db:        db,
		logger:    logger,
		queues:    known,
		maxLength: maxLength,
		ttl:       ttl,
	}
}

func (r *DeadLetterRepository) collection() *mongo.Collection {
	return r.db.Collection(DeadLetterCollectionName)
}

func (r *DeadLetterRepository) checkQueue(queue string) error {
	if _, ok := r.queues[queue]; !ok {
		return deadletter.ErrUnknownQueue{Queue: queue}
	}
	return nil
}

// EnsureIndexes creates the TTL index that expires archived messages and the
// per-queue ordering index.
func (r *DeadLetterRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "dead_lettered_at", Value: 1}},
			Options: options.Index().SetName("ttl_dead_lettered_at").SetExpireAfterSeconds(int32(r.ttl.Seconds())),
		},
		{
			Keys:    bson.D{{Key: "queue", Value: 1}, {Key: "dead_lettered_at", Value: -1}},
			Options: options.Index().SetName("queue_dead_lettered_at"),
		},
	}

	if _, err := r.collection().Indexes().CreateMany(ctx, models); err != nil {
		r.logger.Error("Failed to create dead-letter indexes", "error", err)
		return fmt.Errorf("failed to create dead-letter indexes: %w", err)
	}
	return nil
}

// Archive stores msg and trims the oldest entries of its queue beyond the max length.
func (r *DeadLetterRepository) Archive(ctx context.Context, msg *deadletter.Message) error {
	if err := r.checkQueue(msg.Queue); err != nil {
		return err
	}
	if msg.DeadLetteredAt.IsZero() {
		msg.DeadLetteredAt = time.Now().UTC()
	}

	if _, err := r.collection().InsertOne(ctx, msg); err != nil {
		r.logger.Error("Failed to archive dead-lettered message",
			"queue", msg.Queue,
			"event_id", msg.EventID,
			"error", err)
		return fmt.Errorf("failed to archive dead-lettered message: %w", err)
	}

	return r.trim(ctx, msg.Queue)
}

func (r *DeadLetterRepository) trim(ctx context.Context, queue string) error {
	if r.maxLength <= 0 {
		return nil
	}

	filter := bson.M{"queue": queue}
	count, err := r.collection().CountDocuments(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to count dead-lettered messages: %w", err)
	}
	excess := count - r.maxLength
	if excess <= 0 {
		return nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "dead_lettered_at", Value: 1}}).
		SetLimit(excess).
		SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("failed to find oldest dead-lettered messages: %w", err)
	}
	defer cursor.Close(ctx)

	var oldest []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &oldest); err != nil {
		return fmt.Errorf("failed to decode oldest dead-lettered messages: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(oldest))
	for _, doc := range oldest {
		ids = append(ids, doc.ID)
	}

	result, err := r.collection().DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return fmt.Errorf("failed to trim dead-letter queue %s: %w", queue, err)
	}
	r.logger.Warn("Dead-letter queue over max length, dropped oldest messages",
		"queue", queue,
		"dropped", result.DeletedCount,
		"max_length", r.maxLength)
	return nil
}

// Counts returns the number of archived messages for every known DLQ, zero included.
func (r *DeadLetterRepository) Counts(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$queue"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.collection().Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("Failed to count dead-lettered messages", "error", err)
		return nil, fmt.Errorf("failed to count dead-lettered messages: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Queue string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode dead-letter counts: %w", err)
	}

	counts := make(map[string]int64, len(r.queues))
	for q := range r.queues {
		counts[q] = 0
	}
	for _, g := range groups {
		if _, ok := r.queues[g.Queue]; ok {
			counts[g.Queue] = g.Count
		}
	}
	return counts, nil
}

// Latest returns up to limit archived messages of queue, newest first.
func (r *DeadLetterRepository) Latest(ctx context.Context, queue string, limit int) ([]*deadletter.Message, error) {
	if err := r.checkQueue(queue); err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "dead_lettered_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection().Find(ctx, bson.M{"queue": queue}, opts)
	if err != nil {
		r.logger.Error("Failed to get dead-lettered messages", "queue", queue, "error", err)
		return nil, fmt.Errorf("failed to get dead-lettered messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*deadletter.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode dead-lettered messages: %w", err)
	}
	return messages, nil
}

// Purge removes every archived message of queue.
func (r *DeadLetterRepository) Purge(ctx context.Context, queue string) (int64, error) {
	if err := r.checkQueue(queue); err != nil {
		return 0, err
	}

	result, err := r.collection().DeleteMany(ctx, bson.M{"queue": queue})
	if err != nil {
		r.logger.Error("Failed to purge dead-letter queue", "queue", queue, "error", err)
		return 0, fmt.Errorf("failed to purge dead-letter queue: %w", err)
	}

	r.logger.Info("Purged dead-letter queue", "queue", queue, "deleted", result.DeletedCount)
	return result.DeletedCount, nil
}
