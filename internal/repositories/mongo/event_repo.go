package mongo

import (
	"context"
	"time"

	"github.com/yoockh/yoopersona/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EventRepository interface {
	Append(ctx context.Context, ev *models.InteractionEvent) error
	ListByInteraction(ctx context.Context, interactionID string, limit int64) ([]models.InteractionEvent, error)
}

type eventRepo struct {
	col *mongo.Collection
	ttl time.Duration
}

func NewEventRepo(db *mongo.Database, ttl time.Duration) EventRepository {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &eventRepo{col: db.Collection("interaction_events"), ttl: ttl}
}

func (r *eventRepo) Append(ctx context.Context, ev *models.InteractionEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.ExpiresAt.IsZero() {
		ev.ExpiresAt = ev.Timestamp.Add(r.ttl)
	}
	_, err := r.col.InsertOne(ctx, ev)
	return err
}

func (r *eventRepo) ListByInteraction(ctx context.Context, interactionID string, limit int64) ([]models.InteractionEvent, error) {
	if limit <= 0 {
		limit = 200
	}

	cur, err := r.col.Find(ctx,
		bson.M{"interaction_id": interactionID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.InteractionEvent
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
