package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoopersona/internal/models"
	mongorepo "github.com/yoockh/yoopersona/internal/repositories/mongo"
)

// EventSink receives orchestration stage transitions. Implementations are
// best-effort: a sink failure must never fail the pipeline.
type EventSink interface {
	Emit(ctx context.Context, ev *models.InteractionEvent)
}

// StatusNotifier fans a stage transition out to the Mongo event trail and
// to the per-interaction Redis status channel that the WS handler forwards.
type StatusNotifier struct {
	Redis  *redis.Client
	Events mongorepo.EventRepository
	Logger *logrus.Logger
}

func StatusChannel(interactionID string) string {
	return "interaction:" + interactionID + ":status"
}

func (n *StatusNotifier) Emit(ctx context.Context, ev *models.InteractionEvent) {
	if ev == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	if n.Events != nil {
		if err := n.Events.Append(ctx, ev); err != nil && n.Logger != nil {
			n.Logger.WithError(err).WithField("interaction_id", ev.InteractionID).
				Warn("event append failed")
		}
	}

	if n.Redis != nil {
		payload, err := json.Marshal(ev)
		if err == nil {
			_ = n.Redis.Publish(ctx, StatusChannel(ev.InteractionID), payload).Err()
		}
	}
}
