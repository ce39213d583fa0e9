package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InteractionEvent is one orchestration stage transition, appended to Mongo
// for diagnostics. Expired by TTL index, never read on the hot path.
type InteractionEvent struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InteractionID string             `bson:"interaction_id" json:"interaction_id"`

	Stage   string `bson:"stage" json:"stage"`   // text|media|poll|interaction
	Status  string `bson:"status" json:"status"` // started|done|failed|skipped|completed|timeout
	Detail  string `bson:"detail,omitempty" json:"detail,omitempty"`
	Attempt int    `bson:"attempt,omitempty" json:"attempt,omitempty"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
