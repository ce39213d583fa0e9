package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	InteractionPending    = "pending"
	InteractionProcessing = "processing"
	InteractionCompleted  = "completed"
	InteractionFailed     = "failed"
)

// Failure reasons for failed interactions. "timeout" means the poller gave
// up waiting on the render job; "provider" means the job itself was rejected.
const (
	FailureTimeout  = "timeout"
	FailureProvider = "provider"
)

type Interaction struct {
	ID     string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID string `gorm:"column:user_id;type:uuid;index" json:"user_id"`

	InputText string `gorm:"column:input_text;type:text" json:"input_text"`
	InputRef  string `gorm:"column:input_ref;type:text" json:"input_ref,omitempty"` // recorded audio object path/URL

	ResponseText *string `gorm:"column:response_text;type:text" json:"response_text,omitempty"`
	MediaJobID   *string `gorm:"column:media_job_id;type:text" json:"media_job_id,omitempty"`
	MediaURL     *string `gorm:"column:media_url;type:text" json:"media_url,omitempty"`

	Status        string  `gorm:"column:status;type:text;index" json:"status"`
	FailureReason *string `gorm:"column:failure_reason;type:text" json:"failure_reason,omitempty"`

	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Interaction) TableName() string { return "interactions" }

func (i *Interaction) Terminal() bool {
	return i.Status == InteractionCompleted || i.Status == InteractionFailed
}
