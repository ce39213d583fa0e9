package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/yoopersona/internal/models"
	"github.com/yoockh/yoopersona/internal/utils"
	"gorm.io/gorm"
)

type InteractionRepo interface {
	Insert(ctx context.Context, row *models.Interaction) error
	GetByID(ctx context.Context, id string) (*models.Interaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Interaction, error)

	// MarkProcessing advances a freshly inserted record out of pending.
	MarkProcessing(ctx context.Context, id string) error

	// SetResponseText persists the generated reply while the record is still
	// processing. It never touches media fields, so a reply written here
	// survives any later media-stage outcome.
	SetResponseText(ctx context.Context, id, text string, metadata []byte) error

	// ClaimMediaJob records the render job handle iff no job has been claimed
	// for this record yet. Returns false when another run got there first or
	// the record already left processing.
	ClaimMediaJob(ctx context.Context, id, jobID string) (bool, error)

	// Complete and Fail are guarded terminal transitions: they only apply to
	// a record still in processing, so the first persisted terminal state
	// stays authoritative. Both report whether the write landed.
	Complete(ctx context.Context, id string, mediaURL *string) (bool, error)
	Fail(ctx context.Context, id, reason string) (bool, error)
}

type interactionRepo struct {
	db *gorm.DB
}

func NewInteractionRepo(db *gorm.DB) InteractionRepo {
	return &interactionRepo{db: db}
}

func (r *interactionRepo) Insert(ctx context.Context, row *models.Interaction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *interactionRepo) GetByID(ctx context.Context, id string) (*models.Interaction, error) {
	var row models.Interaction
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *interactionRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []models.Interaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *interactionRepo) MarkProcessing(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Where("id = ? AND status = ?", id, models.InteractionPending).
		Updates(map[string]any{
			"status":     models.InteractionProcessing,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *interactionRepo) SetResponseText(ctx context.Context, id, text string, metadata []byte) error {
	updates := map[string]any{
		"response_text": text,
		"updated_at":    time.Now().UTC(),
	}
	if len(metadata) > 0 {
		updates["metadata"] = metadata
	}
	return r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Where("id = ? AND status = ?", id, models.InteractionProcessing).
		Updates(updates).Error
}

func (r *interactionRepo) ClaimMediaJob(ctx context.Context, id, jobID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Where("id = ? AND status = ? AND media_job_id IS NULL", id, models.InteractionProcessing).
		Updates(map[string]any{
			"media_job_id": jobID,
			"updated_at":   time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *interactionRepo) Complete(ctx context.Context, id string, mediaURL *string) (bool, error) {
	updates := map[string]any{
		"status":     models.InteractionCompleted,
		"updated_at": time.Now().UTC(),
	}
	if mediaURL != nil {
		updates["media_url"] = *mediaURL
	}
	res := r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Where("id = ? AND status = ?", id, models.InteractionProcessing).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *interactionRepo) Fail(ctx context.Context, id, reason string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Where("id = ? AND status = ?", id, models.InteractionProcessing).
		Updates(map[string]any{
			"status":         models.InteractionFailed,
			"failure_reason": reason,
			"updated_at":     time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}
