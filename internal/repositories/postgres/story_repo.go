package postgres

import (
	"context"

	"github.com/yoockh/yoopersona/internal/models"
	"gorm.io/gorm"
)

type StoryRepo interface {
	Insert(ctx context.Context, s *models.LifeStory) error
	LatestN(ctx context.Context, userID string, n int) ([]models.LifeStory, error)
}

type storyRepo struct {
	db *gorm.DB
}

func NewStoryRepo(db *gorm.DB) StoryRepo {
	return &storyRepo{db: db}
}

func (r *storyRepo) Insert(ctx context.Context, s *models.LifeStory) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *storyRepo) LatestN(ctx context.Context, userID string, n int) ([]models.LifeStory, error) {
	if n <= 0 {
		n = 5
	}
	var rows []models.LifeStory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(n).
		Find(&rows).Error
	return rows, err
}
