package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/yoopersona/internal/models"
	"github.com/yoockh/yoopersona/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProviderConfigRepo interface {
	Get(ctx context.Context, category string) (*models.ProviderConfig, error)
	List(ctx context.Context) ([]models.ProviderConfig, error)
	Upsert(ctx context.Context, cfg *models.ProviderConfig) error

	// InsertIfAbsent seeds a category row without clobbering an existing one.
	InsertIfAbsent(ctx context.Context, cfg *models.ProviderConfig) error
}

type providerConfigRepo struct {
	db *gorm.DB
}

func NewProviderConfigRepo(db *gorm.DB) ProviderConfigRepo {
	return &providerConfigRepo{db: db}
}

func (r *providerConfigRepo) Get(ctx context.Context, category string) (*models.ProviderConfig, error) {
	var row models.ProviderConfig
	err := r.db.WithContext(ctx).Where("category = ?", category).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *providerConfigRepo) List(ctx context.Context) ([]models.ProviderConfig, error) {
	var rows []models.ProviderConfig
	err := r.db.WithContext(ctx).Order("category").Find(&rows).Error
	return rows, err
}

func (r *providerConfigRepo) Upsert(ctx context.Context, cfg *models.ProviderConfig) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "category"}},
			UpdateAll: true,
		}).
		Create(cfg).Error
}

func (r *providerConfigRepo) InsertIfAbsent(ctx context.Context, cfg *models.ProviderConfig) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(cfg).Error
}
