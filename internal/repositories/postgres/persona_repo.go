package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/yoopersona/internal/models"
	"github.com/yoockh/yoopersona/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PersonaRepo interface {
	GetByUserID(ctx context.Context, userID string) (*models.Persona, error)
	Upsert(ctx context.Context, p *models.Persona) error
}

type personaRepo struct {
	db *gorm.DB
}

func NewPersonaRepo(db *gorm.DB) PersonaRepo {
	return &personaRepo{db: db}
}

func (r *personaRepo) GetByUserID(ctx context.Context, userID string) (*models.Persona, error) {
	var row models.Persona
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *personaRepo) Upsert(ctx context.Context, p *models.Persona) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(p).Error
}
