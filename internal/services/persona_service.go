package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/yoopersona/internal/models"
	pgrepo "github.com/yoockh/yoopersona/internal/repositories/postgres"
	"github.com/yoockh/yoopersona/internal/utils"
)

type PersonaService interface {
	GetMe(ctx context.Context, userID string) (*models.Persona, error)
	Upsert(ctx context.Context, p *models.Persona) error

	AddStory(ctx context.Context, userID, title, content string) (*models.LifeStory, error)
	ListStories(ctx context.Context, userID string, limit int) ([]models.LifeStory, error)
}

type personaService struct {
	personas pgrepo.PersonaRepo
	stories  pgrepo.StoryRepo
}

func NewPersonaService(personas pgrepo.PersonaRepo, stories pgrepo.StoryRepo) PersonaService {
	return &personaService{personas: personas, stories: stories}
}

func (s *personaService) GetMe(ctx context.Context, userID string) (*models.Persona, error) {
	const op = "PersonaService.GetMe"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	p, err := s.personas.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "persona not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get persona", err)
	}
	return p, nil
}

func (s *personaService) Upsert(ctx context.Context, p *models.Persona) error {
	const op = "PersonaService.Upsert"

	if p == nil || p.UserID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "persona.user_id is required", nil)
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	if err := s.personas.Upsert(ctx, p); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to upsert persona", err)
	}
	return nil
}

func (s *personaService) AddStory(ctx context.Context, userID, title, content string) (*models.LifeStory, error) {
	const op = "PersonaService.AddStory"

	if userID == "" || content == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and content are required", nil)
	}

	row := &models.LifeStory{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.stories.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert story", err)
	}
	return row, nil
}

func (s *personaService) ListStories(ctx context.Context, userID string, limit int) ([]models.LifeStory, error) {
	const op = "PersonaService.ListStories"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	rows, err := s.stories.LatestN(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list stories", err)
	}
	return rows, nil
}
