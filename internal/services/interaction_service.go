package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/yoopersona/internal/models"
	mongorepo "github.com/yoockh/yoopersona/internal/repositories/mongo"
	pgrepo "github.com/yoockh/yoopersona/internal/repositories/postgres"
	"github.com/yoockh/yoopersona/internal/utils"
)

type InteractionService interface {
	// Create persists the record and fires orchestration asynchronously;
	// it returns as soon as the record exists.
	Create(ctx context.Context, userID, inputText, inputRef string) (*models.Interaction, error)
	Get(ctx context.Context, id string) (*models.Interaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Interaction, error)
	EventsByInteraction(ctx context.Context, id string, limit int64) ([]models.InteractionEvent, error)
}

type interactionService struct {
	interactions pgrepo.InteractionRepo
	events       mongorepo.EventRepository
	orchestrator *Orchestrator
}

func NewInteractionService(interactions pgrepo.InteractionRepo, events mongorepo.EventRepository, orch *Orchestrator) InteractionService {
	return &interactionService{interactions: interactions, events: events, orchestrator: orch}
}

func (s *interactionService) Create(ctx context.Context, userID, inputText, inputRef string) (*models.Interaction, error) {
	const op = "InteractionService.Create"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if inputText == "" && inputRef == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "input_text or input_ref is required", nil)
	}

	now := time.Now().UTC()
	rec := &models.Interaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		InputText: inputText,
		InputRef:  inputRef,
		Status:    models.InteractionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.interactions.Insert(ctx, rec); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create interaction", err)
	}

	// pending exists only for this instant.
	if err := s.interactions.MarkProcessing(ctx, rec.ID); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to advance interaction", err)
	}
	rec.Status = models.InteractionProcessing

	// Detached from the request context: orchestration outlives the
	// HTTP round trip.
	go s.orchestrator.Run(context.Background(), rec.ID)

	return rec, nil
}

func (s *interactionService) Get(ctx context.Context, id string) (*models.Interaction, error) {
	const op = "InteractionService.Get"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "id is required", nil)
	}

	rec, err := s.interactions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "interaction not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get interaction", err)
	}
	return rec, nil
}

func (s *interactionService) ListByUser(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	const op = "InteractionService.ListByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	rows, err := s.interactions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list interactions", err)
	}
	return rows, nil
}

func (s *interactionService) EventsByInteraction(ctx context.Context, id string, limit int64) ([]models.InteractionEvent, error) {
	const op = "InteractionService.EventsByInteraction"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "id is required", nil)
	}
	if s.events == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "event trail is not configured", nil)
	}

	rows, err := s.events.ListByInteraction(ctx, id, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list events", err)
	}
	return rows, nil
}
