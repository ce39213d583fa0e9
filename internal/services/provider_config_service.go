package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/yoockh/yoopersona/internal/models"
	pgrepo "github.com/yoockh/yoopersona/internal/repositories/postgres"
	"github.com/yoockh/yoopersona/internal/utils"
	"gorm.io/datatypes"
)

var seedCategories = []string{
	models.CategoryLLM,
	models.CategoryVoice,
	models.CategoryAvatar,
}

// legacyRows are the historical provider-named config rows the gateway
// falls back to. Operators may still key these instead of the categories.
var legacyRows = map[string]struct{}{
	"claude":     {},
	"elevenlabs": {},
	"did":        {},
}

type ProviderConfigService interface {
	// Seed installs inactive, keyless rows for every category missing one.
	// Run once at process start.
	Seed(ctx context.Context) error

	// Get satisfies the gateway's ConfigStore: a straight read, no caching,
	// so activation toggles apply on the next invocation.
	Get(ctx context.Context, category string) (*models.ProviderConfig, error)

	List(ctx context.Context) ([]models.ProviderConfig, error)
	Update(ctx context.Context, category string, apiKey *string, isActive *bool, settings json.RawMessage) (*models.ProviderConfig, error)
}

type providerConfigService struct {
	configs pgrepo.ProviderConfigRepo
}

func NewProviderConfigService(configs pgrepo.ProviderConfigRepo) ProviderConfigService {
	return &providerConfigService{configs: configs}
}

func (s *providerConfigService) Seed(ctx context.Context) error {
	const op = "ProviderConfigService.Seed"

	for _, cat := range seedCategories {
		err := s.configs.InsertIfAbsent(ctx, &models.ProviderConfig{
			Category:  cat,
			IsActive:  false,
			UpdatedAt: time.Now().UTC(),
		})
		if err != nil {
			return utils.E(utils.CodeInternal, op, "failed to seed "+cat, err)
		}
	}
	return nil
}

func (s *providerConfigService) Get(ctx context.Context, category string) (*models.ProviderConfig, error) {
	return s.configs.Get(ctx, category)
}

func (s *providerConfigService) List(ctx context.Context) ([]models.ProviderConfig, error) {
	const op = "ProviderConfigService.List"

	rows, err := s.configs.List(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list provider configs", err)
	}
	return rows, nil
}

func (s *providerConfigService) Update(ctx context.Context, category string, apiKey *string, isActive *bool, settings json.RawMessage) (*models.ProviderConfig, error) {
	const op = "ProviderConfigService.Update"

	if !validCategory(category) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown category: "+category, nil)
	}

	cfg, err := s.configs.Get(ctx, category)
	if err != nil {
		if !errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeInternal, op, "failed to load provider config", err)
		}
		cfg = &models.ProviderConfig{Category: category}
	}

	if apiKey != nil {
		cfg.APIKey = *apiKey
	}
	if isActive != nil {
		cfg.IsActive = *isActive
	}
	if settings != nil {
		cfg.Settings = datatypes.JSON(settings)
	}
	cfg.UpdatedAt = time.Now().UTC()

	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update provider config", err)
	}
	return cfg, nil
}

func validCategory(category string) bool {
	for _, c := range seedCategories {
		if c == category {
			return true
		}
	}
	_, ok := legacyRows[category]
	return ok
}
