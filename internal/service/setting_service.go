package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder/internal/dto"
	"github.com/noah-isme/substitute-finder/internal/models"
	appErrors "github.com/noah-isme/substitute-finder/pkg/errors"
)

type settingRepository interface {
	List(ctx context.Context) ([]models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, setting *models.Setting) error
}

// SettingService reads and writes key/value settings.
type SettingService struct {
	repo      settingRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingService constructs a SettingService.
func NewSettingService(repo settingRepository, validate *validator.Validate, logger *zap.Logger) *SettingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SettingService{repo: repo, validator: validate, logger: logger}
}

// List returns every setting ordered by key.
func (s *SettingService) List(ctx context.Context) ([]models.Setting, error) {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeError(err, "", "failed to list settings")
	}
	return settings, nil
}

// Get returns a setting by key.
func (s *SettingService) Get(ctx context.Context, key string) (*models.Setting, error) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, storeError(err, "setting not found", "failed to load setting")
	}
	return setting, nil
}

// Upsert stores value under key.
func (s *SettingService) Upsert(ctx context.Context, key string, req dto.UpsertSettingRequest) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "setting key is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid setting payload")
	}
	setting := &models.Setting{
		Key:         key,
		Value:       req.Value,
		Description: optional(req.Description),
		UpdatedAt:   models.Now(),
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, storeError(err, "", "failed to save setting")
	}
	return setting, nil
}
