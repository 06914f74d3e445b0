package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder/internal/dto"
	"github.com/noah-isme/substitute-finder/internal/models"
	"github.com/noah-isme/substitute-finder/internal/repository"
	appErrors "github.com/noah-isme/substitute-finder/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, organizationID *string) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

type organizationReader interface {
	FindByID(ctx context.Context, id string) (*models.Organization, error)
}

// ClassService manages classes.
type ClassService struct {
	repo      classRepository
	orgs      organizationReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, orgs organizationReader, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, orgs: orgs, validator: validate, logger: logger}
}

// List returns all classes ordered by name.
func (s *ClassService) List(ctx context.Context) ([]models.Class, error) {
	classes, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, storeError(err, "", "failed to list classes")
	}
	return classes, nil
}

// ListByOrganization returns the classes of one organization.
func (s *ClassService) ListByOrganization(ctx context.Context, organizationID string) ([]models.Class, error) {
	if _, err := s.orgs.FindByID(ctx, organizationID); err != nil {
		return nil, storeError(err, "organization not found", "failed to load organization")
	}
	classes, err := s.repo.List(ctx, &organizationID)
	if err != nil {
		return nil, storeError(err, "", "failed to list classes")
	}
	return classes, nil
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "class not found", "failed to load class")
	}
	return class, nil
}

// Create adds a class to an existing organization.
func (s *ClassService) Create(ctx context.Context, req dto.ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid class payload")
	}
	if err := s.checkOrganization(ctx, req.OrganizationID); err != nil {
		return nil, err
	}

	now := models.Now()
	class := &models.Class{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	applyClass(class, req)
	if err := s.repo.Create(ctx, class); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, invalid(err, "organization not found")
		}
		return nil, storeError(err, "", "failed to create class")
	}
	return class, nil
}

// Update replaces a class's fields.
func (s *ClassService) Update(ctx context.Context, id string, req dto.ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid class payload")
	}
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOrganization(ctx, req.OrganizationID); err != nil {
		return nil, err
	}

	applyClass(class, req)
	class.UpdatedAt = models.Now()
	if err := s.repo.Update(ctx, class); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, invalid(err, "organization not found")
		}
		return nil, storeError(err, "class not found", "failed to update class")
	}
	return class, nil
}

// Delete removes a class. Classes with substitute requests cannot be removed.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return appErrors.As(appErrors.ErrConflict, err, "class still has substitute requests")
		}
		return storeError(err, "class not found", "failed to delete class")
	}
	return nil
}

func (s *ClassService) checkOrganization(ctx context.Context, id string) error {
	if _, err := s.orgs.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "organization not found")
		}
		return storeError(err, "", "failed to load organization")
	}
	return nil
}

func applyClass(class *models.Class, req dto.ClassRequest) {
	class.Name = req.Name
	class.OrganizationID = req.OrganizationID
	class.Subject = optional(req.Subject)
	class.GradeLevel = optional(req.GradeLevel)
	class.RoomNumber = optional(req.RoomNumber)
	class.Description = optional(req.Description)
}
