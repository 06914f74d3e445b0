package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder/internal/dto"
	"github.com/noah-isme/substitute-finder/internal/models"
	"github.com/noah-isme/substitute-finder/internal/repository"
	appErrors "github.com/noah-isme/substitute-finder/pkg/errors"
	"github.com/noah-isme/substitute-finder/pkg/logger"
)

type organizationRepository interface {
	List(ctx context.Context) ([]models.Organization, error)
	FindByID(ctx context.Context, id string) (*models.Organization, error)
	Create(ctx context.Context, org *models.Organization) error
	Update(ctx context.Context, org *models.Organization) error
	Delete(ctx context.Context, id string) error
	Ancestors(ctx context.Context, id string) ([]string, error)
	CountDependents(ctx context.Context, id string) (int, int, error)
}

// OrganizationService manages the organization tree.
type OrganizationService struct {
	repo      organizationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOrganizationService constructs an OrganizationService.
func NewOrganizationService(repo organizationRepository, validate *validator.Validate, logger *zap.Logger) *OrganizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &OrganizationService{repo: repo, validator: validate, logger: logger}
}

// List returns organizations ordered by name.
func (s *OrganizationService) List(ctx context.Context) ([]models.Organization, error) {
	orgs, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeError(err, "", "failed to list organizations")
	}
	return orgs, nil
}

// Get returns an organization by id.
func (s *OrganizationService) Get(ctx context.Context, id string) (*models.Organization, error) {
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "organization not found", "failed to load organization")
	}
	return org, nil
}

// Create adds an organization under an optional parent.
func (s *OrganizationService) Create(ctx context.Context, req dto.OrganizationRequest) (*models.Organization, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid organization payload")
	}

	now := models.Now()
	org := &models.Organization{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyOrganization(org, req)
	if err := s.checkParent(ctx, org.ID, org.ParentOrganizationID); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, org); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, invalid(err, "parent organization not found")
		}
		return nil, storeError(err, "", "failed to create organization")
	}
	logger.FromContext(ctx, s.logger).Info("organization created", zap.String("organization_id", org.ID))
	return org, nil
}

// Update replaces an organization's fields, rejecting parent changes that
// would form a cycle.
func (s *OrganizationService) Update(ctx context.Context, id string, req dto.OrganizationRequest) (*models.Organization, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid organization payload")
	}
	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	applyOrganization(org, req)
	if err := s.checkParent(ctx, org.ID, org.ParentOrganizationID); err != nil {
		return nil, err
	}
	org.UpdatedAt = models.Now()

	if err := s.repo.Update(ctx, org); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, invalid(err, "parent organization not found")
		}
		return nil, storeError(err, "organization not found", "failed to update organization")
	}
	return org, nil
}

// Delete removes an organization with no child organizations or classes.
func (s *OrganizationService) Delete(ctx context.Context, id string) error {
	children, classes, err := s.repo.CountDependents(ctx, id)
	if err != nil {
		return storeError(err, "", "failed to check organization dependents")
	}
	if children > 0 || classes > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "organization still has child organizations or classes")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "organization not found", "failed to delete organization")
	}
	logger.FromContext(ctx, s.logger).Info("organization deleted", zap.String("organization_id", id))
	return nil
}

// checkParent rejects a missing parent and any parent whose ancestor chain
// already contains id.
func (s *OrganizationService) checkParent(ctx context.Context, id string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if *parentID == id {
		return appErrors.Clone(appErrors.ErrValidation, "organization cannot be its own parent")
	}
	chain, err := s.repo.Ancestors(ctx, *parentID)
	if err != nil {
		return storeError(err, "", "failed to check organization hierarchy")
	}
	if len(chain) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "parent organization not found")
	}
	for _, ancestor := range chain {
		if ancestor == id {
			return appErrors.Clone(appErrors.ErrValidation, "parent organization would create a cycle")
		}
	}
	return nil
}

func applyOrganization(org *models.Organization, req dto.OrganizationRequest) {
	org.Name = req.Name
	org.ParentOrganizationID = optional(req.ParentOrganizationID)
	org.Description = optional(req.Description)
	org.ContactEmail = optional(req.ContactEmail)
	org.ContactPhone = optional(req.ContactPhone)
}
