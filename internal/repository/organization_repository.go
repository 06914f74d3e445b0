package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/substitute-finder/internal/models"
)

const organizationColumns = `id, name, parent_organization_id, description, contact_email, contact_phone, created_at, updated_at`

// OrganizationRepository provides database access for organizations.
type OrganizationRepository struct {
	store *Store
}

// NewOrganizationRepository creates a new instance of OrganizationRepository.
func NewOrganizationRepository(store *Store) *OrganizationRepository {
	return &OrganizationRepository{store: store}
}

// List returns all organizations ordered by name.
func (r *OrganizationRepository) List(ctx context.Context) ([]models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations ORDER BY name, id`
	var orgs []models.Organization
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return selectAll(ctx, q, &orgs, query)
	})
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

// FindByID returns an organization by identifier.
func (r *OrganizationRepository) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = ?`
	var org models.Organization
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return get(ctx, q, &org, query, id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find organization by id: %w", err)
	}
	return &org, nil
}

// Create inserts a new organization.
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	const query = `INSERT INTO organizations (id, name, parent_organization_id, description, contact_email, contact_phone, created_at, updated_at)
VALUES (:id, :name, :parent_organization_id, :description, :contact_email, :contact_phone, :created_at, :updated_at)`
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return namedExec(ctx, q, query, org)
	})
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of an organization.
func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	const query = `UPDATE organizations SET name = ?, parent_organization_id = ?, description = ?, contact_email = ?, contact_phone = ?, updated_at = ? WHERE id = ?`
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return requireAffected(execAffecting(ctx, q, query,
			org.Name, org.ParentOrganizationID, org.Description, org.ContactEmail, org.ContactPhone, org.UpdatedAt, org.ID))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update organization: %w", err)
	}
	return nil
}

// Delete removes an organization.
func (r *OrganizationRepository) Delete(ctx context.Context, id string) error {
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return requireAffected(execAffecting(ctx, q, `DELETE FROM organizations WHERE id = ?`, id))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("delete organization: %w", err)
	}
	return nil
}

// Ancestors walks the parent chain starting at id (inclusive) and returns the
// visited ids. The walk stops at a root, a missing row or a repeated id.
func (r *OrganizationRepository) Ancestors(ctx context.Context, id string) ([]string, error) {
	var chain []string
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		seen := make(map[string]struct{})
		current := &id
		for current != nil {
			if _, ok := seen[*current]; ok {
				return nil
			}
			var parent *string
			if err := get(ctx, q, &parent, `SELECT parent_organization_id FROM organizations WHERE id = ?`, *current); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil
				}
				return err
			}
			seen[*current] = struct{}{}
			chain = append(chain, *current)
			current = parent
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk organization ancestors: %w", err)
	}
	return chain, nil
}

// CountDependents returns how many child organizations and classes reference id.
func (r *OrganizationRepository) CountDependents(ctx context.Context, id string) (int, int, error) {
	var children, classes int
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		if err := get(ctx, q, &children, `SELECT COUNT(*) FROM organizations WHERE parent_organization_id = ?`, id); err != nil {
			return err
		}
		return get(ctx, q, &classes, `SELECT COUNT(*) FROM classes WHERE organization_id = ?`, id)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("count organization dependents: %w", err)
	}
	return children, classes, nil
}
