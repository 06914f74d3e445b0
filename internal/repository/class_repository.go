package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/substitute-finder/internal/models"
)

const classColumns = `id, name, organization_id, subject, grade_level, room_number, description, created_at, updated_at`

// ClassRepository provides database access for classes.
type ClassRepository struct {
	store *Store
}

// NewClassRepository creates a new instance of ClassRepository.
func NewClassRepository(store *Store) *ClassRepository {
	return &ClassRepository{store: store}
}

// List returns classes ordered by name, optionally limited to one organization.
func (r *ClassRepository) List(ctx context.Context, organizationID *string) ([]models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes`
	var args []interface{}
	if organizationID != nil {
		query += ` WHERE organization_id = ?`
		args = append(args, *organizationID)
	}
	query += ` ORDER BY name, id`

	var classes []models.Class
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return selectAll(ctx, q, &classes, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE id = ?`
	var class models.Class
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return get(ctx, q, &class, query, id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	const query = `INSERT INTO classes (id, name, organization_id, subject, grade_level, room_number, description, created_at, updated_at)
VALUES (:id, :name, :organization_id, :subject, :grade_level, :room_number, :description, :created_at, :updated_at)`
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return namedExec(ctx, q, query, class)
	})
	if err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	const query = `UPDATE classes SET name = ?, organization_id = ?, subject = ?, grade_level = ?, room_number = ?, description = ?, updated_at = ? WHERE id = ?`
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return requireAffected(execAffecting(ctx, q, query,
			class.Name, class.OrganizationID, class.Subject, class.GradeLevel, class.RoomNumber, class.Description, class.UpdatedAt, class.ID))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return requireAffected(execAffecting(ctx, q, `DELETE FROM classes WHERE id = ?`, id))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}
