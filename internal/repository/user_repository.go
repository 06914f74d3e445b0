package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/substitute-finder/internal/models"
)

const userColumns = `id, username, password_hash, email, first_name, last_name, role, organization_id, is_active, created_at, updated_at`

// UserReader resolves users by id.
type UserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// UserRepository provides database access for user management.
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		var err error
		user, err = findUser(ctx, q, "id", id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByUsername returns a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user *models.User
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		var err error
		user, err = findUser(ctx, q, "username", username)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List returns users matching filter ordered by username.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var conditions []string
	var args []interface{}
	if filter.Role != nil {
		conditions = append(conditions, "role = ?")
		args = append(args, *filter.Role)
	}
	if filter.OrganizationID != nil {
		conditions = append(conditions, "organization_id = ?")
		args = append(args, *filter.OrganizationID)
	}
	if filter.Active != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, *filter.Active)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY username, id"

	var users []models.User
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return selectAll(ctx, q, &users, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListActiveSubstitutes returns every active user with the substitute role.
func (r *UserRepository) ListActiveSubstitutes(ctx context.Context) ([]models.User, error) {
	role := models.RoleSubstitute
	active := true
	return r.List(ctx, models.UserFilter{Role: &role, Active: &active})
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const query = `INSERT INTO users (id, username, password_hash, email, first_name, last_name, role, organization_id, is_active, created_at, updated_at)
VALUES (:id, :username, :password_hash, :email, :first_name, :last_name, :role, :organization_id, :is_active, :created_at, :updated_at)`
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return namedExec(ctx, q, query, user)
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update replaces profile fields. The password hash and username are left alone.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	const query = `UPDATE users SET email = ?, first_name = ?, last_name = ?, role = ?, organization_id = ?, is_active = ?, updated_at = ? WHERE id = ?`
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return requireAffected(execAffecting(ctx, q, query,
			user.Email, user.FirstName, user.LastName, user.Role, user.OrganizationID, user.IsActive, user.UpdatedAt, user.ID))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt models.Timestamp) error {
	const query = `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return requireAffected(execAffecting(ctx, q, query, passwordHash, updatedAt, id))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return requireAffected(execAffecting(ctx, q, `DELETE FROM users WHERE id = ?`, id))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func findUser(ctx context.Context, q sqlx.ExtContext, column, value string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`
	var user models.User
	if err := get(ctx, q, &user, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by %s: %w", column, err)
	}
	return &user, nil
}

// txUsers reads users on an open transaction without touching the guard.
type txUsers struct {
	q sqlx.ExtContext
}

func (u txUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	return findUser(ctx, u.q, "id", id)
}
