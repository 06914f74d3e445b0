package models

import (
	"database/sql/driver"
	"fmt"
)

// UserRole classifies a user. It is not a permission list.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleOrgManager UserRole = "org_manager"
	RoleSubstitute UserRole = "substitute"
)

// ParseUserRole converts raw into a known role.
func ParseUserRole(raw string) (UserRole, error) {
	switch role := UserRole(raw); role {
	case RoleAdmin, RoleOrgManager, RoleSubstitute:
		return role, nil
	}
	return "", fmt.Errorf("user role %q: %w", raw, ErrUnknownValue)
}

// Scan implements sql.Scanner.
func (r *UserRole) Scan(src interface{}) error {
	raw, err := scanEnum("user role", src)
	if err != nil {
		return err
	}
	role, err := ParseUserRole(raw)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Value implements driver.Valuer.
func (r UserRole) Value() (driver.Value, error) {
	return string(r), nil
}

// User represents an application user stored in the users table.
type User struct {
	ID             string    `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	Email          string    `db:"email" json:"email"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Role           UserRole  `db:"role" json:"role"`
	OrganizationID *string   `db:"organization_id" json:"organization_id,omitempty"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      Timestamp `db:"created_at" json:"created_at"`
	UpdatedAt      Timestamp `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// CanSubstitute reports whether the user may be assigned to a request.
func (u User) CanSubstitute() bool {
	return u.IsActive && u.Role == RoleSubstitute
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role           *UserRole
	OrganizationID *string
	Active         *bool
}
