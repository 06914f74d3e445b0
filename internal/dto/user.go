package dto

// CreateUserRequest is the payload for registering a user.
type CreateUserRequest struct {
	Username       string  `json:"username" validate:"required,min=3,max=64"`
	Password       string  `json:"password" validate:"required,min=8,max=72"`
	Email          string  `json:"email" validate:"required,email"`
	FirstName      string  `json:"first_name" validate:"required"`
	LastName       string  `json:"last_name" validate:"required"`
	Role           string  `json:"role" validate:"required"`
	OrganizationID *string `json:"organization_id"`
}

// UpdateUserRequest changes profile fields. Nil fields are left untouched.
type UpdateUserRequest struct {
	Email          *string `json:"email" validate:"omitempty,email"`
	FirstName      *string `json:"first_name" validate:"omitempty,min=1"`
	LastName       *string `json:"last_name" validate:"omitempty,min=1"`
	Role           *string `json:"role"`
	OrganizationID *string `json:"organization_id"`
	IsActive       *bool   `json:"is_active"`
}

// LoginRequest carries credentials for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SetPasswordRequest replaces a user's password.
type SetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}
