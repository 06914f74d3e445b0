package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/substitute-finder/internal/models"
	"github.com/noah-isme/substitute-finder/internal/repository"
	appErrors "github.com/noah-isme/substitute-finder/pkg/errors"
)

// storeError maps a repository failure onto the error taxonomy. Errors that
// are already typed pass through unchanged.
func storeError(err error, notFound, message string) error {
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case errors.Is(err, repository.ErrStoreBusy):
		return appErrors.As(appErrors.ErrStoreBusy, err, "")
	case errors.Is(err, models.ErrUnknownValue):
		return appErrors.As(appErrors.ErrValidation, err, "stored record holds an unrecognised value")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.As(appErrors.ErrConflict, err, "record already exists")
	case errors.Is(err, repository.ErrReferenced):
		return appErrors.As(appErrors.ErrConflict, err, "record is referenced by other records")
	default:
		return appErrors.As(appErrors.ErrPersistence, err, message)
	}
}

func invalid(err error, message string) error {
	return appErrors.As(appErrors.ErrValidation, err, message)
}

func optional(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	v := *value
	return &v
}
