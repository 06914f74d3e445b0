package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/substitute-finder/internal/dto"
	"github.com/noah-isme/substitute-finder/internal/models"
	appErrors "github.com/noah-isme/substitute-finder/pkg/errors"
	"github.com/noah-isme/substitute-finder/pkg/logger"
)

type authUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// dummyHash is compared against when the username is unknown so both paths
// cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("substitute-finder"), bcrypt.DefaultCost)

// AuthService verifies credentials.
type AuthService struct {
	repo      authUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, validator: validate, logger: logger}
}

// Login returns the user for valid credentials. Unknown users, wrong
// passwords and inactive accounts all fail with the same AuthError.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid login payload")
	}

	user, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		appErr := storeError(err, "", "failed to load user")
		if !errors.Is(appErr, appErrors.ErrNotFound) {
			return nil, appErr
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		return nil, s.reject(ctx, "unknown user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, s.reject(ctx, "password mismatch")
	}
	if !user.IsActive {
		return nil, s.reject(ctx, "inactive account")
	}

	logger.FromContext(ctx, s.logger).Info("user logged in", zap.String("user_id", user.ID))
	return user, nil
}

func (s *AuthService) reject(ctx context.Context, reason string) error {
	logger.FromContext(ctx, s.logger).Info("login rejected", zap.String("reason", reason))
	return appErrors.Clone(appErrors.ErrAuth, "")
}
