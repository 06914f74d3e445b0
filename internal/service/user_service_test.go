package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/substitute-finder/internal/dto"
	"github.com/noah-isme/substitute-finder/internal/models"
	"github.com/noah-isme/substitute-finder/internal/repository"
	appErrors "github.com/noah-isme/substitute-finder/pkg/errors"
)

func newTestUserService(repo *mockUserRepo) *UserService {
	orgs := newMockOrgRepo()
	orgs.orgs["org-1"] = &models.Organization{ID: "org-1", Name: "District"}
	return NewUserService(repo, orgs, nil, zap.NewNop(), bcrypt.MinCost)
}

func TestUserServiceCreateHashesPassword(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo)

	user, err := svc.Create(context.Background(), dto.CreateUserRequest{
		Username:       "jane",
		Password:       "correct horse",
		Email:          "Jane@Example.com",
		FirstName:      "Jane",
		LastName:       "Substitute",
		Role:           "substitute",
		OrganizationID: ptr("org-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSubstitute, user.Role)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "correct horse", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")))
}

func TestUserServiceCreateRejects(t *testing.T) {
	repo := newMockUserRepo(models.User{ID: "u1", Username: "taken", Role: models.RoleAdmin})
	svc := newTestUserService(repo)
	base := dto.CreateUserRequest{Username: "new", Password: "password1", Email: "a@b.co", FirstName: "A", LastName: "B", Role: "admin"}

	t.Run("unknown role", func(t *testing.T) {
		req := base
		req.Role = "teacher"
		_, err := svc.Create(context.Background(), req)
		assert.ErrorIs(t, err, appErrors.ErrValidation)
	})
	t.Run("duplicate username", func(t *testing.T) {
		req := base
		req.Username = "taken"
		_, err := svc.Create(context.Background(), req)
		assert.ErrorIs(t, err, appErrors.ErrConflict)
	})
	t.Run("unique index race", func(t *testing.T) {
		racing := newMockUserRepo()
		racing.createErr = repository.ErrDuplicate
		_, err := newTestUserService(racing).Create(context.Background(), base)
		assert.ErrorIs(t, err, appErrors.ErrConflict)
	})
	t.Run("unknown organization", func(t *testing.T) {
		req := base
		req.OrganizationID = ptr("org-x")
		_, err := svc.Create(context.Background(), req)
		assert.ErrorIs(t, err, appErrors.ErrValidation)
	})
	t.Run("short password", func(t *testing.T) {
		req := base
		req.Password = "short"
		_, err := svc.Create(context.Background(), req)
		assert.ErrorIs(t, err, appErrors.ErrValidation)
	})
}

func TestUserServiceUpdateKeepsUnsetFields(t *testing.T) {
	repo := newMockUserRepo(models.User{ID: "u1", Username: "jane", Email: "jane@example.com", FirstName: "Jane", LastName: "Doe", Role: models.RoleSubstitute, IsActive: true})
	svc := newTestUserService(repo)

	updated, err := svc.Update(context.Background(), "u1", dto.UpdateUserRequest{LastName: ptr("Smith"), IsActive: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, "Jane", updated.FirstName)
	assert.Equal(t, "Smith", updated.LastName)
	assert.Equal(t, "jane@example.com", updated.Email)
	assert.False(t, updated.IsActive)

	_, err = svc.Update(context.Background(), "u1", dto.UpdateUserRequest{Role: ptr("boss")})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Update(context.Background(), "missing", dto.UpdateUserRequest{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUserServiceSetPasswordAndDelete(t *testing.T) {
	repo := newMockUserRepo(models.User{ID: "u1", Username: "jane", PasswordHash: "old"})
	svc := newTestUserService(repo)
	ctx := context.Background()

	require.NoError(t, svc.SetPassword(ctx, "u1", "new password"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["u1"].PasswordHash), []byte("new password")))
	assert.ErrorIs(t, svc.SetPassword(ctx, "u1", "short"), appErrors.ErrValidation)
	assert.ErrorIs(t, svc.SetPassword(ctx, "missing", "long enough"), appErrors.ErrNotFound)

	repo.deleteErr = repository.ErrReferenced
	assert.ErrorIs(t, svc.Delete(ctx, "u1"), appErrors.ErrConflict)
	repo.deleteErr = nil
	require.NoError(t, svc.Delete(ctx, "u1"))
	assert.ErrorIs(t, svc.Delete(ctx, "u1"), appErrors.ErrNotFound)
}
