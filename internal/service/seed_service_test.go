package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/substitute-finder/internal/dto"
	"github.com/noah-isme/substitute-finder/internal/models"
)

func TestSeedServiceIsIdempotent(t *testing.T) {
	users := newMockUserRepo()
	orgRepo := newMockOrgRepo()
	classRepo := newMockClassRepo()
	requestRepo := newMockRequestRepo(users)

	orgs := NewOrganizationService(orgRepo, nil, zap.NewNop())
	classes := NewClassService(classRepo, orgRepo, nil, zap.NewNop())
	userSvc := NewUserService(users, orgRepo, nil, zap.NewNop(), bcrypt.MinCost)
	requests := NewSubstituteRequestService(requestRepo, classRepo, users, nil, nil, zap.NewNop())

	seeder := NewSeedService(orgs, classes, userSvc, requests, zap.NewNop())
	seeder.now = func() time.Time { return time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	result, err := seeder.Seed(ctx, "")
	require.NoError(t, err)
	assert.True(t, result.Seeded)
	assert.NotEmpty(t, result.Password)
	assert.Equal(t, []string{"admin", "manager", "substitute"}, result.Usernames)
	assert.Equal(t, 3, result.Requests)
	assert.Len(t, orgRepo.orgs, 1)
	assert.Len(t, classRepo.classes, 2)

	auth := NewAuthService(users, nil, zap.NewNop())
	_, err = auth.Login(ctx, dto.LoginRequest{Username: "manager", Password: result.Password})
	require.NoError(t, err)

	all, err := requests.List(ctx, models.SubstituteRequestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2025-03-09", all[0].DateNeeded)
	assert.Equal(t, models.RequestCancelled, all[0].Status)
	assert.Equal(t, models.RequestOpen, all[1].Status)
	assert.Equal(t, models.RequestFilled, all[2].Status)
	for _, r := range all {
		assert.True(t, r.Consistent())
	}

	again, err := seeder.Seed(ctx, "ignored")
	require.NoError(t, err)
	assert.False(t, again.Seeded)
	assert.Len(t, orgRepo.orgs, 1)
}
