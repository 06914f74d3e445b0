package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder/internal/dto"
	"github.com/noah-isme/substitute-finder/internal/models"
)

type seedOrganizations interface {
	Create(ctx context.Context, req dto.OrganizationRequest) (*models.Organization, error)
}

type seedClasses interface {
	Create(ctx context.Context, req dto.ClassRequest) (*models.Class, error)
}

type seedUsers interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	Create(ctx context.Context, req dto.CreateUserRequest) (*models.User, error)
}

type seedRequests interface {
	Create(ctx context.Context, req dto.CreateSubstituteRequest, requesterID string) (*models.SubstituteRequest, error)
	Assign(ctx context.Context, id, substituteID string) (*models.SubstituteRequest, error)
	Cancel(ctx context.Context, id string) (*models.SubstituteRequest, error)
}

// SeedResult reports what a seed run did.
type SeedResult struct {
	Seeded bool `json:"seeded"`
	// Password is set only when it was generated for this run.
	Password  string   `json:"password,omitempty"`
	Usernames []string `json:"usernames,omitempty"`
	Requests  int      `json:"requests"`
}

// SeedService loads a demo district. It does nothing once an admin exists.
type SeedService struct {
	orgs     seedOrganizations
	classes  seedClasses
	users    seedUsers
	requests seedRequests
	logger   *zap.Logger
	now      func() time.Time
}

// NewSeedService constructs a SeedService.
func NewSeedService(orgs seedOrganizations, classes seedClasses, users seedUsers, requests seedRequests, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{orgs: orgs, classes: classes, users: users, requests: requests, logger: logger, now: time.Now}
}

// Seed creates the demo data. Every demo account shares password; an empty
// password is replaced by a random one returned in the result.
func (s *SeedService) Seed(ctx context.Context, password string) (*SeedResult, error) {
	admin := models.RoleAdmin
	admins, err := s.users.List(ctx, models.UserFilter{Role: &admin})
	if err != nil {
		return nil, err
	}
	if len(admins) > 0 {
		s.logger.Info("database already seeded")
		return &SeedResult{Seeded: false}, nil
	}

	result := &SeedResult{Seeded: true}
	if password == "" {
		password, err = randomPassword()
		if err != nil {
			return nil, err
		}
		result.Password = password
	}

	org, err := s.orgs.Create(ctx, dto.OrganizationRequest{
		Name:        "Demo School District",
		Description: strPtr("A sample school district for testing"),
	})
	if err != nil {
		return nil, fmt.Errorf("seed organization: %w", err)
	}

	accounts := []dto.CreateUserRequest{
		{Username: "admin", Email: "admin@example.com", FirstName: "System", LastName: "Administrator", Role: string(models.RoleAdmin)},
		{Username: "manager", Email: "manager@example.com", FirstName: "School", LastName: "Manager", Role: string(models.RoleOrgManager)},
		{Username: "substitute", Email: "substitute@example.com", FirstName: "Jane", LastName: "Substitute", Role: string(models.RoleSubstitute)},
	}
	created := make(map[string]*models.User, len(accounts))
	for _, account := range accounts {
		account.Password = password
		account.OrganizationID = &org.ID
		user, err := s.users.Create(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", account.Username, err)
		}
		created[account.Username] = user
		result.Usernames = append(result.Usernames, user.Username)
	}

	math, err := s.classes.Create(ctx, dto.ClassRequest{
		Name:           "5th Grade Mathematics",
		OrganizationID: org.ID,
		Subject:        strPtr("Mathematics"),
		GradeLevel:     strPtr("5th Grade"),
		RoomNumber:     strPtr("Room 101"),
		Description:    strPtr("Advanced mathematics for 5th grade students"),
	})
	if err != nil {
		return nil, fmt.Errorf("seed class: %w", err)
	}
	science, err := s.classes.Create(ctx, dto.ClassRequest{
		Name:           "3rd Grade Science",
		OrganizationID: org.ID,
		Subject:        strPtr("Science"),
		GradeLevel:     strPtr("3rd Grade"),
		RoomNumber:     strPtr("Lab B"),
		Description:    strPtr("Hands-on science experiments for 3rd graders"),
	})
	if err != nil {
		return nil, fmt.Errorf("seed class: %w", err)
	}

	today := s.now().UTC()
	day := func(offset int) string { return today.AddDate(0, 0, offset).Format("2006-01-02") }
	manager := created["manager"].ID

	if _, err := s.requests.Create(ctx, dto.CreateSubstituteRequest{
		ClassID:             math.ID,
		DateNeeded:          day(1),
		StartTime:           "08:30",
		EndTime:             "15:00",
		Reason:              strPtr("Sick Leave"),
		SpecialInstructions: strPtr("Please follow the lesson plan on the desk. Math worksheets are in the file cabinet."),
	}, manager); err != nil {
		return nil, fmt.Errorf("seed open request: %w", err)
	}

	filled, err := s.requests.Create(ctx, dto.CreateSubstituteRequest{
		ClassID:             science.ID,
		DateNeeded:          day(5),
		StartTime:           "09:00",
		EndTime:             "14:30",
		Reason:              strPtr("Professional Development"),
		SpecialInstructions: strPtr("Science lab safety rules posted on wall. No experiments scheduled for today."),
	}, manager)
	if err != nil {
		return nil, fmt.Errorf("seed filled request: %w", err)
	}
	if _, err := s.requests.Assign(ctx, filled.ID, created["substitute"].ID); err != nil {
		return nil, fmt.Errorf("seed assignment: %w", err)
	}

	cancelled, err := s.requests.Create(ctx, dto.CreateSubstituteRequest{
		ClassID:    math.ID,
		DateNeeded: day(-1),
		StartTime:  "08:00",
		EndTime:    "12:00",
		Reason:     strPtr("Emergency"),
	}, created["admin"].ID)
	if err != nil {
		return nil, fmt.Errorf("seed cancelled request: %w", err)
	}
	if _, err := s.requests.Cancel(ctx, cancelled.ID); err != nil {
		return nil, fmt.Errorf("seed cancellation: %w", err)
	}
	result.Requests = 3

	s.logger.Info("database seeded", zap.String("organization_id", org.ID), zap.Strings("usernames", result.Usernames))
	return result, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func strPtr(v string) *string {
	return &v
}
