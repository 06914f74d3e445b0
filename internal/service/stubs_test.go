package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"github.com/noah-isme/substitute-finder/internal/models"
	"github.com/noah-isme/substitute-finder/internal/repository"
	"github.com/noah-isme/substitute-finder/pkg/notify"
)

type mockUserRepo struct {
	mu        sync.Mutex
	users     map[string]*models.User
	createErr error
	deleteErr error
}

func newMockUserRepo(users ...models.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*models.User)}
	for i := range users {
		u := users[i]
		m.users[u.ID] = &u
	}
	return m
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && u.IsActive != *filter.Active {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *mockUserRepo) ListActiveSubstitutes(ctx context.Context) ([]models.User, error) {
	role := models.RoleSubstitute
	active := true
	return m.List(ctx, models.UserFilter{Role: &role, Active: &active})
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt models.Timestamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

type mockClassRepo struct {
	classes map[string]*models.Class
}

func newMockClassRepo(classes ...models.Class) *mockClassRepo {
	m := &mockClassRepo{classes: make(map[string]*models.Class)}
	for i := range classes {
		c := classes[i]
		m.classes[c.ID] = &c
	}
	return m
}

func (m *mockClassRepo) List(ctx context.Context, organizationID *string) ([]models.Class, error) {
	var out []models.Class
	for _, c := range m.classes {
		if organizationID != nil && c.OrganizationID != *organizationID {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		copy := *c
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	copy := *class
	m.classes[class.ID] = &copy
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	if _, ok := m.classes[class.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *class
	m.classes[class.ID] = &copy
	return nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.classes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.classes, id)
	return nil
}

// mockRequestRepo keeps requests in memory and runs transitions under one
// mutex, which is the serialization the real store provides.
type mockRequestRepo struct {
	mu        sync.Mutex
	requests  map[string]*models.SubstituteRequest
	responses []models.SubstituteResponse
	users     repository.UserReader
	createErr error
}

func newMockRequestRepo(users repository.UserReader) *mockRequestRepo {
	return &mockRequestRepo{requests: make(map[string]*models.SubstituteRequest), users: users}
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*models.SubstituteRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.requests[id]; ok {
		copy := *r
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestRepo) List(ctx context.Context, filter models.SubstituteRequestFilter) ([]models.SubstituteRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SubstituteRequest
	for _, r := range m.requests {
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		if filter.RequestedBy != nil && r.RequestedBy != *filter.RequestedBy {
			continue
		}
		if id := filter.OpenOrAssignedTo; id != nil {
			assigned := r.AssignedSubstituteID != nil && *r.AssignedSubstituteID == *id
			if r.Status != models.RequestOpen && !assigned {
				continue
			}
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DateNeeded != out[j].DateNeeded {
			return out[i].DateNeeded < out[j].DateNeeded
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *mockRequestRepo) Create(ctx context.Context, req *models.SubstituteRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *req
	m.requests[req.ID] = &copy
	return nil
}

func (m *mockRequestRepo) UpdateDetails(ctx context.Context, req *models.SubstituteRequest, status models.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.requests[req.ID]
	if !ok || current.Status != status {
		return sql.ErrNoRows
	}
	copy := *req
	copy.Status = current.Status
	copy.AssignedSubstituteID = current.AssignedSubstituteID
	m.requests[req.ID] = &copy
	return nil
}

func (m *mockRequestRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.requests, id)
	return nil
}

func (m *mockRequestRepo) Transition(ctx context.Context, id string, fn repository.TransitionFunc) (*models.SubstituteRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	current := *stored
	scope := &mockScope{UserReader: m.users}
	if err := fn(&current, scope); err != nil {
		return nil, err
	}
	m.requests[id] = &current
	m.responses = append(m.responses, scope.added...)
	result := current
	return &result, nil
}

func (m *mockRequestRepo) ListResponses(ctx context.Context, requestID string) ([]models.SubstituteResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SubstituteResponse
	for _, r := range m.responses {
		if r.RequestID == requestID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockScope struct {
	repository.UserReader
	added []models.SubstituteResponse
}

func (s *mockScope) AddResponse(ctx context.Context, response *models.SubstituteResponse) error {
	s.added = append(s.added, *response)
	return nil
}

type mockLogRepo struct {
	mu        sync.Mutex
	entries   []models.NotificationLog
	createErr error
}

func (m *mockLogRepo) Create(ctx context.Context, entry *models.NotificationLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockLogRepo) List(ctx context.Context, filter models.NotificationLogFilter) ([]models.NotificationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.NotificationLog
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if filter.UserID != nil && e.UserID != *filter.UserID {
			continue
		}
		if filter.RequestID != nil && e.RequestID != *filter.RequestID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockLogRepo) byUser(userID string) []models.NotificationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.NotificationLog
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

type stubSink struct {
	mu        sync.Mutex
	kind      string
	failFor   map[string]error
	delivered []notify.Message
}

func (s *stubSink) Kind() string {
	if s.kind == "" {
		return notify.KindInApp
	}
	return s.kind
}

func (s *stubSink) Deliver(ctx context.Context, msg notify.Message) error {
	if err, ok := s.failFor[msg.UserID]; ok {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, msg)
	return nil
}

var errChannelDown = errors.New("channel unavailable")

func ptr[T any](v T) *T {
	return &v
}
