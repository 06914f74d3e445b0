package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder/internal/dto"
	"github.com/noah-isme/substitute-finder/internal/models"
	appErrors "github.com/noah-isme/substitute-finder/pkg/errors"
)

type requestFixture struct {
	svc   *SubstituteRequestService
	repo  *mockRequestRepo
	users *mockUserRepo
}

func newRequestFixture(t *testing.T) *requestFixture {
	t.Helper()
	users := newMockUserRepo(
		models.User{ID: "mgr", Username: "manager", Role: models.RoleOrgManager, IsActive: true},
		models.User{ID: "sub-a", Username: "alice", Role: models.RoleSubstitute, IsActive: true},
		models.User{ID: "sub-b", Username: "bob", Role: models.RoleSubstitute, IsActive: true},
		models.User{ID: "sub-off", Username: "carol", Role: models.RoleSubstitute, IsActive: false},
	)
	classes := newMockClassRepo(models.Class{ID: "class-1", Name: "5th Grade Math", OrganizationID: "org-1"})
	repo := newMockRequestRepo(users)
	svc := NewSubstituteRequestService(repo, classes, users, NewMetricsService(), nil, zap.NewNop())
	return &requestFixture{svc: svc, repo: repo, users: users}
}

func (f *requestFixture) open(t *testing.T, date, start string) *models.SubstituteRequest {
	t.Helper()
	req, err := f.svc.Create(context.Background(), dto.CreateSubstituteRequest{
		ClassID:    "class-1",
		DateNeeded: date,
		StartTime:  start,
		EndTime:    "15:00",
	}, "mgr")
	require.NoError(t, err)
	return req
}

// moveTo drives a fresh request into status.
func (f *requestFixture) moveTo(t *testing.T, status models.RequestStatus) *models.SubstituteRequest {
	t.Helper()
	ctx := context.Background()
	req := f.open(t, "2025-03-10", "08:30")
	var err error
	switch status {
	case models.RequestFilled:
		req, err = f.svc.Assign(ctx, req.ID, "sub-a")
	case models.RequestCancelled:
		req, err = f.svc.Cancel(ctx, req.ID)
	}
	require.NoError(t, err)
	return req
}

func TestSubstituteRequestCreateStartsOpen(t *testing.T) {
	f := newRequestFixture(t)
	req := f.open(t, "2025-03-10", "08:30")

	assert.Equal(t, models.RequestOpen, req.Status)
	assert.Nil(t, req.AssignedSubstituteID)
	assert.Equal(t, "mgr", req.RequestedBy)
	assert.NotEmpty(t, req.ID)

	stored, err := f.svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ClassID, stored.ClassID)
	assert.Equal(t, req.DateNeeded, stored.DateNeeded)
}

func TestSubstituteRequestCreateValidation(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	cases := []struct {
		name      string
		req       dto.CreateSubstituteRequest
		requester string
	}{
		{"end before start", dto.CreateSubstituteRequest{ClassID: "class-1", DateNeeded: "2025-03-10", StartTime: "15:00", EndTime: "08:30"}, "mgr"},
		{"single digit hour end before start", dto.CreateSubstituteRequest{ClassID: "class-1", DateNeeded: "2025-03-10", StartTime: "10:00", EndTime: "9:00"}, "mgr"},
		{"equal times", dto.CreateSubstituteRequest{ClassID: "class-1", DateNeeded: "2025-03-10", StartTime: "08:30", EndTime: "08:30"}, "mgr"},
		{"equal times different padding", dto.CreateSubstituteRequest{ClassID: "class-1", DateNeeded: "2025-03-10", StartTime: "8:30", EndTime: "08:30"}, "mgr"},
		{"bad time", dto.CreateSubstituteRequest{ClassID: "class-1", DateNeeded: "2025-03-10", StartTime: "25:00", EndTime: "26:00"}, "mgr"},
		{"bad date", dto.CreateSubstituteRequest{ClassID: "class-1", DateNeeded: "10/03/2025", StartTime: "08:30", EndTime: "15:00"}, "mgr"},
		{"unknown class", dto.CreateSubstituteRequest{ClassID: "missing", DateNeeded: "2025-03-10", StartTime: "08:30", EndTime: "15:00"}, "mgr"},
		{"unknown requester", dto.CreateSubstituteRequest{ClassID: "class-1", DateNeeded: "2025-03-10", StartTime: "08:30", EndTime: "15:00"}, "ghost"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.req, tc.requester)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
	assert.Empty(t, f.repo.requests)
}

func TestSubstituteRequestCreateNormalizesTimes(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	cases := []struct {
		start, end         string
		wantStart, wantEnd string
	}{
		{"8:30", "15:00", "08:30", "15:00"},
		{"9:00", "10:00", "09:00", "10:00"},
		{"07:45", "9:05", "07:45", "09:05"},
	}
	for _, tc := range cases {
		t.Run(tc.start+"-"+tc.end, func(t *testing.T) {
			req, err := f.svc.Create(ctx, dto.CreateSubstituteRequest{
				ClassID:    "class-1",
				DateNeeded: "2025-03-10",
				StartTime:  tc.start,
				EndTime:    tc.end,
			}, "mgr")
			require.NoError(t, err)
			assert.Equal(t, tc.wantStart, req.StartTime)
			assert.Equal(t, tc.wantEnd, req.EndTime)

			stored, err := f.svc.Get(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStart, stored.StartTime)
		})
	}
}

func TestSubstituteRequestTransitionTable(t *testing.T) {
	events := map[string]models.RequestEvent{
		"assign":   models.AssignEvent("sub-b"),
		"unassign": models.UnassignEvent(),
		"cancel":   models.CancelEvent(),
	}
	cases := []struct {
		from  models.RequestStatus
		event string
		to    models.RequestStatus
		ok    bool
	}{
		{models.RequestOpen, "assign", models.RequestFilled, true},
		{models.RequestOpen, "unassign", "", false},
		{models.RequestOpen, "cancel", models.RequestCancelled, true},
		{models.RequestFilled, "assign", "", false},
		{models.RequestFilled, "unassign", models.RequestOpen, true},
		{models.RequestFilled, "cancel", models.RequestCancelled, true},
		{models.RequestCancelled, "assign", "", false},
		{models.RequestCancelled, "unassign", "", false},
		{models.RequestCancelled, "cancel", "", false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"/"+tc.event, func(t *testing.T) {
			f := newRequestFixture(t)
			ctx := context.Background()
			before := f.moveTo(t, tc.from)

			updated, err := f.svc.Transition(ctx, before.ID, events[tc.event])
			stored, getErr := f.svc.Get(ctx, before.ID)
			require.NoError(t, getErr)
			assert.True(t, stored.Consistent())

			if !tc.ok {
				require.Error(t, err)
				assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
				assert.Equal(t, *before, *stored)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.to, updated.Status)
			assert.True(t, updated.Consistent())
			assert.Equal(t, *updated, *stored)
		})
	}
}

func TestSubstituteRequestAssignGuard(t *testing.T) {
	cases := []struct {
		name         string
		substituteID string
		want         *appErrors.Error
	}{
		{"manager cannot substitute", "mgr", appErrors.ErrInvalidTransition},
		{"inactive substitute", "sub-off", appErrors.ErrInvalidTransition},
		{"unknown user", "ghost", appErrors.ErrValidation},
		{"missing id", "", appErrors.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newRequestFixture(t)
			ctx := context.Background()
			req := f.open(t, "2025-03-10", "08:30")

			_, err := f.svc.Assign(ctx, req.ID, tc.substituteID)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			stored, err := f.svc.Get(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, *req, *stored)
		})
	}
}

func TestSubstituteRequestTransitionNotFound(t *testing.T) {
	f := newRequestFixture(t)
	_, err := f.svc.Cancel(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSubstituteRequestConcurrentAssignSerializes(t *testing.T) {
	f := newRequestFixture(t)
	req := f.open(t, "2025-03-10", "08:30")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, sub := range []string{"sub-a", "sub-b"} {
		wg.Add(1)
		go func(i int, sub string) {
			defer wg.Done()
			_, errs[i] = f.svc.Assign(context.Background(), req.ID, sub)
		}(i, sub)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	}
	assert.Equal(t, 1, succeeded)

	stored, err := f.svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestFilled, stored.Status)
	assert.True(t, stored.Consistent())
}

func TestSubstituteRequestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("filled assigns", func(t *testing.T) {
		f := newRequestFixture(t)
		req := f.open(t, "2025-03-10", "08:30")
		updated, err := f.svc.UpdateStatus(ctx, req.ID, dto.UpdateStatusRequest{Status: "filled", AssignedSubstituteID: ptr("sub-a")})
		require.NoError(t, err)
		assert.Equal(t, models.RequestFilled, updated.Status)
		assert.Equal(t, "sub-a", *updated.AssignedSubstituteID)
	})

	t.Run("filled without substitute", func(t *testing.T) {
		f := newRequestFixture(t)
		req := f.open(t, "2025-03-10", "08:30")
		_, err := f.svc.UpdateStatus(ctx, req.ID, dto.UpdateStatusRequest{Status: "filled"})
		assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

		stored, getErr := f.svc.Get(ctx, req.ID)
		require.NoError(t, getErr)
		assert.Equal(t, models.RequestOpen, stored.Status)
	})

	t.Run("open with substitute is rejected", func(t *testing.T) {
		f := newRequestFixture(t)
		req := f.moveTo(t, models.RequestFilled)
		_, err := f.svc.UpdateStatus(ctx, req.ID, dto.UpdateStatusRequest{Status: "open", AssignedSubstituteID: ptr("sub-a")})
		assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	})

	t.Run("open unassigns", func(t *testing.T) {
		f := newRequestFixture(t)
		req := f.moveTo(t, models.RequestFilled)
		updated, err := f.svc.UpdateStatus(ctx, req.ID, dto.UpdateStatusRequest{Status: "open"})
		require.NoError(t, err)
		assert.Equal(t, models.RequestOpen, updated.Status)
		assert.Nil(t, updated.AssignedSubstituteID)
	})

	t.Run("cancelled to open is rejected", func(t *testing.T) {
		f := newRequestFixture(t)
		req := f.moveTo(t, models.RequestCancelled)
		_, err := f.svc.UpdateStatus(ctx, req.ID, dto.UpdateStatusRequest{Status: "open"})
		assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newRequestFixture(t)
		req := f.open(t, "2025-03-10", "08:30")
		_, err := f.svc.UpdateStatus(ctx, req.ID, dto.UpdateStatusRequest{Status: "pending"})
		assert.ErrorIs(t, err, appErrors.ErrValidation)
	})
}

func TestSubstituteRequestRespond(t *testing.T) {
	ctx := context.Background()

	t.Run("accept assigns and records response", func(t *testing.T) {
		f := newRequestFixture(t)
		req := f.open(t, "2025-03-10", "08:30")
		updated, resp, err := f.svc.Respond(ctx, req.ID, dto.RespondRequest{SubstituteID: "sub-a", Accept: true})
		require.NoError(t, err)
		assert.Equal(t, models.RequestFilled, updated.Status)
		assert.Equal(t, models.ResponseAccepted, resp.Response)

		responses, err := f.svc.ListResponses(ctx, req.ID)
		require.NoError(t, err)
		require.Len(t, responses, 1)
		assert.Equal(t, "sub-a", responses[0].SubstituteID)
	})

	t.Run("decline keeps request open", func(t *testing.T) {
		f := newRequestFixture(t)
		req := f.open(t, "2025-03-10", "08:30")
		updated, resp, err := f.svc.Respond(ctx, req.ID, dto.RespondRequest{SubstituteID: "sub-b", Notes: ptr("busy")})
		require.NoError(t, err)
		assert.Equal(t, models.RequestOpen, updated.Status)
		assert.Nil(t, updated.AssignedSubstituteID)
		assert.Equal(t, models.ResponseDeclined, resp.Response)
	})

	t.Run("accept on filled records nothing", func(t *testing.T) {
		f := newRequestFixture(t)
		req := f.moveTo(t, models.RequestFilled)
		_, _, err := f.svc.Respond(ctx, req.ID, dto.RespondRequest{SubstituteID: "sub-b", Accept: true})
		assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
		assert.Empty(t, f.repo.responses)
	})
}

func TestSubstituteRequestUpdateOnlyWhileOpen(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	payload := dto.UpdateSubstituteRequest{DateNeeded: "2025-03-11", StartTime: "09:00", EndTime: "12:00", Reason: ptr("Training")}

	open := f.open(t, "2025-03-10", "08:30")
	updated, err := f.svc.Update(ctx, open.ID, payload)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-11", updated.DateNeeded)
	assert.Equal(t, models.RequestOpen, updated.Status)

	filled := f.moveTo(t, models.RequestFilled)
	_, err = f.svc.Update(ctx, filled.ID, payload)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestSubstituteRequestUpdateChecksTimeRange(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	open := f.open(t, "2025-03-10", "08:30")

	updated, err := f.svc.Update(ctx, open.ID, dto.UpdateSubstituteRequest{DateNeeded: "2025-03-10", StartTime: "8:30", EndTime: "15:00"})
	require.NoError(t, err)
	assert.Equal(t, "08:30", updated.StartTime)
	assert.Equal(t, "15:00", updated.EndTime)

	_, err = f.svc.Update(ctx, open.ID, dto.UpdateSubstituteRequest{DateNeeded: "2025-03-10", StartTime: "10:00", EndTime: "9:00"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	stored, err := f.svc.Get(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, "08:30", stored.StartTime)
	assert.Equal(t, "15:00", stored.EndTime)
}

func TestSubstituteRequestListIsOrdered(t *testing.T) {
	f := newRequestFixture(t)
	f.open(t, "2025-03-12", "08:00")
	f.open(t, "2025-03-10", "10:00")
	f.open(t, "2025-03-10", "08:30")

	requests, err := f.svc.List(context.Background(), models.SubstituteRequestFilter{})
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.Equal(t, []string{"2025-03-10 08:30", "2025-03-10 10:00", "2025-03-12 08:00"}, []string{
		requests[0].DateNeeded + " " + requests[0].StartTime,
		requests[1].DateNeeded + " " + requests[1].StartTime,
		requests[2].DateNeeded + " " + requests[2].StartTime,
	})
}

func TestSubstituteRequestListOrdersUnpaddedHours(t *testing.T) {
	f := newRequestFixture(t)
	f.open(t, "2025-03-10", "10:00")
	f.open(t, "2025-03-10", "9:00")
	f.open(t, "2025-03-10", "13:15")

	requests, err := f.svc.List(context.Background(), models.SubstituteRequestFilter{})
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.Equal(t, "09:00", requests[0].StartTime)
	assert.Equal(t, "10:00", requests[1].StartTime)
	assert.Equal(t, "13:15", requests[2].StartTime)
}

func TestSubstituteRequestListForSubstitute(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	f.open(t, "2025-03-10", "08:30")
	mine := f.moveTo(t, models.RequestFilled)
	other := f.open(t, "2025-03-11", "08:30")
	_, err := f.svc.Assign(ctx, other.ID, "sub-b")
	require.NoError(t, err)

	requests, err := f.svc.ListForUser(ctx, "sub-a")
	require.NoError(t, err)
	ids := make([]string, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.ID)
	}
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, mine.ID)
	assert.NotContains(t, ids, other.ID)
}

func TestSubstituteRequestLifecycleScenario(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	req := f.open(t, "2025-03-10", "08:30")
	assert.Equal(t, models.RequestOpen, req.Status)
	assert.Equal(t, "15:00", req.EndTime)

	filled, err := f.svc.Assign(ctx, req.ID, "sub-a")
	require.NoError(t, err)
	assert.Equal(t, models.RequestFilled, filled.Status)
	require.NotNil(t, filled.AssignedSubstituteID)
	assert.Equal(t, "sub-a", *filled.AssignedSubstituteID)

	cancelled, err := f.svc.Cancel(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestCancelled, cancelled.Status)
	assert.Nil(t, cancelled.AssignedSubstituteID)
}
