package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder/internal/dto"
	"github.com/noah-isme/substitute-finder/internal/models"
	"github.com/noah-isme/substitute-finder/internal/repository"
	appErrors "github.com/noah-isme/substitute-finder/pkg/errors"
	"github.com/noah-isme/substitute-finder/pkg/logger"
)

type substituteRequestRepository interface {
	FindByID(ctx context.Context, id string) (*models.SubstituteRequest, error)
	List(ctx context.Context, filter models.SubstituteRequestFilter) ([]models.SubstituteRequest, error)
	Create(ctx context.Context, req *models.SubstituteRequest) error
	UpdateDetails(ctx context.Context, req *models.SubstituteRequest, status models.RequestStatus) error
	Delete(ctx context.Context, id string) error
	Transition(ctx context.Context, id string, fn repository.TransitionFunc) (*models.SubstituteRequest, error)
	ListResponses(ctx context.Context, requestID string) ([]models.SubstituteResponse, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

const timeOfDayLayout = "15:04"

// transitions lists every legal edge of the request state machine. Cancelled
// has no outgoing edges.
var transitions = map[models.RequestStatus]map[models.RequestEventType]models.RequestStatus{
	models.RequestOpen: {
		models.EventAssign: models.RequestFilled,
		models.EventCancel: models.RequestCancelled,
	},
	models.RequestFilled: {
		models.EventUnassign: models.RequestOpen,
		models.EventCancel:   models.RequestCancelled,
	},
}

// SubstituteRequestService owns the lifecycle of substitute requests.
type SubstituteRequestService struct {
	repo      substituteRequestRepository
	classes   classReader
	users     repository.UserReader
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubstituteRequestService constructs a SubstituteRequestService.
func NewSubstituteRequestService(repo substituteRequestRepository, classes classReader, users repository.UserReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SubstituteRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubstituteRequestService{
		repo:      repo,
		classes:   classes,
		users:     users,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Create opens a new request raised by requesterID.
func (s *SubstituteRequestService) Create(ctx context.Context, req dto.CreateSubstituteRequest, requesterID string) (*models.SubstituteRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid substitute request payload")
	}
	start, end, err := timeRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if requesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requester is required")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class not found")
		}
		return nil, storeError(err, "class not found", "failed to load class")
	}
	if _, err := s.users.FindByID(ctx, requesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "requester not found")
		}
		return nil, storeError(err, "requester not found", "failed to load requester")
	}

	now := models.Now()
	request := &models.SubstituteRequest{
		ID:                  uuid.NewString(),
		ClassID:             req.ClassID,
		RequestedBy:         requesterID,
		DateNeeded:          req.DateNeeded,
		StartTime:           start,
		EndTime:             end,
		Reason:              optional(req.Reason),
		SpecialInstructions: optional(req.SpecialInstructions),
		Status:              models.RequestOpen,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, invalid(err, "class or requester no longer exists")
		}
		return nil, storeError(err, "", "failed to create substitute request")
	}

	logger.FromContext(ctx, s.logger).Info("substitute request created",
		zap.String("request_id", request.ID),
		zap.String("class_id", request.ClassID),
		zap.String("date_needed", request.DateNeeded),
	)
	return request, nil
}

// Get returns a request by id.
func (s *SubstituteRequestService) Get(ctx context.Context, id string) (*models.SubstituteRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "substitute request not found", "failed to load substitute request")
	}
	return req, nil
}

// List returns requests ordered by date, start time and id.
func (s *SubstituteRequestService) List(ctx context.Context, filter models.SubstituteRequestFilter) ([]models.SubstituteRequest, error) {
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "", "failed to list substitute requests")
	}
	return requests, nil
}

// ListByStatus is List narrowed to one status.
func (s *SubstituteRequestService) ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.SubstituteRequest, error) {
	return s.List(ctx, models.SubstituteRequestFilter{Status: &status})
}

// ListForUser returns the requests relevant to a user: everything for admins,
// raised requests for managers, open plus assigned requests for substitutes.
func (s *SubstituteRequestService) ListForUser(ctx context.Context, userID string) ([]models.SubstituteRequest, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user not found", "failed to load user")
	}

	var filter models.SubstituteRequestFilter
	switch user.Role {
	case models.RoleOrgManager:
		filter.RequestedBy = &user.ID
	case models.RoleSubstitute:
		filter.OpenOrAssignedTo = &user.ID
	}
	return s.List(ctx, filter)
}

// Update edits the descriptive fields of an open request. Status is untouched.
func (s *SubstituteRequestService) Update(ctx context.Context, id string, req dto.UpdateSubstituteRequest) (*models.SubstituteRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid substitute request payload")
	}
	start, end, err := timeRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.RequestOpen {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot edit a %s request", current.Status))
	}

	current.DateNeeded = req.DateNeeded
	current.StartTime = start
	current.EndTime = end
	current.Reason = optional(req.Reason)
	current.SpecialInstructions = optional(req.SpecialInstructions)
	current.UpdatedAt = models.Now()

	if err := s.repo.UpdateDetails(ctx, current, models.RequestOpen); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, storeError(err, "", "failed to update substitute request")
		}
		// gone, or moved out of open since it was read
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request is no longer open")
	}
	return current, nil
}

// Delete removes a request permanently.
func (s *SubstituteRequestService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "substitute request not found", "failed to delete substitute request")
	}
	logger.FromContext(ctx, s.logger).Info("substitute request deleted", zap.String("request_id", id))
	return nil
}

// Transition applies event to the request atomically.
func (s *SubstituteRequestService) Transition(ctx context.Context, id string, event models.RequestEvent) (*models.SubstituteRequest, error) {
	updated, err := s.repo.Transition(ctx, id, func(current *models.SubstituteRequest, scope repository.TransitionScope) error {
		return s.apply(ctx, current, event, scope)
	})
	s.recordTransition(ctx, id, string(event.Type), err)
	if err != nil {
		return nil, storeError(err, "substitute request not found", "failed to transition substitute request")
	}
	return updated, nil
}

// Assign fills an open request with substituteID.
func (s *SubstituteRequestService) Assign(ctx context.Context, id, substituteID string) (*models.SubstituteRequest, error) {
	return s.Transition(ctx, id, models.AssignEvent(substituteID))
}

// Unassign reopens a filled request.
func (s *SubstituteRequestService) Unassign(ctx context.Context, id string) (*models.SubstituteRequest, error) {
	return s.Transition(ctx, id, models.UnassignEvent())
}

// Cancel moves a request to its terminal state.
func (s *SubstituteRequestService) Cancel(ctx context.Context, id string) (*models.SubstituteRequest, error) {
	return s.Transition(ctx, id, models.CancelEvent())
}

// UpdateStatus accepts a target status and assignment and routes it through
// the matching transition. Pairs with no matching edge are rejected.
func (s *SubstituteRequestService) UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest) (*models.SubstituteRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid status payload")
	}
	status, err := models.ParseRequestStatus(req.Status)
	if err != nil {
		return nil, invalid(err, "unknown request status")
	}

	assigned := optional(req.AssignedSubstituteID)
	var event models.RequestEvent
	switch status {
	case models.RequestFilled:
		if assigned == nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "a filled request needs an assigned substitute")
		}
		event = models.AssignEvent(*assigned)
	case models.RequestOpen:
		event = models.UnassignEvent()
	case models.RequestCancelled:
		event = models.CancelEvent()
	}
	if status != models.RequestFilled && assigned != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("a %s request cannot have an assigned substitute", status))
	}
	return s.Transition(ctx, id, event)
}

// Respond records a substitute's answer. Accepting assigns the substitute in
// the same transaction; declining leaves the request open.
func (s *SubstituteRequestService) Respond(ctx context.Context, id string, req dto.RespondRequest) (*models.SubstituteRequest, *models.SubstituteResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, invalid(err, "invalid response payload")
	}

	response := &models.SubstituteResponse{
		ID:           uuid.NewString(),
		RequestID:    id,
		SubstituteID: req.SubstituteID,
		Response:     models.ResponseDeclined,
		ResponseTime: models.Now(),
		Notes:        optional(req.Notes),
	}
	event := "decline"
	if req.Accept {
		response.Response = models.ResponseAccepted
		event = string(models.EventAssign)
	}

	updated, err := s.repo.Transition(ctx, id, func(current *models.SubstituteRequest, scope repository.TransitionScope) error {
		if req.Accept {
			if err := s.apply(ctx, current, models.AssignEvent(req.SubstituteID), scope); err != nil {
				return err
			}
		} else {
			if current.Status != models.RequestOpen {
				return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot respond to a %s request", current.Status))
			}
			if _, err := s.substitute(ctx, scope, req.SubstituteID); err != nil {
				return err
			}
		}
		return scope.AddResponse(ctx, response)
	})
	s.recordTransition(ctx, id, event, err)
	if err != nil {
		return nil, nil, storeError(err, "substitute request not found", "failed to record response")
	}
	return updated, response, nil
}

// ListResponses returns the responses recorded for a request.
func (s *SubstituteRequestService) ListResponses(ctx context.Context, id string) ([]models.SubstituteResponse, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	responses, err := s.repo.ListResponses(ctx, id)
	if err != nil {
		return nil, storeError(err, "", "failed to list responses")
	}
	return responses, nil
}

// apply checks event against the transition table and its guard, then
// mutates current.
func (s *SubstituteRequestService) apply(ctx context.Context, current *models.SubstituteRequest, event models.RequestEvent, users repository.UserReader) error {
	to, ok := transitions[current.Status][event.Type]
	if !ok {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot %s a %s request", event.Type, current.Status))
	}

	switch event.Type {
	case models.EventAssign:
		sub, err := s.substitute(ctx, users, event.SubstituteID)
		if err != nil {
			return err
		}
		current.AssignedSubstituteID = &sub.ID
	default:
		current.AssignedSubstituteID = nil
	}
	current.Status = to
	current.UpdatedAt = models.Now()
	return nil
}

// substitute resolves id to a user that may take a request.
func (s *SubstituteRequestService) substitute(ctx context.Context, users repository.UserReader, id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "substitute_id is required")
	}
	user, err := users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "substitute not found")
		}
		return nil, err
	}
	if !user.CanSubstitute() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "user is not an active substitute")
	}
	return user, nil
}

func (s *SubstituteRequestService) recordTransition(ctx context.Context, id, event string, err error) {
	result := "ok"
	if err != nil {
		result = strings.ToLower(appErrors.FromError(storeError(err, "", "")).Code)
	}
	s.metrics.RecordTransition(event, result)
	logger.FromContext(ctx, s.logger).Debug("substitute request transition",
		zap.String("request_id", id),
		zap.String("event", event),
		zap.String("result", result),
	)
}

// timeRange parses a start/end pair of times of day and returns them in
// zero-padded HH:MM form, which sorts the same as the times themselves.
func timeRange(start, end string) (string, string, error) {
	from, err := time.Parse(timeOfDayLayout, strings.TrimSpace(start))
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	to, err := time.Parse(timeOfDayLayout, strings.TrimSpace(end))
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if !from.Before(to) {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return from.Format(timeOfDayLayout), to.Format(timeOfDayLayout), nil
}
