package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder/internal/dto"
	"github.com/noah-isme/substitute-finder/internal/models"
	"github.com/noah-isme/substitute-finder/internal/service"
	appErrors "github.com/noah-isme/substitute-finder/pkg/errors"
	"github.com/noah-isme/substitute-finder/pkg/logger"
	"github.com/noah-isme/substitute-finder/pkg/response"
)

type substituteRequestService interface {
	Create(ctx context.Context, req dto.CreateSubstituteRequest, requesterID string) (*models.SubstituteRequest, error)
	Get(ctx context.Context, id string) (*models.SubstituteRequest, error)
	List(ctx context.Context, filter models.SubstituteRequestFilter) ([]models.SubstituteRequest, error)
	ListForUser(ctx context.Context, userID string) ([]models.SubstituteRequest, error)
	Update(ctx context.Context, id string, req dto.UpdateSubstituteRequest) (*models.SubstituteRequest, error)
	Delete(ctx context.Context, id string) error
	Transition(ctx context.Context, id string, event models.RequestEvent) (*models.SubstituteRequest, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest) (*models.SubstituteRequest, error)
	Respond(ctx context.Context, id string, req dto.RespondRequest) (*models.SubstituteRequest, *models.SubstituteResponse, error)
	ListResponses(ctx context.Context, id string) ([]models.SubstituteResponse, error)
}

type requestExporter interface {
	ExportRequests(ctx context.Context, format string, filter models.SubstituteRequestFilter) (*service.ExportResult, error)
}

type substituteBroadcaster interface {
	NotifyActiveSubstitutes(ctx context.Context, requestID string) (map[string]models.NotificationOutcome, error)
}

// createSubstituteRequestBody carries the requester alongside the request
// fields.
type createSubstituteRequestBody struct {
	dto.CreateSubstituteRequest
	RequestedBy string `json:"requested_by"`
}

// SubstituteRequestHandler exposes the request lifecycle.
type SubstituteRequestHandler struct {
	service     substituteRequestService
	exporter    requestExporter
	broadcaster substituteBroadcaster
	logger      *zap.Logger
}

// NewSubstituteRequestHandler builds a new handler. A nil broadcaster
// disables notifications on create.
func NewSubstituteRequestHandler(svc substituteRequestService, exporter requestExporter, broadcaster substituteBroadcaster, log *zap.Logger) *SubstituteRequestHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SubstituteRequestHandler{service: svc, exporter: exporter, broadcaster: broadcaster, logger: log}
}

// List godoc
// @Summary List substitute requests
// @Description Ordered by date needed, start time and id
// @Tags SubstituteRequests
// @Produce json
// @Param status query string false "open, filled or cancelled"
// @Param class_id query string false "Class filter"
// @Param requested_by query string false "Requester filter"
// @Param assigned_substitute_id query string false "Assigned substitute filter"
// @Param date_from query string false "Earliest date (YYYY-MM-DD)"
// @Param date_to query string false "Latest date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /substitute-requests [get]
func (h *SubstituteRequestHandler) List(c *gin.Context) {
	filter, ok := requestFilterFromQuery(c)
	if !ok {
		return
	}
	requests, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, requests)
}

// ListForUser godoc
// @Summary List requests relevant to a user
// @Tags SubstituteRequests
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/substitute-requests [get]
func (h *SubstituteRequestHandler) ListForUser(c *gin.Context) {
	requests, err := h.service.ListForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, requests)
}

// Get godoc
// @Summary Get substitute request
// @Tags SubstituteRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /substitute-requests/{id} [get]
func (h *SubstituteRequestHandler) Get(c *gin.Context) {
	req, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req)
}

// Create godoc
// @Summary Create substitute request
// @Description Opens a request; active substitutes are notified when enabled
// @Tags SubstituteRequests
// @Accept json
// @Produce json
// @Param payload body createSubstituteRequestBody true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /substitute-requests [post]
func (h *SubstituteRequestHandler) Create(c *gin.Context) {
	var body createSubstituteRequestBody
	if !bindJSON(c, &body, "invalid substitute request payload") {
		return
	}
	ctx := c.Request.Context()
	req, err := h.service.Create(ctx, body.CreateSubstituteRequest, body.RequestedBy)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.broadcaster == nil {
		response.Created(c, req)
		return
	}
	outcomes, err := h.broadcaster.NotifyActiveSubstitutes(ctx, req.ID)
	if err != nil {
		logger.FromContext(ctx, h.logger).Warn("failed to notify substitutes", zap.String("request_id", req.ID), zap.Error(err))
	}
	response.JSON(c, http.StatusCreated, req, map[string]interface{}{"notifications": outcomes})
}

// Update godoc
// @Summary Update substitute request details
// @Description Only open requests can be edited; status is unchanged
// @Tags SubstituteRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateSubstituteRequest true "Request payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /substitute-requests/{id} [put]
func (h *SubstituteRequestHandler) Update(c *gin.Context) {
	var body dto.UpdateSubstituteRequest
	if !bindJSON(c, &body, "invalid substitute request payload") {
		return
	}
	req, err := h.service.Update(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req)
}

// Delete godoc
// @Summary Delete substitute request
// @Tags SubstituteRequests
// @Param id path string true "Request ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /substitute-requests/{id} [delete]
func (h *SubstituteRequestHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Transition godoc
// @Summary Apply a lifecycle event
// @Description assign (requires substitute_id), unassign or cancel
// @Tags SubstituteRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.TransitionRequest true "Event"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /substitute-requests/{id}/transitions [post]
func (h *SubstituteRequestHandler) Transition(c *gin.Context) {
	var body dto.TransitionRequest
	if !bindJSON(c, &body, "invalid transition payload") {
		return
	}
	eventType, err := models.ParseRequestEventType(body.Event)
	if err != nil {
		response.Error(c, appErrors.As(appErrors.ErrValidation, err, "unknown event"))
		return
	}
	req, err := h.service.Transition(c.Request.Context(), c.Param("id"), models.RequestEvent{Type: eventType, SubstituteID: body.SubstituteID})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req)
}

// UpdateStatus godoc
// @Summary Set request status
// @Description Routed through the same guarded transitions as /transitions
// @Tags SubstituteRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /substitute-requests/{id}/status [put]
func (h *SubstituteRequestHandler) UpdateStatus(c *gin.Context) {
	var body dto.UpdateStatusRequest
	if !bindJSON(c, &body, "invalid status payload") {
		return
	}
	req, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req)
}

// Respond godoc
// @Summary Accept or decline a request
// @Tags SubstituteRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RespondRequest true "Response payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /substitute-requests/{id}/responses [post]
func (h *SubstituteRequestHandler) Respond(c *gin.Context) {
	var body dto.RespondRequest
	if !bindJSON(c, &body, "invalid response payload") {
		return
	}
	req, resp, err := h.service.Respond(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"request": req, "response": resp})
}

// ListResponses godoc
// @Summary List responses to a request
// @Tags SubstituteRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /substitute-requests/{id}/responses [get]
func (h *SubstituteRequestHandler) ListResponses(c *gin.Context) {
	responses, err := h.service.ListResponses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, responses)
}

// Export godoc
// @Summary Export substitute requests
// @Tags SubstituteRequests
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "Status filter"
// @Param date_from query string false "Earliest date (YYYY-MM-DD)"
// @Param date_to query string false "Latest date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /substitute-requests/export [get]
func (h *SubstituteRequestHandler) Export(c *gin.Context) {
	filter, ok := requestFilterFromQuery(c)
	if !ok {
		return
	}
	result, err := h.exporter.ExportRequests(c.Request.Context(), c.DefaultQuery("format", "csv"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func requestFilterFromQuery(c *gin.Context) (models.SubstituteRequestFilter, bool) {
	filter := models.SubstituteRequestFilter{
		ClassID:              queryPtr(c, "class_id"),
		RequestedBy:          queryPtr(c, "requested_by"),
		AssignedSubstituteID: queryPtr(c, "assigned_substitute_id"),
		DateFrom:             queryPtr(c, "date_from"),
		DateTo:               queryPtr(c, "date_to"),
	}
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseRequestStatus(raw)
		if err != nil {
			response.Error(c, appErrors.As(appErrors.ErrValidation, err, "unknown request status"))
			return filter, false
		}
		filter.Status = &status
	}
	return filter, true
}
