package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/substitute-finder/internal/dto"
	"github.com/noah-isme/substitute-finder/internal/models"
	"github.com/noah-isme/substitute-finder/pkg/response"
)

type notificationService interface {
	Send(ctx context.Context, req dto.SendNotificationRequest) (*models.Notification, error)
	Log(ctx context.Context, req dto.LogNotificationRequest) (string, error)
	ListLogs(ctx context.Context, filter models.NotificationLogFilter) ([]models.NotificationLog, error)
	NotifyCandidates(ctx context.Context, req dto.NotifyCandidatesRequest) (map[string]models.NotificationOutcome, error)
}

// NotificationHandler exposes the notification dispatcher.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler builds a new handler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// Send godoc
// @Summary Deliver a single notification
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body dto.SendNotificationRequest true "Notification"
// @Success 201 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /notifications/send [post]
func (h *NotificationHandler) Send(c *gin.Context) {
	var req dto.SendNotificationRequest
	if !bindJSON(c, &req, "invalid notification payload") {
		return
	}
	n, err := h.service.Send(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": n.ID, "notification_type": n.Kind})
}

// Log godoc
// @Summary Append a notification log row
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body dto.LogNotificationRequest true "Log entry"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /notifications/logs [post]
func (h *NotificationHandler) Log(c *gin.Context) {
	var req dto.LogNotificationRequest
	if !bindJSON(c, &req, "invalid notification log payload") {
		return
	}
	id, err := h.service.Log(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": id})
}

// ListLogs godoc
// @Summary List notification logs
// @Description Newest first
// @Tags Notifications
// @Produce json
// @Param user_id query string false "Recipient filter"
// @Param request_id query string false "Request filter"
// @Success 200 {object} response.Envelope
// @Router /notifications/logs [get]
func (h *NotificationHandler) ListLogs(c *gin.Context) {
	logs, err := h.service.ListLogs(c.Request.Context(), models.NotificationLogFilter{
		UserID:    queryPtr(c, "user_id"),
		RequestID: queryPtr(c, "request_id"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, logs)
}

// NotifyCandidates godoc
// @Summary Notify candidate substitutes about a request
// @Description Each candidate is attempted independently; the outcome map is keyed by user id
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body dto.NotifyCandidatesRequest true "Candidates"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notifications/notify-candidates [post]
func (h *NotificationHandler) NotifyCandidates(c *gin.Context) {
	var req dto.NotifyCandidatesRequest
	if !bindJSON(c, &req, "invalid notify candidates payload") {
		return
	}
	outcomes, err := h.service.NotifyCandidates(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcomes)
}
