package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/substitute-finder/internal/dto"
	"github.com/noah-isme/substitute-finder/internal/models"
	appErrors "github.com/noah-isme/substitute-finder/pkg/errors"
	"github.com/noah-isme/substitute-finder/pkg/logger"
	"github.com/noah-isme/substitute-finder/pkg/notify"
)

const coverageTitle = "New Substitute Request"

type notificationLogRepository interface {
	Create(ctx context.Context, entry *models.NotificationLog) error
	List(ctx context.Context, filter models.NotificationLogFilter) ([]models.NotificationLog, error)
}

type requestReader interface {
	FindByID(ctx context.Context, id string) (*models.SubstituteRequest, error)
}

type recipientDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListActiveSubstitutes(ctx context.Context) ([]models.User, error)
}

// NotificationServiceConfig tunes fan-out.
type NotificationServiceConfig struct {
	// Concurrency caps in-flight deliveries during a fan-out.
	Concurrency int
}

// NotificationService delivers notifications through a sink and keeps the
// per-attempt audit trail.
type NotificationService struct {
	sink      notify.Sink
	logs      notificationLogRepository
	requests  requestReader
	classes   classReader
	users     recipientDirectory
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       NotificationServiceConfig
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(sink notify.Sink, logs notificationLogRepository, requests requestReader, classes classReader, users recipientDirectory, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg NotificationServiceConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &NotificationService{
		sink:      sink,
		logs:      logs,
		requests:  requests,
		classes:   classes,
		users:     users,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Kind is the notification channel of the configured sink.
func (s *NotificationService) Kind() models.NotificationKind {
	return models.NotificationKind(s.sink.Kind())
}

// Send delivers one message and returns its id. Nothing is logged.
func (s *NotificationService) Send(ctx context.Context, req dto.SendNotificationRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid notification payload")
	}
	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, storeError(err, "recipient not found", "failed to load recipient")
	}

	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		RequestID: req.RequestID,
		Kind:      s.Kind(),
		Title:     req.Title,
		Body:      req.Body,
		CreatedAt: models.Now(),
	}
	if err := s.sink.Deliver(ctx, toMessage(n)); err != nil {
		s.metrics.RecordNotification(string(n.Kind), string(models.NotificationFailed))
		return nil, appErrors.As(appErrors.ErrDelivery, err, "")
	}
	s.metrics.RecordNotification(string(n.Kind), string(models.NotificationSent))
	return n, nil
}

// Log appends an audit row and returns its id.
func (s *NotificationService) Log(ctx context.Context, req dto.LogNotificationRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", invalid(err, "invalid notification log payload")
	}
	kind, err := models.ParseNotificationKind(req.Kind)
	if err != nil {
		return "", invalid(err, "unknown notification type")
	}
	status, err := models.ParseNotificationStatus(req.Status)
	if err != nil {
		return "", invalid(err, "unknown notification status")
	}

	entry := &models.NotificationLog{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		RequestID:    req.RequestID,
		Kind:         kind,
		SentAt:       models.Now(),
		Status:       status,
		ErrorMessage: optional(req.ErrorMessage),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return "", storeError(err, "", "failed to append notification log")
	}
	return entry.ID, nil
}

// ListLogs returns audit rows newest first.
func (s *NotificationService) ListLogs(ctx context.Context, filter models.NotificationLogFilter) ([]models.NotificationLog, error) {
	logs, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "", "failed to list notification logs")
	}
	return logs, nil
}

// NotifyCandidates notifies each candidate about a request. Every attempt is
// independent and produces one log row; the outcome map is keyed by user id.
func (s *NotificationService) NotifyCandidates(ctx context.Context, req dto.NotifyCandidatesRequest) (map[string]models.NotificationOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid notify candidates payload")
	}
	request, err := s.requests.FindByID(ctx, req.RequestID)
	if err != nil {
		return nil, storeError(err, "substitute request not found", "failed to load substitute request")
	}

	className := req.ClassName
	if className == "" {
		class, err := s.classes.FindByID(ctx, request.ClassID)
		if err != nil {
			return nil, storeError(err, "class not found", "failed to load class")
		}
		className = class.Name
	}
	dateNeeded := req.DateNeeded
	if dateNeeded == "" {
		dateNeeded = request.DateNeeded
	}

	return s.fanOut(ctx, request.ID, coverageBody(className, dateNeeded), dedupe(req.CandidateIDs)), nil
}

// NotifyActiveSubstitutes broadcasts a request to every active substitute.
func (s *NotificationService) NotifyActiveSubstitutes(ctx context.Context, requestID string) (map[string]models.NotificationOutcome, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, storeError(err, "substitute request not found", "failed to load substitute request")
	}
	class, err := s.classes.FindByID(ctx, request.ClassID)
	if err != nil {
		return nil, storeError(err, "class not found", "failed to load class")
	}
	subs, err := s.users.ListActiveSubstitutes(ctx)
	if err != nil {
		return nil, storeError(err, "", "failed to list substitutes")
	}

	ids := make([]string, 0, len(subs))
	for _, u := range subs {
		ids = append(ids, u.ID)
	}
	return s.fanOut(ctx, request.ID, coverageBody(class.Name, request.DateNeeded), ids), nil
}

func (s *NotificationService) fanOut(ctx context.Context, requestID, body string, candidateIDs []string) map[string]models.NotificationOutcome {
	outcomes := make(map[string]models.NotificationOutcome, len(candidateIDs))
	var mu sync.Mutex

	// Attempts never return an error so one failure cannot cancel the rest.
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, userID := range candidateIDs {
		userID := userID
		g.Go(func() error {
			outcome := s.attempt(ctx, requestID, userID, body)
			mu.Lock()
			outcomes[userID] = outcome
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sent := 0
	for _, o := range outcomes {
		if o.Status == models.NotificationSent {
			sent++
		}
	}
	logger.FromContext(ctx, s.logger).Info("candidates notified",
		zap.String("request_id", requestID),
		zap.Int("candidates", len(candidateIDs)),
		zap.Int("sent", sent),
	)
	return outcomes
}

func (s *NotificationService) attempt(ctx context.Context, requestID, userID, body string) models.NotificationOutcome {
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		RequestID: requestID,
		Kind:      s.Kind(),
		Title:     coverageTitle,
		Body:      body,
		CreatedAt: models.Now(),
	}

	err := s.resolveRecipient(ctx, n)
	if err == nil {
		err = s.sink.Deliver(ctx, toMessage(n))
	}

	outcome := models.NotificationOutcome{Status: models.NotificationSent, NotificationID: n.ID}
	entry := &models.NotificationLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		RequestID: requestID,
		Kind:      n.Kind,
		SentAt:    models.Now(),
		Status:    models.NotificationSent,
	}
	if err != nil {
		msg := err.Error()
		outcome.Status = models.NotificationFailed
		outcome.NotificationID = ""
		outcome.Error = msg
		entry.Status = models.NotificationFailed
		entry.ErrorMessage = &msg
	}
	s.metrics.RecordNotification(string(n.Kind), string(outcome.Status))

	if logErr := s.logs.Create(ctx, entry); logErr != nil {
		logger.FromContext(ctx, s.logger).Warn("failed to append notification log",
			zap.String("request_id", requestID),
			zap.String("user_id", userID),
			zap.String("status", string(entry.Status)),
			zap.Error(logErr),
		)
		return outcome
	}
	outcome.LogID = entry.ID
	return outcome
}

func (s *NotificationService) resolveRecipient(ctx context.Context, n *models.Notification) error {
	user, err := s.users.FindByID(ctx, n.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.New("recipient not found")
		}
		return fmt.Errorf("load recipient: %w", err)
	}
	n.Email = user.Email
	return nil
}

func toMessage(n *models.Notification) notify.Message {
	return notify.Message{
		ID:        n.ID,
		UserID:    n.UserID,
		Email:     n.Email,
		RequestID: n.RequestID,
		Title:     n.Title,
		Body:      n.Body,
		SentAt:    n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func coverageBody(className, dateNeeded string) string {
	return fmt.Sprintf("Substitute needed for %s on %s", className, dateNeeded)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
