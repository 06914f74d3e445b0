package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder/pkg/config"
)

// Kinds reported by the bundled sinks. They match the notification_type column.
const (
	KindInApp = "in_app"
	KindEmail = "email"
)

// Message is a single notification addressed to one user.
type Message struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Email     string `json:"-"`
	RequestID string `json:"request_id,omitempty"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	SentAt    string `json:"sent_at"`
}

// Sink delivers messages over one channel. Deliver must be safe for concurrent use.
type Sink interface {
	Kind() string
	Deliver(ctx context.Context, msg Message) error
}

// New builds the sink selected by cfg.Notify.Sink. The returned close func
// releases any client the sink holds.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Sink, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Notify.Sink {
	case "", config.SinkLog:
		return NewLogSink(logger), noop, nil
	case config.SinkRedis:
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return NewRedisSink(client, cfg.Redis.Channel), client.Close, nil
	case config.SinkSES:
		sink, err := NewSESSinkFromEnv(ctx, cfg.Notify)
		if err != nil {
			return nil, nil, err
		}
		return sink, noop, nil
	default:
		return nil, nil, fmt.Errorf("unsupported notification sink %q", cfg.Notify.Sink)
	}
}

// LogSink writes messages to the application log. It is the default in
// development and never fails.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink constructs a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("notify")}
}

// Kind implements Sink.
func (s *LogSink) Kind() string { return KindInApp }

// Deliver implements Sink.
func (s *LogSink) Deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("notification delivered",
		zap.String("notification_id", msg.ID),
		zap.String("user_id", msg.UserID),
		zap.String("request_id", msg.RequestID),
		zap.String("title", msg.Title),
	)
	return nil
}
