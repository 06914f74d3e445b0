package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder/pkg/config"
)

type publisherStub struct {
	channel string
	payload []byte
	err     error
}

func (p *publisherStub) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.payload, _ = message.([]byte)
	return redis.NewIntResult(1, p.err)
}

type emailStub struct {
	input *sesv2.SendEmailInput
	err   error
}

func (e *emailStub) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	e.input = params
	return &sesv2.SendEmailOutput{}, e.err
}

func TestRedisSinkPublishesJSON(t *testing.T) {
	stub := &publisherStub{}
	sink := NewRedisSink(stub, "events")

	err := sink.Deliver(context.Background(), Message{ID: "n1", UserID: "u1", Email: "secret@example.com", Title: "Coverage needed"})
	require.NoError(t, err)
	assert.Equal(t, "events", stub.channel)
	assert.Equal(t, KindInApp, sink.Kind())

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(stub.payload, &decoded))
	assert.Equal(t, "u1", decoded["user_id"])
	assert.NotContains(t, decoded, "Email")
}

func TestRedisSinkWrapsPublishError(t *testing.T) {
	sink := NewRedisSink(&publisherStub{err: errors.New("connection refused")}, "events")
	err := sink.Deliver(context.Background(), Message{ID: "n1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSESSinkRequiresAddress(t *testing.T) {
	stub := &emailStub{}
	sink := NewSESSink(stub, "noreply@example.com")

	assert.ErrorIs(t, sink.Deliver(context.Background(), Message{UserID: "u1"}), ErrNoRecipientAddress)
	assert.Nil(t, stub.input)
}

func TestSESSinkBuildsEmail(t *testing.T) {
	stub := &emailStub{}
	sink := NewSESSink(stub, "noreply@example.com")

	err := sink.Deliver(context.Background(), Message{UserID: "u1", Email: "sub@example.com", Title: "Coverage needed", Body: "5th Grade Math"})
	require.NoError(t, err)
	require.NotNil(t, stub.input)
	assert.Equal(t, "noreply@example.com", *stub.input.FromEmailAddress)
	assert.Equal(t, []string{"sub@example.com"}, stub.input.Destination.ToAddresses)
	assert.Equal(t, "5th Grade Math", *stub.input.Content.Simple.Body.Text.Data)
	assert.Equal(t, KindEmail, sink.Kind())
}

func TestNewDefaultsToLogSink(t *testing.T) {
	sink, closeFn, err := New(context.Background(), &config.Config{}, zap.NewNop())
	require.NoError(t, err)
	defer closeFn() //nolint:errcheck
	assert.IsType(t, &LogSink{}, sink)
	assert.NoError(t, sink.Deliver(context.Background(), Message{ID: "n1"}))
}

func TestNewRejectsUnknownSink(t *testing.T) {
	_, _, err := New(context.Background(), &config.Config{Notify: config.NotifyConfig{Sink: "pigeon"}}, nil)
	require.Error(t, err)
}
