package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/noah-isme/substitute-finder/pkg/config"
)

// ErrNoRecipientAddress is returned when an email message has no address.
var ErrNoRecipientAddress = errors.New("recipient has no email address")

type emailClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSink sends plain-text email through Amazon SES.
type SESSink struct {
	client    emailClient
	fromEmail string
}

// NewSESSink constructs a SESSink around an existing client.
func NewSESSink(client emailClient, fromEmail string) *SESSink {
	return &SESSink{client: client, fromEmail: fromEmail}
}

// NewSESSinkFromEnv loads AWS credentials from the default chain.
func NewSESSinkFromEnv(ctx context.Context, cfg config.NotifyConfig) (*SESSink, error) {
	if cfg.SESFromEmail == "" {
		return nil, errors.New("SES_FROM_EMAIL is required for the ses sink")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESSink(sesv2.NewFromConfig(awsCfg), cfg.SESFromEmail), nil
}

// Kind implements Sink.
func (s *SESSink) Kind() string { return KindEmail }

// Deliver implements Sink.
func (s *SESSink) Deliver(ctx context.Context, msg Message) error {
	if msg.Email == "" {
		return ErrNoRecipientAddress
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.fromEmail),
		Destination:      &sestypes.Destination{ToAddresses: []string{msg.Email}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(msg.Title)},
				Body:    &sestypes.Body{Text: &sestypes.Content{Data: aws.String(msg.Body)}},
			},
		},
	}
	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
