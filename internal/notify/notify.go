// Package notify sends the transactional emails: new leads, received
// submissions and approval decisions.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// package-level logger; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the notify package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Message is one email.
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// Mailer delivers a message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// SESAPI is the subset of the SES client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends through Amazon SES.
type SESMailer struct {
	api  SESAPI
	from string
}

// NewSESMailer loads AWS credentials from the environment for region.
func NewSESMailer(ctx context.Context, region, from string) (*SESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESMailer{api: ses.NewFromConfig(cfg), from: from}, nil
}

// NewSESMailerWithAPI wraps an existing client.
func NewSESMailerWithAPI(api SESAPI, from string) *SESMailer {
	return &SESMailer{api: api, from: from}
}

func (s *SESMailer) Send(ctx context.Context, m Message) error {
	if len(m.To) == 0 {
		return errors.New("message has no recipients")
	}
	body := &types.Body{}
	if m.HTML != "" {
		body.Html = &types.Content{Data: aws.String(m.HTML), Charset: aws.String("UTF-8")}
	}
	if m.Text != "" {
		body.Text = &types.Content{Data: aws.String(m.Text), Charset: aws.String("UTF-8")}
	}

	out, err := s.api.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: m.To},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(m.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
		Source: aws.String(s.from),
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	logger.Info("notify: email sent", slog.String("subject", m.Subject), slog.Int("recipients", len(m.To)), slog.String("message_id", aws.ToString(out.MessageId)))
	return nil
}

// LogMailer only logs messages. It is used when email is disabled.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, m Message) error {
	logger.Info("notify: email disabled, message logged", slog.String("to", strings.Join(m.To, ",")), slog.String("subject", m.Subject))
	return nil
}
