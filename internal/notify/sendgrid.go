package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// SendGridSender sends emails via the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	log       *zap.Logger
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

func NewSendGridSender(cfg SendGridConfig, log *zap.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.FromName == "" {
		cfg.FromName = "Scheduler"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		log:       log,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)

	plain := msg.Body
	if plain == "" {
		plain = msg.Subject
	}
	m := mail.NewSingleEmail(from, msg.Subject, to, plain, msg.HTML)

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.log.Error("sendgrid returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("to", msg.To))
		return fmt.Errorf("notify: sendgrid status %d", resp.StatusCode)
	}
	return nil
}

// StubEmailSender logs instead of sending; used in development and when no
// SendGrid key is configured.
type StubEmailSender struct {
	log *zap.Logger
}

func NewStubEmailSender(log *zap.Logger) *StubEmailSender {
	return &StubEmailSender{log: log}
}

func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.log.Info("email would be sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
