package notify

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewSMSSenderFor selects the sender for a configured provider name.
// Unknown names fall back to the log sender.
func NewSMSSenderFor(provider string, log *zap.Logger) SMSSender {
	if provider == "dummy" {
		return NewDummySMSSender(log)
	}
	return NewLogSMSSender(log)
}

// LogSMSSender stands in when no SMS provider is configured: it logs the
// message and reports success, so the rest of the pipeline behaves as in
// production.
type LogSMSSender struct {
	log *zap.Logger
}

func NewLogSMSSender(log *zap.Logger) *LogSMSSender {
	return &LogSMSSender{log: log}
}

func (s *LogSMSSender) SendSMS(ctx context.Context, to, body string) error {
	s.log.Info("sms would be sent",
		zap.String("to", to),
		zap.String("body", body))
	return nil
}

// DummySMSSender simulates a real provider for load and failure testing.
type DummySMSSender struct {
	log *zap.Logger
}

func NewDummySMSSender(log *zap.Logger) *DummySMSSender {
	return &DummySMSSender{log: log}
}

func (s *DummySMSSender) SendSMS(ctx context.Context, to, body string) error {
	// Simulate latency and occasional failures.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	if rand.Intn(100) < 3 { // ~3% failure
		return errors.New("provider_temporary_error")
	}
	s.log.Debug("dummy sms sent",
		zap.String("to", to),
		zap.String("provider_message_id", "prov-"+uuid.NewString()))
	return nil
}
