// Package notify delivers confirmation and reminder notifications over
// email and SMS. Delivery is best-effort: every failure is logged and
// counted, none is surfaced to the triggering operation.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Issouf-Kindo/scheduler/internal/core"
	"github.com/Issouf-Kindo/scheduler/internal/metrics"
)

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string // plain text body
	HTML    string // optional HTML body
}

// EmailSender defines the interface for sending emails. Implementations can
// be swapped (SendGrid, SMTP, stub) without changing callers.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMSSender sends a single SMS message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type Options struct {
	BaseURL     string  // public base URL for cancel/reschedule links
	SendTimeout time.Duration
	QPS         float64 // sustained outbound rate across both channels
	Burst       int
}

// Dispatcher fans a notification out to every channel the appointment has
// enabled. It implements core.Notifier.
type Dispatcher struct {
	email   EmailSender
	sms     SMSSender
	limiter *rate.Limiter
	opt     Options
	log     *zap.Logger
}

func NewDispatcher(email EmailSender, sms SMSSender, opt Options, log *zap.Logger) *Dispatcher {
	if opt.SendTimeout <= 0 {
		opt.SendTimeout = 10 * time.Second
	}
	if opt.QPS <= 0 {
		opt.QPS = 10
	}
	if opt.Burst <= 0 {
		opt.Burst = 20
	}
	return &Dispatcher{
		email:   email,
		sms:     sms,
		limiter: rate.NewLimiter(rate.Limit(opt.QPS), opt.Burst),
		opt:     opt,
		log:     log,
	}
}

func (d *Dispatcher) Confirmation(ctx context.Context, a *core.Appointment) {
	if a.EmailReminder && a.Email != "" {
		subject, html := confirmationEmail(a, d.opt.BaseURL)
		d.sendEmail(ctx, a, subject, html)
	}
	if a.SMSReminder && a.Phone != "" {
		d.sendSMS(ctx, a, confirmationSMS(a))
	}
}

func (d *Dispatcher) Reminder(ctx context.Context, a *core.Appointment, w core.Window) {
	if a.EmailReminder && a.Email != "" {
		subject, html := reminderEmail(a, w)
		d.sendEmail(ctx, a, subject, html)
	}
	if a.SMSReminder && a.Phone != "" {
		d.sendSMS(ctx, a, reminderSMS(a, w))
	}
}

func (d *Dispatcher) sendEmail(ctx context.Context, a *core.Appointment, subject, html string) {
	if err := d.limiter.Wait(ctx); err != nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, d.opt.SendTimeout)
	defer cancel()

	err := d.email.Send(cctx, EmailMessage{
		To:      a.Email,
		ToName:  a.Name,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		metrics.DispatchTotal.WithLabelValues("email", "error").Inc()
		d.log.Warn("email dispatch failed",
			zap.Int64("appointment_id", a.ID),
			zap.Error(err))
		return
	}
	metrics.DispatchTotal.WithLabelValues("email", "sent").Inc()
}

func (d *Dispatcher) sendSMS(ctx context.Context, a *core.Appointment, body string) {
	if err := d.limiter.Wait(ctx); err != nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, d.opt.SendTimeout)
	defer cancel()

	if err := d.sms.SendSMS(cctx, a.Phone, body); err != nil {
		metrics.DispatchTotal.WithLabelValues("sms", "error").Inc()
		d.log.Warn("sms dispatch failed",
			zap.Int64("appointment_id", a.ID),
			zap.Error(err))
		return
	}
	metrics.DispatchTotal.WithLabelValues("sms", "sent").Inc()
}
