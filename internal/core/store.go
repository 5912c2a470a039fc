package core

import (
	"context"
	"time"

	"github.com/Issouf-Kindo/scheduler/internal/token"
)

// Store is the durable record of appointments. Implementations must make a
// single status or field update atomic per row; no coordination beyond that
// is assumed.
type Store interface {
	// CreateAppointment assigns ID, CreatedAt and UpdatedAt and returns the
	// stored row.
	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)

	// GetByToken resolves an appointment through its cancel or reschedule
	// token. Returns ErrNotFound when the token matches no row.
	GetByToken(ctx context.Context, tok string, purpose token.Purpose) (*Appointment, error)

	// CancelAppointment transitions a row to cancelled. It only touches rows
	// that are not already cancelled and reports whether a transition
	// happened, so two racing cancels resolve to exactly one winner.
	CancelAppointment(ctx context.Context, id int64) (bool, error)

	// UpdateSchedule replaces the date and slot of a scheduled appointment,
	// clears both reminder markers and bumps UpdatedAt. Returns ErrCancelled
	// if the row is no longer scheduled.
	UpdateSchedule(ctx context.Context, id int64, date time.Time, slot string) (*Appointment, error)

	// ListScheduled returns every appointment with status scheduled,
	// unordered.
	ListScheduled(ctx context.Context) ([]*Appointment, error)

	// MarkReminderSent records that the given window's reminder was
	// dispatched at sentAt.
	MarkReminderSent(ctx context.Context, id int64, w Window, sentAt time.Time) error
}

// Notifier delivers user-facing notifications. Delivery is best-effort:
// implementations log failures and never propagate them to callers.
type Notifier interface {
	Confirmation(ctx context.Context, a *Appointment)
	Reminder(ctx context.Context, a *Appointment, w Window)
}
