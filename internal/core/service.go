package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Issouf-Kindo/scheduler/internal/token"
)

// CreateRequest is the validated shape of a booking submission.
// AppointmentDate is an ISO calendar date; AppointmentTime must be one of
// the fixed slot labels.
type CreateRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	EmailReminder   bool   `json:"emailReminder"`
	SMSReminder     bool   `json:"smsReminder"`
	Language        string `json:"language"`
}

// Service orchestrates the appointment lifecycle: create, token-gated cancel
// and reschedule. Notification dispatch is advisory; a failed send never
// rolls back a persisted appointment.
type Service struct {
	store    Store
	tokens   *token.Service
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Store, tokens *token.Service, notifier Notifier, log *zap.Logger) *Service {
	return &Service{store: store, tokens: tokens, notifier: notifier, log: log, now: time.Now}
}

func (s *Service) validate(req *CreateRequest) *ValidationError {
	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "Name is required"
	}
	if req.AppointmentDate == "" {
		fields["appointmentDate"] = "Date is required"
	}
	if req.AppointmentTime == "" {
		fields["appointmentTime"] = "Time is required"
	} else if !ValidSlot(req.AppointmentTime) {
		fields["appointmentTime"] = "Time must be one of the offered slots"
	}
	if req.Email == "" && req.Phone == "" {
		fields["email"] = "Either email or phone number is required"
	}
	switch req.Language {
	case "":
		req.Language = "en"
	case "en", "fr":
	default:
		fields["language"] = "Language must be en or fr"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// parseStart combines the ISO date with the slot label into an absolute
// start time, rejecting dates before today.
func (s *Service) parseStart(date, slot string) (time.Time, error) {
	t, err := time.Parse("2006-01-02T15:04", date+"T"+slot)
	if err != nil {
		return time.Time{}, ErrInvalidDateTime
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if t.Before(today) {
		return time.Time{}, ErrInvalidDateTime
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if verr := s.validate(&req); verr != nil {
		return nil, verr
	}
	start, err := s.parseStart(req.AppointmentDate, req.AppointmentTime)
	if err != nil {
		return nil, err
	}

	cancelToken, err := s.tokens.Issue(token.PurposeCancel)
	if err != nil {
		return nil, err
	}
	rescheduleToken, err := s.tokens.Issue(token.PurposeReschedule)
	if err != nil {
		return nil, err
	}

	a, err := s.store.CreateAppointment(ctx, &Appointment{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		AppointmentDate: start,
		AppointmentTime: req.AppointmentTime,
		EmailReminder:   req.EmailReminder,
		SMSReminder:     req.SMSReminder,
		CancelToken:     cancelToken,
		RescheduleToken: rescheduleToken,
		Status:          StatusScheduled,
		Language:        req.Language,
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Confirmation(ctx, a)
	return a, nil
}

// CancelByToken applies the scheduled -> cancelled transition. Cancelled is
// terminal: a second call on the same token surfaces ErrAlreadyCancelled.
func (s *Service) CancelByToken(ctx context.Context, raw string) (*Appointment, error) {
	if _, err := s.tokens.VerifyPurpose(raw, token.PurposeCancel); err != nil {
		return nil, err
	}
	a, err := s.store.GetByToken(ctx, raw, token.PurposeCancel)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	ok, err := s.store.CancelAppointment(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// another request won the transition between our read and the write
		return nil, ErrAlreadyCancelled
	}
	s.log.Info("appointment cancelled", zap.Int64("id", a.ID))
	a.Status = StatusCancelled
	return a, nil
}

// RescheduleView returns the editable projection behind a reschedule link.
func (s *Service) RescheduleView(ctx context.Context, raw string) (*Appointment, error) {
	if _, err := s.tokens.VerifyPurpose(raw, token.PurposeReschedule); err != nil {
		return nil, err
	}
	a, err := s.store.GetByToken(ctx, raw, token.PurposeReschedule)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCancelled {
		return nil, ErrCancelled
	}
	return a, nil
}

// RescheduleByToken moves a scheduled appointment to a new date and slot.
// Status never changes on this path; both reminder markers are reset so the
// new start time gets its own reminders.
func (s *Service) RescheduleByToken(ctx context.Context, raw, date, slot string) (*Appointment, error) {
	if _, err := s.tokens.VerifyPurpose(raw, token.PurposeReschedule); err != nil {
		return nil, err
	}
	a, err := s.store.GetByToken(ctx, raw, token.PurposeReschedule)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCancelled {
		return nil, ErrCancelled
	}
	if !ValidSlot(slot) {
		return nil, ErrInvalidDateTime
	}
	start, err := s.parseStart(date, slot)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateSchedule(ctx, a.ID, start, slot)
	if err != nil {
		return nil, err
	}
	s.log.Info("appointment rescheduled",
		zap.Int64("id", a.ID),
		zap.Time("new_start", start))
	return updated, nil
}
