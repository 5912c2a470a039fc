// Package memstore is a mutex-guarded in-memory core.Store used by unit
// tests and for local development without Postgres.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/Issouf-Kindo/scheduler/internal/core"
	"github.com/Issouf-Kindo/scheduler/internal/token"
)

type Store struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*core.Appointment
	now    func() time.Time
}

func New() *Store {
	return &Store{rows: map[int64]*core.Appointment{}, now: time.Now}
}

func clone(a *core.Appointment) *core.Appointment {
	c := *a
	if a.Reminder24hSentAt != nil {
		t := *a.Reminder24hSentAt
		c.Reminder24hSentAt = &t
	}
	if a.Reminder1hSentAt != nil {
		t := *a.Reminder1hSentAt
		c.Reminder1hSentAt = &t
	}
	return &c
}

func (s *Store) CreateAppointment(_ context.Context, a *core.Appointment) (*core.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.now()
	stored := clone(a)
	stored.ID = s.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.rows[stored.ID] = stored
	return clone(stored), nil
}

func (s *Store) GetByToken(_ context.Context, tok string, purpose token.Purpose) (*core.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.rows {
		match := a.CancelToken
		if purpose == token.PurposeReschedule {
			match = a.RescheduleToken
		}
		if match == tok {
			return clone(a), nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) CancelAppointment(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.rows[id]
	if !ok {
		return false, core.ErrNotFound
	}
	if a.Status == core.StatusCancelled {
		return false, nil
	}
	a.Status = core.StatusCancelled
	a.UpdatedAt = s.now()
	return true, nil
}

func (s *Store) UpdateSchedule(_ context.Context, id int64, date time.Time, slot string) (*core.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.rows[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if a.Status != core.StatusScheduled {
		return nil, core.ErrCancelled
	}
	a.AppointmentDate = date
	a.AppointmentTime = slot
	a.Reminder24hSentAt = nil
	a.Reminder1hSentAt = nil
	a.UpdatedAt = s.now()
	return clone(a), nil
}

func (s *Store) ListScheduled(_ context.Context) ([]*core.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.Appointment
	for _, a := range s.rows {
		if a.Status == core.StatusScheduled {
			out = append(out, clone(a))
		}
	}
	return out, nil
}

func (s *Store) MarkReminderSent(_ context.Context, id int64, w core.Window, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.rows[id]
	if !ok {
		return core.ErrNotFound
	}
	switch w {
	case core.Window24h:
		if a.Reminder24hSentAt == nil {
			a.Reminder24hSentAt = &sentAt
		}
	case core.Window1h:
		if a.Reminder1hSentAt == nil {
			a.Reminder1hSentAt = &sentAt
		}
	}
	return nil
}
