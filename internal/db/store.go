// Package db is the Postgres implementation of core.Store, written against
// pgx with hand-maintained SQL. Status and schedule updates carry their
// guard in the WHERE clause, so racing mutations resolve per-row in the
// database rather than in process memory.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Issouf-Kindo/scheduler/internal/core"
	"github.com/Issouf-Kindo/scheduler/internal/token"
)

type Store struct{ Pool *pgxpool.Pool }

func NewStore(pool *pgxpool.Pool) *Store { return &Store{Pool: pool} }

const appointmentColumns = `id, name, email, phone, appointment_date, appointment_time,
	email_reminder, sms_reminder, cancel_token, reschedule_token, status, language,
	reminder_24h_sent_at, reminder_1h_sent_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*core.Appointment, error) {
	var a core.Appointment
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.Phone, &a.AppointmentDate, &a.AppointmentTime,
		&a.EmailReminder, &a.SMSReminder, &a.CancelToken, &a.RescheduleToken, &a.Status, &a.Language,
		&a.Reminder24hSentAt, &a.Reminder1hSentAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *core.Appointment) (*core.Appointment, error) {
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO appointments(name, email, phone, appointment_date, appointment_time,
			email_reminder, sms_reminder, cancel_token, reschedule_token, status, language)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, created_at, updated_at
	`, a.Name, a.Email, a.Phone, a.AppointmentDate, a.AppointmentTime,
		a.EmailReminder, a.SMSReminder, a.CancelToken, a.RescheduleToken, a.Status, a.Language,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) GetByToken(ctx context.Context, tok string, purpose token.Purpose) (*core.Appointment, error) {
	column := "cancel_token"
	if purpose == token.PurposeReschedule {
		column = "reschedule_token"
	}
	a, err := scanAppointment(s.Pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE `+column+`=$1`, tok))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CancelAppointment only transitions rows that are not already cancelled;
// the returned bool is false when another request got there first.
func (s *Store) CancelAppointment(ctx context.Context, id int64) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE appointments SET status=$2, updated_at=now()
		WHERE id=$1 AND status <> $2
	`, id, core.StatusCancelled)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) UpdateSchedule(ctx context.Context, id int64, date time.Time, slot string) (*core.Appointment, error) {
	a, err := scanAppointment(s.Pool.QueryRow(ctx, `
		UPDATE appointments
		SET appointment_date=$2, appointment_time=$3,
			reminder_24h_sent_at=NULL, reminder_1h_sent_at=NULL, updated_at=now()
		WHERE id=$1 AND status=$4
		RETURNING `+appointmentColumns,
		id, date, slot, core.StatusScheduled))
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a vanished row from one that lost the race to a cancel.
		var status core.Status
		serr := s.Pool.QueryRow(ctx, `SELECT status FROM appointments WHERE id=$1`, id).Scan(&status)
		if errors.Is(serr, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		if serr != nil {
			return nil, serr
		}
		return nil, core.ErrCancelled
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) ListScheduled(ctx context.Context) ([]*core.Appointment, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE status=$1`, core.StatusScheduled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) MarkReminderSent(ctx context.Context, id int64, w core.Window, sentAt time.Time) error {
	column := "reminder_24h_sent_at"
	if w == core.Window1h {
		column = "reminder_1h_sent_at"
	}
	_, err := s.Pool.Exec(ctx, `
		UPDATE appointments SET `+column+`=$2
		WHERE id=$1 AND `+column+` IS NULL
	`, id, sentAt)
	return err
}
