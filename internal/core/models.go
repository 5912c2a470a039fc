package core

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
)

// Window identifies a reminder band before an appointment's start.
type Window string

const (
	Window24h Window = "24h"
	Window1h  Window = "1h"
)

// TimeSlots is the fixed set of bookable slot labels (24h clock).
var TimeSlots = []string{"09:00", "10:00", "11:00", "14:00", "15:00", "16:00"}

type Appointment struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	AppointmentDate   time.Time  `json:"appointmentDate"`
	AppointmentTime   string     `json:"appointmentTime"`
	EmailReminder     bool       `json:"emailReminder"`
	SMSReminder       bool       `json:"smsReminder"`
	CancelToken       string     `json:"-"`
	RescheduleToken   string     `json:"-"`
	Status            Status     `json:"status"`
	Language          string     `json:"language"`
	Reminder24hSentAt *time.Time `json:"-"`
	Reminder1hSentAt  *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// ConfirmationID is the display identifier; derived from ID, never stored.
func (a *Appointment) ConfirmationID() string {
	return fmt.Sprintf("APT-%d", a.ID)
}

func (a *Appointment) ReminderSent(w Window) bool {
	switch w {
	case Window24h:
		return a.Reminder24hSentAt != nil
	case Window1h:
		return a.Reminder1hSentAt != nil
	}
	return false
}

func ValidSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}
