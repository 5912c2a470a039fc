package notify

import (
	"fmt"
	"time"

	"github.com/Issouf-Kindo/scheduler/internal/core"
)

// Notification text differs only by language and, for reminders, by which
// window fired. Structure mirrors the confirmation message: name, formatted
// start time, confirmation id.

func formatStart(t time.Time, lang string) string {
	if lang == "fr" {
		return t.Format("02/01/2006 15:04")
	}
	return t.Format("January 2, 2006 at 3:04 PM")
}

func windowPhrase(w core.Window, lang string) string {
	if lang == "fr" {
		if w == core.Window1h {
			return "dans 1 heure"
		}
		return "dans 24 heures"
	}
	if w == core.Window1h {
		return "in 1 hour"
	}
	return "in 24 hours"
}

func confirmationEmail(a *core.Appointment, baseURL string) (subject, html string) {
	start := formatStart(a.AppointmentDate, a.Language)
	if a.Language == "fr" {
		subject = "Confirmation de rendez-vous"
		html = fmt.Sprintf(`<h2>Votre rendez-vous est confirmé</h2>
<p><strong>Nom:</strong> %s</p>
<p><strong>Date:</strong> %s</p>
<p><strong>ID de confirmation:</strong> %s</p>
<p><a href="%s/cancel/%s">Annuler</a> | <a href="%s/reschedule/%s">Reprogrammer</a></p>`,
			a.Name, start, a.ConfirmationID(),
			baseURL, a.CancelToken, baseURL, a.RescheduleToken)
		return subject, html
	}
	subject = "Appointment Confirmation"
	html = fmt.Sprintf(`<h2>Your appointment is confirmed</h2>
<p><strong>Name:</strong> %s</p>
<p><strong>Date:</strong> %s</p>
<p><strong>Confirmation ID:</strong> %s</p>
<p><a href="%s/cancel/%s">Cancel</a> | <a href="%s/reschedule/%s">Reschedule</a></p>`,
		a.Name, start, a.ConfirmationID(),
		baseURL, a.CancelToken, baseURL, a.RescheduleToken)
	return subject, html
}

func confirmationSMS(a *core.Appointment) string {
	start := formatStart(a.AppointmentDate, a.Language)
	if a.Language == "fr" {
		return fmt.Sprintf("Rendez-vous confirmé pour %s le %s. ID: %s", a.Name, start, a.ConfirmationID())
	}
	return fmt.Sprintf("Appointment confirmed for %s on %s. ID: %s", a.Name, start, a.ConfirmationID())
}

func reminderEmail(a *core.Appointment, w core.Window) (subject, html string) {
	start := formatStart(a.AppointmentDate, a.Language)
	phrase := windowPhrase(w, a.Language)
	if a.Language == "fr" {
		subject = fmt.Sprintf("Rappel: Rendez-vous %s", phrase)
		html = fmt.Sprintf(`<h2>Rappel de rendez-vous</h2>
<p>Vous avez un rendez-vous %s.</p>
<p><strong>Nom:</strong> %s</p>
<p><strong>Date:</strong> %s</p>
<p><strong>ID de confirmation:</strong> %s</p>`,
			phrase, a.Name, start, a.ConfirmationID())
		return subject, html
	}
	subject = fmt.Sprintf("Reminder: Appointment %s", phrase)
	html = fmt.Sprintf(`<h2>Appointment Reminder</h2>
<p>You have an appointment %s.</p>
<p><strong>Name:</strong> %s</p>
<p><strong>Date:</strong> %s</p>
<p><strong>Confirmation ID:</strong> %s</p>`,
		phrase, a.Name, start, a.ConfirmationID())
	return subject, html
}

func reminderSMS(a *core.Appointment, w core.Window) string {
	start := formatStart(a.AppointmentDate, a.Language)
	phrase := windowPhrase(w, a.Language)
	if a.Language == "fr" {
		return fmt.Sprintf("Rappel: Rendez-vous pour %s %s le %s. ID: %s", a.Name, phrase, start, a.ConfirmationID())
	}
	return fmt.Sprintf("Reminder: Appointment for %s %s on %s. ID: %s", a.Name, phrase, start, a.ConfirmationID())
}
