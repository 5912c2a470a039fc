package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Issouf-Kindo/scheduler/internal/core"
	"github.com/Issouf-Kindo/scheduler/internal/metrics"
	"github.com/Issouf-Kindo/scheduler/internal/token"
)

type Server struct {
	Service *core.Service

	// ready probes the store dependency for /readyz; nil means always ready.
	ready func(ctx context.Context) error
	log   *zap.Logger
}

func NewServer(svc *core.Service, ready func(ctx context.Context) error, log *zap.Logger) *Server {
	return &Server{Service: svc, ready: ready, log: log}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(instrument)

	s.mountHealth(r)
	s.mountMetrics(r)
	s.mountDocs(r)

	r.Route("/api/appointments", func(r chi.Router) {
		r.Post("/", s.createAppointment)
		r.Get("/cancel/{token}", s.cancelAppointment)
		r.Get("/reschedule/{token}", s.getReschedule)
		r.Put("/reschedule/{token}", s.putReschedule)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req core.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	a, err := s.Service.Create(r.Context(), req)
	if err != nil {
		var verr *core.ValidationError
		switch {
		case errors.As(err, &verr):
			metrics.BookingsTotal.WithLabelValues("validation_error").Inc()
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"message": "Validation failed",
				"errors":  verr.Fields,
			})
		case errors.Is(err, core.ErrInvalidDateTime):
			metrics.BookingsTotal.WithLabelValues("validation_error").Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid date or time format"})
		default:
			metrics.BookingsTotal.WithLabelValues("error").Inc()
			s.log.Error("create appointment failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		}
		return
	}

	metrics.BookingsTotal.WithLabelValues("created").Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"appointment": map[string]any{
			"id":              a.ID,
			"name":            a.Name,
			"appointmentDate": a.AppointmentDate,
			"appointmentTime": a.AppointmentTime,
			"status":          a.Status,
			"confirmationId":  a.ConfirmationID(),
			"cancelToken":     a.CancelToken,
			"rescheduleToken": a.RescheduleToken,
		},
	})
}

func (s *Server) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")

	a, err := s.Service.CancelByToken(r.Context(), tok)
	if err != nil {
		s.writeLifecycleError(w, "cancel", err, map[error]string{
			core.ErrAlreadyCancelled: "Appointment already cancelled",
		})
		return
	}

	metrics.LifecycleTotal.WithLabelValues("cancel", "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Appointment cancelled successfully",
		"appointment": map[string]any{
			"id":     a.ID,
			"name":   a.Name,
			"status": a.Status,
		},
	})
}

func (s *Server) getReschedule(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")

	a, err := s.Service.RescheduleView(r.Context(), tok)
	if err != nil {
		s.writeLifecycleError(w, "reschedule", err, map[error]string{
			core.ErrCancelled: "Cannot reschedule cancelled appointment",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"appointment": map[string]any{
			"id":              a.ID,
			"name":            a.Name,
			"email":           a.Email,
			"phone":           a.Phone,
			"appointmentDate": a.AppointmentDate,
			"appointmentTime": a.AppointmentTime,
			"emailReminder":   a.EmailReminder,
			"smsReminder":     a.SMSReminder,
			"language":        a.Language,
		},
	})
}

func (s *Server) putReschedule(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")

	var in struct {
		AppointmentDate string `json:"appointmentDate"`
		AppointmentTime string `json:"appointmentTime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	a, err := s.Service.RescheduleByToken(r.Context(), tok, in.AppointmentDate, in.AppointmentTime)
	if err != nil {
		s.writeLifecycleError(w, "reschedule", err, map[error]string{
			core.ErrCancelled:       "Cannot reschedule cancelled appointment",
			core.ErrInvalidDateTime: "Invalid date or time format",
		})
		return
	}

	metrics.LifecycleTotal.WithLabelValues("reschedule", "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Appointment rescheduled successfully",
		"appointment": a,
	})
}

// writeLifecycleError maps service errors onto the token-link response
// contract: guard violations get a specific 400, a missing row gets 404,
// and anything token-shaped collapses into one generic message so callers
// cannot probe which aspect failed.
func (s *Server) writeLifecycleError(w http.ResponseWriter, op string, err error, guards map[error]string) {
	for sentinel, msg := range guards {
		if errors.Is(err, sentinel) {
			metrics.LifecycleTotal.WithLabelValues(op, "guard").Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": msg})
			return
		}
	}
	switch {
	case errors.Is(err, core.ErrNotFound):
		metrics.LifecycleTotal.WithLabelValues(op, "guard").Inc()
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Appointment not found"})
	case errors.Is(err, token.ErrInvalidToken), errors.Is(err, token.ErrWrongPurpose):
		metrics.LifecycleTotal.WithLabelValues(op, "guard").Inc()
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Invalid or expired token"})
	default:
		metrics.LifecycleTotal.WithLabelValues(op, "error").Inc()
		s.log.Error("lifecycle operation failed", zap.String("op", op), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
}
