package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Issouf-Kindo/scheduler/internal/core"
	"github.com/Issouf-Kindo/scheduler/internal/memstore"
	"github.com/Issouf-Kindo/scheduler/internal/token"
)

type spyNotifier struct {
	mu            sync.Mutex
	confirmations []int64
	reminders     []core.Window
}

func (n *spyNotifier) Confirmation(_ context.Context, a *core.Appointment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, a.ID)
}

func (n *spyNotifier) Reminder(_ context.Context, _ *core.Appointment, w core.Window) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, w)
}

func newService(t *testing.T) (*core.Service, *memstore.Store, *spyNotifier) {
	t.Helper()
	store := memstore.New()
	spy := &spyNotifier{}
	svc := core.NewService(store, token.NewService("test-secret"), spy, zap.NewNop())
	return svc, store, spy
}

func validRequest() core.CreateRequest {
	return core.CreateRequest{
		Name:            "Jane Doe",
		Email:           "jane@x.com",
		AppointmentDate: "2030-06-10",
		AppointmentTime: "14:00",
		EmailReminder:   true,
	}
}

func TestCreate_Succeeds(t *testing.T) {
	svc, _, spy := newService(t)

	a, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	require.Equal(t, core.StatusScheduled, a.Status)
	require.Equal(t, "APT-1", a.ConfirmationID())
	require.NotEmpty(t, a.CancelToken)
	require.NotEmpty(t, a.RescheduleToken)
	require.NotEqual(t, a.CancelToken, a.RescheduleToken)
	require.Equal(t, "en", a.Language)
	require.Equal(t, time.Date(2030, 6, 10, 14, 0, 0, 0, time.UTC), a.AppointmentDate)

	require.Len(t, spy.confirmations, 1)
	require.Equal(t, a.ID, spy.confirmations[0])
}

func TestCreate_RequiresContactChannel(t *testing.T) {
	svc, _, spy := newService(t)

	req := validRequest()
	req.Email = ""
	req.Phone = ""

	_, err := svc.Create(context.Background(), req)
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "email")
	require.Empty(t, spy.confirmations)
}

func TestCreate_CollectsFieldErrors(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Create(context.Background(), core.CreateRequest{})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"name", "appointmentDate", "appointmentTime", "email"} {
		require.Contains(t, verr.Fields, field)
	}
}

func TestCreate_RejectsUnknownSlot(t *testing.T) {
	svc, _, _ := newService(t)

	req := validRequest()
	req.AppointmentTime = "13:37"

	_, err := svc.Create(context.Background(), req)
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "appointmentTime")
}

func TestCreate_RejectsPastDate(t *testing.T) {
	svc, _, _ := newService(t)

	req := validRequest()
	req.AppointmentDate = "2020-01-01"

	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, core.ErrInvalidDateTime)
}

func TestCancel_TerminalAndIdempotent(t *testing.T) {
	svc, _, _ := newService(t)

	a, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	cancelled, err := svc.CancelByToken(context.Background(), a.CancelToken)
	require.NoError(t, err)
	require.Equal(t, core.StatusCancelled, cancelled.Status)

	_, err = svc.CancelByToken(context.Background(), a.CancelToken)
	require.ErrorIs(t, err, core.ErrAlreadyCancelled)
}

func TestCancel_RejectsWrongPurposeToken(t *testing.T) {
	svc, _, _ := newService(t)

	a, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = svc.CancelByToken(context.Background(), a.RescheduleToken)
	require.ErrorIs(t, err, token.ErrWrongPurpose)

	// appointment must be untouched
	view, err := svc.RescheduleView(context.Background(), a.RescheduleToken)
	require.NoError(t, err)
	require.Equal(t, core.StatusScheduled, view.Status)
}

func TestCancel_UnknownToken(t *testing.T) {
	svc, _, _ := newService(t)

	stray, err := token.NewService("test-secret").Issue(token.PurposeCancel)
	require.NoError(t, err)

	_, err = svc.CancelByToken(context.Background(), stray)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestReschedule_MovesDateOnly(t *testing.T) {
	svc, store, _ := newService(t)

	a, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	// pretend the 24h reminder already fired for the old slot
	require.NoError(t, store.MarkReminderSent(context.Background(), a.ID, core.Window24h, time.Now()))

	updated, err := svc.RescheduleByToken(context.Background(), a.RescheduleToken, "2030-06-12", "09:00")
	require.NoError(t, err)
	require.Equal(t, core.StatusScheduled, updated.Status)
	require.Equal(t, "09:00", updated.AppointmentTime)
	require.Equal(t, time.Date(2030, 6, 12, 9, 0, 0, 0, time.UTC), updated.AppointmentDate)
	require.Nil(t, updated.Reminder24hSentAt)
	require.Nil(t, updated.Reminder1hSentAt)
	require.Equal(t, a.CancelToken, updated.CancelToken)
}

func TestReschedule_CancelledIsRejected(t *testing.T) {
	svc, _, _ := newService(t)

	a, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = svc.CancelByToken(context.Background(), a.CancelToken)
	require.NoError(t, err)

	_, err = svc.RescheduleView(context.Background(), a.RescheduleToken)
	require.ErrorIs(t, err, core.ErrCancelled)

	_, err = svc.RescheduleByToken(context.Background(), a.RescheduleToken, "2030-06-12", "09:00")
	require.ErrorIs(t, err, core.ErrCancelled)
}

func TestRescheduleView_IsStable(t *testing.T) {
	svc, _, _ := newService(t)

	a, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	first, err := svc.RescheduleView(context.Background(), a.RescheduleToken)
	require.NoError(t, err)
	second, err := svc.RescheduleView(context.Background(), a.RescheduleToken)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
