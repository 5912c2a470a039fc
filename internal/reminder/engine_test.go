package reminder_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Issouf-Kindo/scheduler/internal/core"
	"github.com/Issouf-Kindo/scheduler/internal/memstore"
	"github.com/Issouf-Kindo/scheduler/internal/notify"
	"github.com/Issouf-Kindo/scheduler/internal/reminder"
)

var testNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

type firedReminder struct {
	ID     int64
	Window core.Window
}

type spyNotifier struct {
	mu    sync.Mutex
	fired []firedReminder
}

func (n *spyNotifier) Confirmation(context.Context, *core.Appointment) {}

func (n *spyNotifier) Reminder(_ context.Context, a *core.Appointment, w core.Window) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fired = append(n.fired, firedReminder{ID: a.ID, Window: w})
}

func addAppointment(t *testing.T, store core.Store, start time.Time, mutate func(*core.Appointment)) *core.Appointment {
	t.Helper()
	a := &core.Appointment{
		Name:            "Jane Doe",
		Email:           "jane@x.com",
		AppointmentDate: start,
		AppointmentTime: start.Format("15:04"),
		EmailReminder:   true,
		CancelToken:     "cancel-" + start.String(),
		RescheduleToken: "resched-" + start.String(),
		Status:          core.StatusScheduled,
		Language:        "en",
	}
	if mutate != nil {
		mutate(a)
	}
	stored, err := store.CreateAppointment(context.Background(), a)
	require.NoError(t, err)
	return stored
}

func newEngine(store core.Store, n core.Notifier) *reminder.Engine {
	return reminder.New(store, n, reminder.Options{Now: func() time.Time { return testNow }}, zap.NewNop())
}

func Test24hWindow_FiresExactlyOnce(t *testing.T) {
	store := memstore.New()
	spy := &spyNotifier{}
	e := newEngine(store, spy)

	inBand := addAppointment(t, store, testNow.Add(23*time.Hour+30*time.Minute), nil)
	addAppointment(t, store, testNow.Add(25*time.Hour), nil) // outside the band

	for i := 0; i < 3; i++ {
		require.NoError(t, e.RunCycle(context.Background()))
	}

	require.Equal(t, []firedReminder{{ID: inBand.ID, Window: core.Window24h}}, spy.fired)
}

func Test1hWindow_FiresExactlyOnce(t *testing.T) {
	store := memstore.New()
	spy := &spyNotifier{}
	e := newEngine(store, spy)

	a := addAppointment(t, store, testNow.Add(30*time.Minute), nil)

	require.NoError(t, e.RunCycle(context.Background()))
	require.NoError(t, e.RunCycle(context.Background()))

	// booked inside the final hour: only the 1h reminder, never the 24h one
	require.Equal(t, []firedReminder{{ID: a.ID, Window: core.Window1h}}, spy.fired)
}

func TestPastAppointmentsAreIgnored(t *testing.T) {
	store := memstore.New()
	spy := &spyNotifier{}
	e := newEngine(store, spy)

	addAppointment(t, store, testNow.Add(-2*time.Hour), nil)

	require.NoError(t, e.RunCycle(context.Background()))
	require.Empty(t, spy.fired)
}

func TestCancelledAppointmentsAreNotScanned(t *testing.T) {
	store := memstore.New()
	spy := &spyNotifier{}
	e := newEngine(store, spy)

	a := addAppointment(t, store, testNow.Add(30*time.Minute), nil)
	ok, err := store.CancelAppointment(context.Background(), a.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, e.RunCycle(context.Background()))
	require.Empty(t, spy.fired)
}

func Test1hReminder_SMSPhrasing(t *testing.T) {
	store := memstore.New()
	sms := &fakeSMS{}
	dispatcher := notify.NewDispatcher(&fakeEmail{}, sms, notify.Options{BaseURL: "http://sched.test"}, zap.NewNop())
	e := reminder.New(store, dispatcher, reminder.Options{Now: func() time.Time { return testNow }}, zap.NewNop())

	a := addAppointment(t, store, testNow.Add(30*time.Minute), func(a *core.Appointment) {
		a.Email = ""
		a.EmailReminder = false
		a.Phone = "+15145550199"
		a.SMSReminder = true
	})

	require.NoError(t, e.RunCycle(context.Background()))
	require.NoError(t, e.RunCycle(context.Background()))

	require.Len(t, sms.sent, 1)
	require.Equal(t, "+15145550199", sms.sent[0].to)
	require.Contains(t, sms.sent[0].body, "in 1 hour")
	require.Contains(t, sms.sent[0].body, a.ConfirmationID())
}

func TestFetchFailureAbortsCycle(t *testing.T) {
	spy := &spyNotifier{}
	e := newEngine(&failingStore{}, spy)

	err := e.RunCycle(context.Background())
	require.Error(t, err)
	require.Empty(t, spy.fired)
}

func TestMarkerFailureDoesNotStopBatch(t *testing.T) {
	inner := memstore.New()
	spy := &spyNotifier{}

	first := addAppointment(t, inner, testNow.Add(30*time.Minute), nil)
	second := addAppointment(t, inner, testNow.Add(45*time.Minute), nil)

	store := &failMarkStore{Store: inner, failID: first.ID}
	e := newEngine(store, spy)

	require.NoError(t, e.RunCycle(context.Background()))

	ids := map[int64]bool{}
	for _, f := range spy.fired {
		ids[f.ID] = true
	}
	require.True(t, ids[first.ID])
	require.True(t, ids[second.ID])
}

func TestRun_SkipsOverlappingScan(t *testing.T) {
	store := &blockingStore{
		Store:   memstore.New(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	e := reminder.New(store, &spyNotifier{}, reminder.Options{
		Interval: time.Hour,
		Now:      func() time.Time { return testNow },
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 2)
	go func() { done <- e.Run(ctx) }()

	// first scan is inside ListScheduled and holds the guard
	<-store.entered

	// a second runner's immediate tick must be skipped, not overlapped
	go func() { done <- e.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, store.calls.Load())

	close(store.release)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestRun_RetriesFailedScanBeforeNextInterval(t *testing.T) {
	store := &countingFailStore{}
	e := reminder.New(store, &spyNotifier{}, reminder.Options{
		Interval:   time.Hour,
		BackoffMin: time.Millisecond,
		BackoffMax: 5 * time.Millisecond,
		Now:        func() time.Time { return testNow },
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	// without the backoff the second attempt would be an hour away
	require.Eventually(t, func() bool { return store.calls.Load() >= 3 },
		2*time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

// --- test doubles ---

type smsCall struct{ to, body string }

type fakeSMS struct {
	mu   sync.Mutex
	sent []smsCall
}

func (f *fakeSMS) SendSMS(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, smsCall{to: to, body: body})
	return nil
}

type fakeEmail struct {
	mu   sync.Mutex
	sent []notify.EmailMessage
}

func (f *fakeEmail) Send(_ context.Context, msg notify.EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

type failingStore struct{ memstore.Store }

func (f *failingStore) ListScheduled(context.Context) ([]*core.Appointment, error) {
	return nil, errors.New("store down")
}

type countingFailStore struct {
	memstore.Store
	calls atomic.Int32
}

func (f *countingFailStore) ListScheduled(context.Context) ([]*core.Appointment, error) {
	f.calls.Add(1)
	return nil, errors.New("store down")
}

// blockingStore parks every ListScheduled call until release is closed, so a
// test can hold a scan open while another tick arrives.
type blockingStore struct {
	*memstore.Store
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) ListScheduled(ctx context.Context) ([]*core.Appointment, error) {
	b.calls.Add(1)
	select {
	case b.entered <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil, nil
}

type failMarkStore struct {
	*memstore.Store
	failID int64
}

func (f *failMarkStore) MarkReminderSent(ctx context.Context, id int64, w core.Window, sentAt time.Time) error {
	if id == f.failID {
		return errors.New("marker write failed")
	}
	return f.Store.MarkReminderSent(ctx, id, w, sentAt)
}
