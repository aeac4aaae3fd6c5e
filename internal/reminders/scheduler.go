package reminders

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	applog "saku/internal/log"
	"saku/internal/models"
)

// DefaultLeadTime is how long before the due date a reminder fires.
const DefaultLeadTime = 24 * time.Hour

// notifyHour is the local hour of the due date the lead time counts back from.
const notifyHour = 9

// ErrPastDue is returned when asked to schedule a bill that is already due.
var ErrPastDue = errors.New("due date has passed")

// Scheduler arranges a notification before a bill is due.
type Scheduler interface {
	Schedule(ctx context.Context, billName string, due models.Date) (string, error)
	Cancel(ctx context.Context, handle string) error
}

// Notification is delivered when a local reminder fires.
type Notification struct {
	Handle   string
	BillName string
	Due      models.Date
}

// Notifier receives fired notifications.
type Notifier func(ctx context.Context, n Notification)

// LogNotifier writes each notification as a log line.
func LogNotifier(logger *applog.Logger) Notifier {
	return func(ctx context.Context, n Notification) {
		logger.InfoContext(ctx, "bill due",
			"bill", n.BillName,
			applog.FieldDate, n.Due.String(),
			applog.FieldHandle, n.Handle)
	}
}

// LocalScheduler fires reminders from in-process timers. Timers do not
// survive the process; Service.Reschedule re-arms them on start.
type LocalScheduler struct {
	lead     time.Duration
	notify   Notifier
	now      func() time.Time
	location *time.Location

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// LocalOption configures a LocalScheduler.
type LocalOption func(*LocalScheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) LocalOption {
	return func(s *LocalScheduler) { s.now = now }
}

// WithLocation sets the time zone due dates are interpreted in.
func WithLocation(loc *time.Location) LocalOption {
	return func(s *LocalScheduler) { s.location = loc }
}

// NewLocalScheduler creates a scheduler that calls notify lead before each due date.
func NewLocalScheduler(lead time.Duration, notify Notifier, opts ...LocalOption) *LocalScheduler {
	if lead < 0 {
		lead = 0
	}
	s := &LocalScheduler{
		lead:     lead,
		notify:   notify,
		now:      time.Now,
		location: time.Local,
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FireTime returns when a reminder for due fires.
func (s *LocalScheduler) FireTime(due models.Date) time.Time {
	at := time.Date(due.Year(), due.Month(), due.Day(), notifyHour, 0, 0, 0, s.location)
	return at.Add(-s.lead)
}

func (s *LocalScheduler) Schedule(ctx context.Context, billName string, due models.Date) (string, error) {
	now := s.now().In(s.location)
	today := models.NewDate(now.Year(), now.Month(), now.Day())
	if due.Before(today) {
		return "", ErrPastDue
	}

	delay := s.FireTime(due).Sub(now)
	if delay < 0 {
		delay = 0
	}

	handle := uuid.NewString()
	n := Notification{Handle: handle, BillName: billName, Due: due}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[handle] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		_, live := s.timers[handle]
		delete(s.timers, handle)
		s.mu.Unlock()
		if live && s.notify != nil {
			s.notify(context.Background(), n)
		}
	})
	return handle, nil
}

// Cancel stops a pending reminder. Unknown handles are ignored.
func (s *LocalScheduler) Cancel(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[handle]; ok {
		t.Stop()
		delete(s.timers, handle)
	}
	return nil
}

// Pending returns the number of armed reminders.
func (s *LocalScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending reminder.
func (s *LocalScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for handle, t := range s.timers {
		t.Stop()
		delete(s.timers, handle)
	}
}
