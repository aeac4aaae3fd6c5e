package amqp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	applog "saku/internal/log"
	"saku/internal/models"
	"saku/internal/reminders"
)

// Publisher sends a message body to the broker.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// Scheduler hands reminders to an external notification relay over AMQP.
type Scheduler struct {
	pub      Publisher
	lead     time.Duration
	location *time.Location
	now      func() time.Time
	logger   *applog.Logger
}

// NewScheduler creates a broker-backed scheduler. lead is how long before
// the due date the relay should notify.
func NewScheduler(pub Publisher, lead time.Duration, logger *applog.Logger) *Scheduler {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Scheduler{
		pub:      pub,
		lead:     lead,
		location: time.Local,
		now:      time.Now,
		logger:   logger.WithComponent(applog.ComponentAMQP),
	}
}

func (s *Scheduler) Schedule(ctx context.Context, billName string, due models.Date) (string, error) {
	now := s.now().In(s.location)
	if due.Before(models.NewDate(now.Year(), now.Month(), now.Day())) {
		return "", reminders.ErrPastDue
	}

	handle := uuid.NewString()
	notifyAt := time.Date(due.Year(), due.Month(), due.Day(), 9, 0, 0, 0, s.location).Add(-s.lead)

	msg := &ReminderMessage{
		Type:      TypeReminderScheduled,
		Handle:    handle,
		BillName:  billName,
		DueDate:   due.String(),
		NotifyAt:  notifyAt.UTC(),
		Timestamp: s.now().UTC(),
	}
	if err := s.send(ctx, msg); err != nil {
		return "", err
	}
	return handle, nil
}

func (s *Scheduler) Cancel(ctx context.Context, handle string) error {
	return s.send(ctx, &ReminderMessage{
		Type:      TypeReminderCancelled,
		Handle:    handle,
		Timestamp: s.now().UTC(),
	})
}

func (s *Scheduler) send(ctx context.Context, msg *ReminderMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := s.pub.Publish(ctx, body); err != nil {
		s.logger.ErrorContext(ctx, "reminder message not published",
			"type", msg.Type,
			applog.FieldHandle, msg.Handle,
			applog.FieldError, err)
		return err
	}
	s.logger.InfoContext(ctx, "published reminder message",
		"type", msg.Type,
		applog.FieldHandle, msg.Handle)
	return nil
}
