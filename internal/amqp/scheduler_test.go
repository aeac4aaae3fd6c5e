package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	"saku/internal/models"
	"saku/internal/reminders"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ reminders.Scheduler = (*Scheduler)(nil)

type fakePublisher struct {
	bodies [][]byte
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.bodies = append(f.bodies, body)
	return nil
}

func newTestScheduler(pub Publisher) *Scheduler {
	s := NewScheduler(pub, 24*time.Hour, nil)
	s.location = time.UTC
	s.now = func() time.Time { return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestSchedulePublishesMessage(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestScheduler(pub)

	handle, err := s.Schedule(context.Background(), "Internet", models.NewDate(2024, time.March, 20))
	require.NoError(t, err)
	require.Len(t, pub.bodies, 1)

	msg, err := ReminderMessageFromJSON(pub.bodies[0])
	require.NoError(t, err)
	assert.Equal(t, TypeReminderScheduled, msg.Type)
	assert.Equal(t, handle, msg.Handle)
	assert.Equal(t, "Internet", msg.BillName)
	assert.Equal(t, "2024-03-20", msg.DueDate)
	assert.Equal(t, time.Date(2024, time.March, 19, 9, 0, 0, 0, time.UTC), msg.NotifyAt)
}

func TestScheduleRejectsPastDue(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestScheduler(pub)

	_, err := s.Schedule(context.Background(), "Internet", models.NewDate(2024, time.February, 29))
	assert.ErrorIs(t, err, reminders.ErrPastDue)
	assert.Empty(t, pub.bodies)

	_, err = s.Schedule(context.Background(), "Internet", models.NewDate(2024, time.March, 1))
	assert.NoError(t, err, "a bill due today is still sent")
}

func TestCancelPublishesMessage(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestScheduler(pub)

	require.NoError(t, s.Cancel(context.Background(), "abc"))
	require.Len(t, pub.bodies, 1)

	msg, err := ReminderMessageFromJSON(pub.bodies[0])
	require.NoError(t, err)
	assert.Equal(t, TypeReminderCancelled, msg.Type)
	assert.Equal(t, "abc", msg.Handle)
	assert.Empty(t, msg.BillName)
	assert.True(t, msg.NotifyAt.IsZero())
	assert.NotContains(t, string(pub.bodies[0]), "notify_at")
}

func TestScheduleFailureReturnsNoHandle(t *testing.T) {
	s := newTestScheduler(&fakePublisher{err: errors.New("connection refused")})

	handle, err := s.Schedule(context.Background(), "Kos", models.NewDate(2024, time.March, 20))
	assert.Error(t, err)
	assert.Empty(t, handle)
}

func TestMessageFromInvalidJSON(t *testing.T) {
	_, err := ReminderMessageFromJSON([]byte("{"))
	assert.Error(t, err)
}
