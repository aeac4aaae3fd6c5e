package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	applog "saku/internal/log"
	"saku/internal/models"
)

// Store is the part of the persistent store reminders need.
type Store interface {
	InsertReminder(ctx context.Context, userID int64, billName string, due models.Date) (*models.Reminder, error)
	SetReminderHandle(ctx context.Context, id int64, handle *string) error
	DeactivateReminder(ctx context.Context, userID, id int64) (*models.Reminder, error)
	ActiveReminders(ctx context.Context, userID int64) ([]models.Reminder, error)
	RemindersDueBetween(ctx context.Context, userID int64, from, to models.Date) ([]models.Reminder, error)
}

// Service stores bill reminders and keeps a scheduler in step with them.
type Service struct {
	store     Store
	scheduler Scheduler
	logger    *applog.Logger
}

func NewService(store Store, scheduler Scheduler, logger *applog.Logger) *Service {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Service{
		store:     store,
		scheduler: scheduler,
		logger:    logger.WithComponent(applog.ComponentReminders),
	}
}

// Create stores an active reminder and schedules its notification. The
// reminder is kept even if scheduling fails; it then has no handle.
func (s *Service) Create(ctx context.Context, userID int64, billName string, due models.Date) (models.Reminder, error) {
	billName = strings.TrimSpace(billName)
	if billName == "" {
		return models.Reminder{}, models.Invalid("bill_name", "must not be empty")
	}
	if due.IsZero() {
		return models.Reminder{}, models.Invalid("due_date", "is required")
	}

	r, err := s.store.InsertReminder(ctx, userID, billName, due)
	if err != nil {
		return models.Reminder{}, fmt.Errorf("create reminder: %w", err)
	}

	s.arm(ctx, r)
	return *r, nil
}

// arm schedules r and records the handle on success.
func (s *Service) arm(ctx context.Context, r *models.Reminder) {
	if s.scheduler == nil {
		return
	}
	handle, err := s.scheduler.Schedule(ctx, r.BillName, r.DueDate)
	if err != nil {
		s.logger.WarnContext(ctx, "reminder not scheduled",
			applog.FieldOperation, applog.OpSchedule,
			applog.FieldReminderID, r.ID,
			applog.FieldDate, r.DueDate.String(),
			applog.FieldError, err)
		return
	}
	if err := s.store.SetReminderHandle(ctx, r.ID, &handle); err != nil {
		s.logger.WarnContext(ctx, "reminder handle not saved",
			applog.FieldOperation, applog.OpSchedule,
			applog.FieldReminderID, r.ID,
			applog.FieldError, err)
		return
	}
	r.ScheduleHandle = &handle

	s.logger.InfoContext(ctx, "reminder scheduled",
		applog.FieldOperation, applog.OpSchedule,
		applog.FieldUserID, r.UserID,
		applog.FieldReminderID, r.ID,
		applog.FieldHandle, handle)
}

// Deactivate turns off one of the user's reminders and cancels its
// notification. Deactivating an inactive reminder does nothing.
func (s *Service) Deactivate(ctx context.Context, userID, id int64) error {
	before, err := s.store.DeactivateReminder(ctx, userID, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return fmt.Errorf("deactivate reminder: %w", err)
	}
	if !before.Active || before.ScheduleHandle == nil || s.scheduler == nil {
		return nil
	}

	if err := s.scheduler.Cancel(ctx, *before.ScheduleHandle); err != nil {
		s.logger.WarnContext(ctx, "reminder not cancelled",
			applog.FieldOperation, applog.OpCancel,
			applog.FieldReminderID, id,
			applog.FieldError, err)
		return nil
	}
	if err := s.store.SetReminderHandle(ctx, id, nil); err != nil {
		return fmt.Errorf("clear reminder handle: %w", err)
	}
	s.logger.InfoContext(ctx, "reminder cancelled",
		applog.FieldOperation, applog.OpCancel,
		applog.FieldUserID, userID,
		applog.FieldReminderID, id)
	return nil
}

// Active lists the user's active reminders, soonest first.
func (s *Service) Active(ctx context.Context, userID int64) ([]models.Reminder, error) {
	rs, err := s.store.ActiveReminders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return rs, nil
}

// DueBetween lists the user's active reminders due in [from, to).
func (s *Service) DueBetween(ctx context.Context, userID int64, from, to models.Date) ([]models.Reminder, error) {
	rs, err := s.store.RemindersDueBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return rs, nil
}

// Reschedule re-arms every active reminder of the user and returns how many
// were scheduled. Handles left by an earlier process are cancelled first.
func (s *Service) Reschedule(ctx context.Context, userID int64) (int, error) {
	if s.scheduler == nil {
		return 0, nil
	}
	rs, err := s.Active(ctx, userID)
	if err != nil {
		return 0, err
	}

	armed := 0
	for i := range rs {
		r := &rs[i]
		stale := r.ScheduleHandle != nil
		if stale {
			if err := s.scheduler.Cancel(ctx, *r.ScheduleHandle); err != nil {
				s.logger.WarnContext(ctx, "stale reminder not cancelled",
					applog.FieldReminderID, r.ID,
					applog.FieldError, err)
			}
			r.ScheduleHandle = nil
		}
		s.arm(ctx, r)
		switch {
		case r.ScheduleHandle != nil:
			armed++
		case stale:
			if err := s.store.SetReminderHandle(ctx, r.ID, nil); err != nil {
				return armed, fmt.Errorf("clear reminder handle: %w", err)
			}
		}
	}
	return armed, nil
}
