package storage

import (
	"context"
	"database/sql"
	"fmt"

	"saku/internal/models"
)

const reminderColumns = "id, user_id, bill_name, due_date, is_active, schedule_handle, created_at"

// InsertReminder stores an active reminder for the user.
func (db *DB) InsertReminder(ctx context.Context, userID int64, billName string, due models.Date) (*models.Reminder, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	createdAt := db.stamp()
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO reminders (user_id, bill_name, due_date, is_active, created_at) VALUES (?, ?, ?, 1, ?)",
		userID, billName, due, createdAt,
	)
	if err != nil {
		if constraintOf(err) == constraintForeignKey {
			return nil, fmt.Errorf("insert reminder: user: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("insert reminder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Reminder{
		ID:        id,
		UserID:    userID,
		BillName:  billName,
		DueDate:   due,
		Active:    true,
		CreatedAt: createdAt,
	}, nil
}

// SetReminderHandle records the scheduler handle of a reminder. A nil handle clears it.
func (db *DB) SetReminderHandle(ctx context.Context, id int64, handle *string) error {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		"UPDATE reminders SET schedule_handle = ? WHERE id = ?", nullString(handle), id)
	if err != nil {
		return fmt.Errorf("update reminder handle: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeactivateReminder marks one of the user's reminders inactive and returns
// it as it was before the change. Deactivating an inactive reminder is a no-op.
func (db *DB) DeactivateReminder(ctx context.Context, userID, id int64) (*models.Reminder, error) {
	var before *models.Reminder
	err := db.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"SELECT "+reminderColumns+" FROM reminders WHERE id = ? AND user_id = ?", id, userID)
		r, err := scanReminder(row)
		if err != nil {
			return err
		}
		before = r
		if !r.Active {
			return nil
		}
		_, err = tx.ExecContext(ctx, "UPDATE reminders SET is_active = 0 WHERE id = ?", id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return before, nil
}

// GetReminder retrieves one of the user's reminders.
func (db *DB) GetReminder(ctx context.Context, userID, id int64) (*models.Reminder, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		"SELECT "+reminderColumns+" FROM reminders WHERE id = ? AND user_id = ?", id, userID)
	return scanReminder(row)
}

// ActiveReminders returns the user's active reminders, soonest due first.
func (db *DB) ActiveReminders(ctx context.Context, userID int64) ([]models.Reminder, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+reminderColumns+" FROM reminders WHERE user_id = ? AND is_active = 1 ORDER BY due_date, id",
		userID,
	)
	if err != nil {
		return nil, err
	}
	return scanReminders(rows)
}

// RemindersDueBetween returns the user's active reminders due in [from, to).
func (db *DB) RemindersDueBetween(ctx context.Context, userID int64, from, to models.Date) ([]models.Reminder, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+reminderColumns+` FROM reminders
		WHERE user_id = ? AND is_active = 1 AND due_date >= ? AND due_date < ?
		ORDER BY due_date, id`,
		userID, from, to,
	)
	if err != nil {
		return nil, err
	}
	return scanReminders(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*models.Reminder, error) {
	var (
		r      models.Reminder
		handle sql.NullString
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.BillName, &r.DueDate, &r.Active, &handle, &r.CreatedAt); err != nil {
		if isNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	r.ScheduleHandle = stringPtr(handle)
	return &r, nil
}

func scanReminders(rows *sql.Rows) ([]models.Reminder, error) {
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, *r)
	}
	return reminders, rows.Err()
}
