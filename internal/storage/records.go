package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"saku/internal/models"
)

// InsertRecord stores r and returns it with its ID and creation time set.
func (db *DB) InsertRecord(ctx context.Context, r models.Record) (*models.Record, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if err := models.ValidateAmount(r.Amount); err != nil {
		return nil, err
	}

	r.CreatedAt = db.stamp()
	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO records (user_id, category_id, amount, direction, note, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.CategoryID, models.MinorUnits(r.Amount), r.Direction, nullString(r.Note), r.Date, r.CreatedAt,
	)
	if err != nil {
		switch constraintOf(err) {
		case constraintForeignKey:
			return nil, fmt.Errorf("insert record: user or category: %w", models.ErrNotFound)
		case constraintTrigger:
			return nil, models.Invalid("direction", "does not match the category")
		case constraintCheck:
			return nil, models.Invalid("record", err.Error())
		}
		return nil, fmt.Errorf("insert record: %w", err)
	}

	if r.ID, err = result.LastInsertId(); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRecord removes one of the user's records. It returns ErrNotFound when
// no such record belongs to the user.
func (db *DB) DeleteRecord(ctx context.Context, userID, id int64) error {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		"DELETE FROM records WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Balance returns income minus expense over all of the user's records.
func (db *DB) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer cancel()

	var balance int64
	err = db.conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'income' THEN amount ELSE -amount END), 0)
		FROM records WHERE user_id = ?`, userID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance: %w", err)
	}
	return models.AmountFromMinor(balance), nil
}

// MonthTotals returns the income and expense sums of the user's records dated
// in the given calendar month.
func (db *DB) MonthTotals(ctx context.Context, userID int64, year int, month time.Month) (income, expense decimal.Decimal, err error) {
	from, to := models.MonthRange(year, month)
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	defer cancel()

	var in, out int64
	err = db.conn.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN direction = 'income' THEN amount END), 0),
			COALESCE(SUM(CASE WHEN direction = 'expense' THEN amount END), 0)
		FROM records
		WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, from, to,
	).Scan(&in, &out)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("month totals: %w", err)
	}
	return models.AmountFromMinor(in), models.AmountFromMinor(out), nil
}

// RecentRecords returns the user's most recently created records with their
// category names.
func (db *DB) RecentRecords(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT r.id, r.user_id, r.category_id, r.amount, r.direction, r.note, r.date, r.created_at, c.name
		FROM records r
		JOIN categories c ON c.id = r.category_id
		WHERE r.user_id = ?
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

// RecordsBetween returns the user's records dated in [from, to), newest date first.
func (db *DB) RecordsBetween(ctx context.Context, userID int64, from, to models.Date) ([]models.Transaction, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT r.id, r.user_id, r.category_id, r.amount, r.direction, r.note, r.date, r.created_at, c.name
		FROM records r
		JOIN categories c ON c.id = r.category_id
		WHERE r.user_id = ? AND r.date >= ? AND r.date < ?
		ORDER BY r.date DESC, r.created_at DESC, r.id DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var (
			t      models.Transaction
			amount int64
			note   sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.CategoryID, &amount, &t.Direction,
			&note, &t.Date, &t.CreatedAt, &t.Category); err != nil {
			return nil, err
		}
		t.Amount = models.AmountFromMinor(amount)
		t.Note = stringPtr(note)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
