package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"saku/internal/models"
)

// SeedCategory is a category created when the store is first initialized.
type SeedCategory struct {
	Name      string
	Direction models.Direction
}

// DefaultCategories are seeded on every Initialize; existing names are kept.
var DefaultCategories = []SeedCategory{
	{Name: "Gaji", Direction: models.Income},
	{Name: "Uang Saku", Direction: models.Income},
	{Name: "Kos", Direction: models.Expense},
	{Name: "Makan", Direction: models.Expense},
	{Name: "Transportasi", Direction: models.Expense},
	{Name: "Internet", Direction: models.Expense},
	{Name: "Hiburan", Direction: models.Expense},
	{Name: "Kesehatan", Direction: models.Expense},
}

func seedCategories(ctx context.Context, conn *sql.DB, now time.Time, defaults []SeedCategory) error {
	return withTx(ctx, conn, func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO categories (name, direction, is_default, created_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT(name) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare seed: %w", err)
		}
		defer stmt.Close()

		for _, c := range defaults {
			if !c.Direction.Valid() {
				return fmt.Errorf("seed category %q: invalid direction %q", c.Name, c.Direction)
			}
			if _, err := stmt.ExecContext(ctx, c.Name, c.Direction, now); err != nil {
				return fmt.Errorf("seed category %q: %w", c.Name, err)
			}
		}
		return nil
	})
}
