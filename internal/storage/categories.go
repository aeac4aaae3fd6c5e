package storage

import (
	"context"
	"database/sql"

	"saku/internal/models"
)

const categoryColumns = "id, name, direction, is_default, created_at"

// ListCategories returns the categories of one direction ordered by name.
func (db *DB) ListCategories(ctx context.Context, direction models.Direction) ([]models.Category, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE direction = ? ORDER BY name",
		direction,
	)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

// AllCategories returns every category, income first, each group ordered by name.
func (db *DB) AllCategories(ctx context.Context) ([]models.Category, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories ORDER BY direction DESC, name",
	)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

// GetCategory retrieves a category by ID.
func (db *DB) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var c models.Category
	err = db.conn.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &c.Direction, &c.IsDefault, &c.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetCategoryByName finds a category by name, ignoring case.
func (db *DB) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var c models.Category
	err = db.conn.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE name = ? COLLATE NOCASE ORDER BY id LIMIT 1", name,
	).Scan(&c.ID, &c.Name, &c.Direction, &c.IsDefault, &c.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanCategories(rows *sql.Rows) ([]models.Category, error) {
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Direction, &c.IsDefault, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
