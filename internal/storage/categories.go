package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finjoy/internal/core"
)

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	var typ string
	err := row.Scan(&c.ID, &c.Name, &typ, &c.Emoji, &c.DisplayOrder)
	if err != nil {
		return core.Category{}, err
	}
	c.Type = core.CategoryType(typ)
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, type, emoji, display_order) VALUES (?, ?, ?, ?)`,
		c.Name, string(c.Type), c.Emoji, c.DisplayOrder)
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("category insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (*core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, emoji, display_order FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (r *SQLiteRepository) FindCategoryByName(ctx context.Context, name string) (*core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, emoji, display_order FROM categories WHERE name = ? LIMIT 1`, name)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find category by name: %w", err)
	}
	return &c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	return r.listCategories(ctx,
		`SELECT id, name, type, emoji, display_order FROM categories ORDER BY display_order ASC`)
}

func (r *SQLiteRepository) ListCategoriesByType(ctx context.Context, t core.CategoryType) ([]core.Category, error) {
	return r.listCategories(ctx,
		`SELECT id, name, type, emoji, display_order FROM categories WHERE type = ? ORDER BY display_order ASC`,
		string(t))
}

func (r *SQLiteRepository) listCategories(ctx context.Context, query string, args ...any) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, type = ?, emoji = ?, display_order = ? WHERE id = ?`,
		c.Name, string(c.Type), c.Emoji, c.DisplayOrder, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCategory removes a category. Deletion is restricted while any
// transaction or recurring definition still references it.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if isForeignKeyViolation(err) {
		return ErrCategoryInUse
	}
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) MaxDisplayOrder(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT MAX(display_order) FROM categories`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max display order: %w", err)
	}
	return max.Int64, nil
}

func (r *SQLiteRepository) UpdateCategoryOrder(ctx context.Context, id, order int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE categories SET display_order = ? WHERE id = ?`, order, id)
	if err != nil {
		return fmt.Errorf("update category order: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}
