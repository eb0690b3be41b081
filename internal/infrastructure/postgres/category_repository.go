package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"saldo/internal/domain/category"
)

// CategoryRepository implements the category.Repository interface for PostgreSQL
type CategoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a new PostgreSQL category repository
func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	query := `
		INSERT INTO categories (id, name, kind, color, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Kind, nullString(c.Color), c.CreatedAt)
	if isUniqueViolation(err) {
		return category.ErrNameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*category.Category, error) {
	query := `SELECT id, name, kind, color, created_at FROM categories WHERE id = $1`

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, category.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]*category.Category, error) {
	query := `SELECT id, name, kind, color, created_at FROM categories ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*category.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *category.Category) error {
	query := `UPDATE categories SET name = $1, kind = $2, color = $3 WHERE id = $4`

	res, err := r.db.ExecContext(ctx, query, c.Name, c.Kind, nullString(c.Color), c.ID)
	if isUniqueViolation(err) {
		return category.ErrNameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return expectOneRow(res, category.ErrCategoryNotFound)
}

// Delete removes the row only. transactions.category_ids carries no foreign
// key, so stored transactions keep the id.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return expectOneRow(res, category.ErrCategoryNotFound)
}

// Missing returns the first id, in the order given, with no matching row.
func (r *CategoryRepository) Missing(ctx context.Context, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}

	query := `
		SELECT want.id
		FROM unnest($1::text[]) WITH ORDINALITY AS want(id, pos)
		LEFT JOIN categories c ON c.id = want.id
		WHERE c.id IS NULL
		ORDER BY want.pos
		LIMIT 1
	`
	var missing string
	err := r.db.QueryRowContext(ctx, query, pq.Array(ids)).Scan(&missing)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check categories: %w", err)
	}
	return missing, nil
}

func scanCategory(s scanner) (*category.Category, error) {
	var c category.Category
	var color sql.NullString
	if err := s.Scan(&c.ID, &c.Name, &c.Kind, &color, &c.CreatedAt); err != nil {
		return nil, err
	}
	if color.Valid {
		c.Color = color.String
	}
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
