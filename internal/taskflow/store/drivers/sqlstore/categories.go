package sqlstore

import (
	"context"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

type categoriesRepo struct{ q queries }

const categoryColumns = `id, user_id, name, color, created_at, updated_at`

func scanCategory(row rowScanner, extra ...any) (domain.Category, error) {
	var c domain.Category
	dest := append([]any{&c.ID, &c.UserID, &c.Name, &c.Color, &c.CreatedAt, &c.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Category{}, mapNotFound(err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func (r *categoriesRepo) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	rows, err := r.q.query(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *categoriesRepo) ListCategoryStats(ctx context.Context, userID string) ([]domain.CategoryStats, error) {
	rows, err := r.q.query(ctx, `
		SELECT c.id, c.user_id, c.name, c.color, c.created_at, c.updated_at,
		       COUNT(t.id),
		       COALESCE(SUM(CASE WHEN t.status = 'done' THEN 1 ELSE 0 END), 0)
		FROM categories c
		LEFT JOIN tasks t ON t.category_id = c.id AND t.deleted_at IS NULL
		WHERE c.user_id = ?
		GROUP BY c.id, c.user_id, c.name, c.color, c.created_at, c.updated_at
		ORDER BY c.name, c.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CategoryStats
	for rows.Next() {
		var s domain.CategoryStats
		c, err := scanCategory(rows, &s.TaskCount, &s.CompletedCount)
		if err != nil {
			return nil, err
		}
		s.Category = c
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *categoriesRepo) GetCategory(ctx context.Context, userID, id string) (domain.Category, error) {
	return scanCategory(r.q.queryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID))
}

func (r *categoriesRepo) CategoryNameExists(ctx context.Context, userID, name, excludeID string) (bool, error) {
	n, err := r.q.count(ctx,
		`SELECT COUNT(*) FROM categories WHERE user_id = ? AND name = ? AND id <> ?`,
		userID, name, excludeID)
	return n > 0, err
}

func (r *categoriesRepo) CreateCategory(ctx context.Context, c domain.Category) error {
	_, err := r.q.exec(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Color, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	return err
}

func (r *categoriesRepo) UpdateCategory(ctx context.Context, c domain.Category) error {
	return r.q.execOne(ctx,
		`UPDATE categories SET name = ?, color = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		c.Name, c.Color, c.UpdatedAt.UTC(), c.ID, c.UserID)
}

func (r *categoriesRepo) DeleteCategory(ctx context.Context, userID, id string) error {
	return r.q.execOne(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
}
