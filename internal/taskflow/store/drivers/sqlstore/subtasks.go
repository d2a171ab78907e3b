package sqlstore

import (
	"context"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

type subTasksRepo struct{ q queries }

const subTaskColumns = `s.id, s.task_id, s.title, s.is_completed, s.sort_order, s.created_at, s.updated_at`

func scanSubTask(row rowScanner) (domain.SubTask, error) {
	var s domain.SubTask
	if err := row.Scan(&s.ID, &s.TaskID, &s.Title, &s.IsCompleted, &s.SortOrder, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return domain.SubTask{}, mapNotFound(err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (r *subTasksRepo) ListSubTasks(ctx context.Context, taskID string) ([]domain.SubTask, error) {
	rows, err := r.q.query(ctx,
		`SELECT `+subTaskColumns+` FROM sub_tasks s WHERE s.task_id = ? ORDER BY s.sort_order, s.created_at, s.id`,
		taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SubTask
	for rows.Next() {
		s, err := scanSubTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *subTasksRepo) CreateSubTask(ctx context.Context, s domain.SubTask) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO sub_tasks (id, task_id, title, is_completed, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.TaskID, s.Title, s.IsCompleted, s.SortOrder, s.CreatedAt.UTC(), s.UpdatedAt.UTC())
	return err
}

func (r *subTasksRepo) GetSubTask(ctx context.Context, userID, id string) (domain.SubTask, error) {
	return scanSubTask(r.q.queryRow(ctx, `
		SELECT `+subTaskColumns+`
		FROM sub_tasks s
		JOIN tasks t ON t.id = s.task_id
		WHERE s.id = ? AND t.user_id = ? AND t.deleted_at IS NULL`,
		id, userID))
}

func (r *subTasksRepo) SetSubTaskCompleted(ctx context.Context, id string, completed bool, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE sub_tasks SET is_completed = ?, updated_at = ? WHERE id = ?`,
		completed, now.UTC(), id)
}

func (r *subTasksRepo) DeleteSubTask(ctx context.Context, id string) error {
	return r.q.execOne(ctx, `DELETE FROM sub_tasks WHERE id = ?`, id)
}

func (r *subTasksRepo) NextSubTaskSortOrder(ctx context.Context, taskID string) (int, error) {
	return r.q.count(ctx,
		`SELECT COALESCE(MAX(sort_order), -1) + 1 FROM sub_tasks WHERE task_id = ?`, taskID)
}
