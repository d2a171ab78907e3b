package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

type tasksRepo struct{ q queries }

const taskSelect = `
	SELECT t.id, t.user_id, t.category_id, t.title, t.description, t.status,
	       t.priority, t.due_date, t.completed_at, t.sort_order, t.deleted_at,
	       t.created_at, t.updated_at,
	       COALESCE(c.name, ''), COALESCE(c.color, '')
	FROM tasks t
	LEFT JOIN categories c ON c.id = t.category_id`

// boardOrder sorts tasks into kanban column order.
const boardOrder = `CASE t.status
		WHEN 'backlog' THEN 0
		WHEN 'todo' THEN 1
		WHEN 'in_progress' THEN 2
		WHEN 'review' THEN 3
		ELSE 4 END`

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t           domain.Task
		categoryID  sql.NullString
		status      string
		priority    string
		dueDate     sql.NullTime
		completedAt sql.NullTime
		deletedAt   sql.NullTime
	)

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&categoryID,
		&t.Title,
		&t.Description,
		&status,
		&priority,
		&dueDate,
		&completedAt,
		&t.SortOrder,
		&deletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CategoryName,
		&t.CategoryColor,
	)
	if err != nil {
		return domain.Task{}, mapNotFound(err)
	}

	t.CategoryID = mapNullStringPtr(categoryID)
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.TaskPriority(priority)
	if dueDate.Valid {
		d := domain.TruncateDay(dueDate.Time)
		t.DueDate = &d
	}
	t.CompletedAt = mapNullTimePtr(completedAt)
	t.DeletedAt = mapNullTimePtr(deletedAt)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func (r *tasksRepo) scanTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func dueDateValue(d *time.Time) sql.NullTime {
	if d == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: domain.TruncateDay(*d), Valid: true}
}

func (r *tasksRepo) CreateTask(ctx context.Context, t domain.Task) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO tasks (id, user_id, category_id, title, description, status, priority,
		                   due_date, completed_at, sort_order, deleted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.UserID,
		mapOptionalString(t.CategoryID),
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		dueDateValue(t.DueDate),
		mapOptionalTime(t.CompletedAt),
		t.SortOrder,
		mapOptionalTime(t.DeletedAt),
		t.CreatedAt.UTC(),
		t.UpdatedAt.UTC(),
	)
	return err
}

func (r *tasksRepo) GetTask(ctx context.Context, userID, id string) (domain.Task, error) {
	return scanTask(r.q.queryRow(ctx,
		taskSelect+` WHERE t.id = ? AND t.user_id = ? AND t.deleted_at IS NULL`, id, userID))
}

// taskWhere builds the predicate shared by the list and count queries.
func taskWhere(userID string, f domain.TaskFilter, today time.Time) (string, []any) {
	clauses := []string{"t.user_id = ?", "t.deleted_at IS NULL"}
	args := []any{userID}

	if f.Status != "" {
		clauses = append(clauses, "t.status = ?")
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		clauses = append(clauses, "t.priority = ?")
		args = append(args, string(f.Priority))
	}
	if f.CategoryID != "" {
		clauses = append(clauses, "t.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		clauses = append(clauses, `(LOWER(t.title) LIKE ? ESCAPE '\' OR LOWER(t.description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	day := domain.TruncateDay(today)
	switch f.Due {
	case "overdue":
		clauses = append(clauses, "t.due_date < ?", "t.status <> 'done'")
		args = append(args, day)
	case "today":
		clauses = append(clauses, "t.due_date >= ?", "t.due_date < ?")
		args = append(args, day, day.AddDate(0, 0, 1))
	case "week":
		clauses = append(clauses, "t.due_date >= ?", "t.due_date < ?")
		args = append(args, day, day.AddDate(0, 0, 7))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func taskOrder(f domain.TaskFilter) string {
	dir := "ASC"
	if f.Descending {
		dir = "DESC"
	}

	switch f.Sort {
	case "due_date":
		return " ORDER BY CASE WHEN t.due_date IS NULL THEN 1 ELSE 0 END, t.due_date " + dir + ", t.id " + dir
	case "priority":
		return " ORDER BY CASE t.priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END " + dir + ", t.id " + dir
	case "title":
		return " ORDER BY LOWER(t.title) " + dir + ", t.id " + dir
	case "updated_at":
		return " ORDER BY t.updated_at " + dir + ", t.id " + dir
	default:
		return " ORDER BY t.created_at " + dir + ", t.id " + dir
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *tasksRepo) ListTasks(ctx context.Context, userID string, f domain.TaskFilter, today time.Time) ([]domain.Task, int, error) {
	where, args := taskWhere(userID, f, today)

	total, err := r.q.count(ctx, `SELECT COUNT(*) FROM tasks t`+where, args...)
	if err != nil {
		return nil, 0, err
	}

	query := taskSelect + where + taskOrder(f)
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, max(f.Offset, 0))
	}

	tasks, err := r.scanTasks(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (r *tasksRepo) ListBoardTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	return r.scanTasks(ctx, taskSelect+`
		WHERE t.user_id = ? AND t.deleted_at IS NULL
		ORDER BY `+boardOrder+`, t.sort_order, t.created_at, t.id`, userID)
}

func (r *tasksRepo) ListTasksDueBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.Task, error) {
	return r.scanTasks(ctx, taskSelect+`
		WHERE t.user_id = ? AND t.deleted_at IS NULL
		  AND t.due_date >= ? AND t.due_date < ?
		ORDER BY t.due_date, `+boardOrder+`, t.sort_order, t.id`,
		userID, domain.TruncateDay(from), domain.TruncateDay(to))
}

func (r *tasksRepo) ListRecentTasks(ctx context.Context, userID string, limit int) ([]domain.Task, error) {
	return r.scanTasks(ctx, taskSelect+`
		WHERE t.user_id = ? AND t.deleted_at IS NULL
		ORDER BY t.updated_at DESC, t.id DESC
		LIMIT ?`, userID, limit)
}

func (r *tasksRepo) ListUpcomingTasks(ctx context.Context, userID string, today time.Time, limit int) ([]domain.Task, error) {
	return r.scanTasks(ctx, taskSelect+`
		WHERE t.user_id = ? AND t.deleted_at IS NULL
		  AND t.status <> 'done'
		  AND t.due_date IS NOT NULL AND t.due_date >= ?
		ORDER BY t.due_date, t.id
		LIMIT ?`, userID, domain.TruncateDay(today), limit)
}

func (r *tasksRepo) UpdateTask(ctx context.Context, t domain.Task) error {
	return r.q.execOne(ctx, `
		UPDATE tasks
		SET category_id = ?, title = ?, description = ?, status = ?, priority = ?,
		    due_date = ?, completed_at = ?, sort_order = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		mapOptionalString(t.CategoryID),
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		dueDateValue(t.DueDate),
		mapOptionalTime(t.CompletedAt),
		t.SortOrder,
		t.UpdatedAt.UTC(),
		t.ID,
		t.UserID,
	)
}

func (r *tasksRepo) NextSortOrder(ctx context.Context, userID string, status domain.TaskStatus) (int, error) {
	return r.q.count(ctx, `
		SELECT COALESCE(MAX(sort_order), -1) + 1 FROM tasks
		WHERE user_id = ? AND status = ? AND deleted_at IS NULL`,
		userID, string(status))
}

func (r *tasksRepo) TaskStats(ctx context.Context, userID string, today time.Time) (domain.TaskStats, error) {
	var s domain.TaskStats
	err := r.q.queryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN due_date < ? AND status <> 'done' THEN 1 ELSE 0 END), 0)
		FROM tasks
		WHERE user_id = ? AND deleted_at IS NULL`,
		domain.TruncateDay(today), userID,
	).Scan(&s.Total, &s.Completed, &s.InProgress, &s.Overdue)
	return s, err
}

func (r *tasksRepo) SoftDeleteTask(ctx context.Context, userID, id string, now time.Time) error {
	return r.q.execOne(ctx, `
		UPDATE tasks SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		now.UTC(), now.UTC(), id, userID)
}

func (r *tasksRepo) DetachCategory(ctx context.Context, userID, categoryID string, now time.Time) error {
	_, err := r.q.exec(ctx, `
		UPDATE tasks SET category_id = NULL, updated_at = ?
		WHERE user_id = ? AND category_id = ?`,
		now.UTC(), userID, categoryID)
	return err
}

func (r *tasksRepo) ListDeletedTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	return r.scanTasks(ctx, taskSelect+`
		WHERE t.user_id = ? AND t.deleted_at IS NOT NULL
		ORDER BY t.deleted_at DESC, t.id DESC`, userID)
}

func (r *tasksRepo) GetDeletedTask(ctx context.Context, userID, id string) (domain.Task, error) {
	return scanTask(r.q.queryRow(ctx,
		taskSelect+` WHERE t.id = ? AND t.user_id = ? AND t.deleted_at IS NOT NULL`, id, userID))
}

func (r *tasksRepo) RestoreTask(ctx context.Context, userID, id string, now time.Time) error {
	return r.q.execOne(ctx, `
		UPDATE tasks SET deleted_at = NULL, updated_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NOT NULL`,
		now.UTC(), id, userID)
}

func (r *tasksRepo) PurgeTask(ctx context.Context, userID, id string) error {
	return r.q.execOne(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ? AND deleted_at IS NOT NULL`, id, userID)
}

func (r *tasksRepo) PurgeDeletedTasks(ctx context.Context, userID string) (int64, error) {
	return r.q.execCount(ctx,
		`DELETE FROM tasks WHERE user_id = ? AND deleted_at IS NOT NULL`, userID)
}

func (r *tasksRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.q.execCount(ctx,
		`DELETE FROM tasks WHERE deleted_at IS NOT NULL AND deleted_at < ?`, cutoff.UTC())
}
