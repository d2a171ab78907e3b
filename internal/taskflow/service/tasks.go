package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/idx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

// TasksPerPage is the page size of the task list.
const TasksPerPage = 20

type TaskService struct {
	Store store.Store
	Clock Clock
}

// TaskInput is a submitted task form. Empty status or priority keep the
// current value on update and fall back to the defaults on create.
type TaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string
	CategoryID  string
}

// TaskQuery holds the raw list filters from the query string.
type TaskQuery struct {
	Status     string
	Priority   string
	CategoryID string
	Search     string
	Due        string
	Sort       string
	Direction  string
	Page       int

	// Timezone decides which day the due filters treat as today.
	Timezone string
}

type TaskPage struct {
	Tasks   []domain.Task
	Total   int
	Page    int
	Pages   int
	PerPage int
	Filter  domain.TaskFilter
}

type TaskDetail struct {
	Task     domain.Task
	SubTasks []domain.SubTask
	Progress domain.Progress
}

type BoardColumn struct {
	Status domain.TaskStatus
	Label  string
	Tasks  []domain.Task
}

type Calendar struct {
	Month        string // YYYY-MM
	Label        string // e.g. March 2025
	Prev         string
	Next         string
	FirstWeekday time.Weekday
	DaysInMonth  int
	Days         map[string][]domain.Task // keyed by YYYY-MM-DD
}

var sortColumns = map[string]bool{
	"due_date":   true,
	"priority":   true,
	"created_at": true,
	"updated_at": true,
	"title":      true,
}

// Filter turns the query into a store filter, dropping unknown values.
func (q TaskQuery) Filter() (domain.TaskFilter, int) {
	f := domain.TaskFilter{
		CategoryID: strings.TrimSpace(q.CategoryID),
		Search:     strings.TrimSpace(q.Search),
		Sort:       "created_at",
		Descending: true,
		Limit:      TasksPerPage,
	}
	if st := domain.TaskStatus(q.Status); st.Valid() {
		f.Status = st
	}
	if p := domain.TaskPriority(q.Priority); p.Valid() {
		f.Priority = p
	}
	switch q.Due {
	case "overdue", "today", "week":
		f.Due = q.Due
	}
	if sortColumns[q.Sort] {
		f.Sort = q.Sort
	}
	if strings.EqualFold(q.Direction, "asc") {
		f.Descending = false
	}

	page := max(q.Page, 1)
	f.Offset = (page - 1) * TasksPerPage
	return f, page
}

func (s *TaskService) List(ctx context.Context, userID string, q TaskQuery) (TaskPage, error) {
	f, page := q.Filter()

	tasks, total, err := s.Store.Tasks().ListTasks(ctx, userID, f, s.Clock.Today(q.Timezone))
	if err != nil {
		return TaskPage{}, err
	}

	pages := (total + TasksPerPage - 1) / TasksPerPage
	return TaskPage{
		Tasks:   tasks,
		Total:   total,
		Page:    page,
		Pages:   pages,
		PerPage: TasksPerPage,
		Filter:  f,
	}, nil
}

func (s *TaskService) Get(ctx context.Context, userID, id string) (domain.Task, error) {
	t, err := s.Store.Tasks().GetTask(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Task{}, ErrTaskNotFound
	}
	return t, err
}

// Detail returns a task with its subtasks and their progress.
func (s *TaskService) Detail(ctx context.Context, userID, id string) (TaskDetail, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return TaskDetail{}, err
	}
	subs, err := s.Store.SubTasks().ListSubTasks(ctx, t.ID)
	if err != nil {
		return TaskDetail{}, err
	}
	return TaskDetail{Task: t, SubTasks: subs, Progress: domain.SubTaskProgress(subs)}, nil
}

// validate checks in and copies the accepted values onto t.
func (s *TaskService) validate(ctx context.Context, userID string, in TaskInput, t *domain.Task) error {
	errs := ValidationErrors{}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		errs.Add("title", "Title is required")
	case tooLong(title, maxTitleLen):
		errs.Add("title", fmt.Sprintf("Title must not exceed %d characters", maxTitleLen))
	}

	description := strings.TrimSpace(in.Description)
	if tooLong(description, maxDescriptionLen) {
		errs.Add("description", fmt.Sprintf("Description must not exceed %d characters", maxDescriptionLen))
	}

	status := t.Status
	if in.Status != "" {
		status = domain.TaskStatus(in.Status)
		if !status.Valid() {
			errs.Add("status", "Please select a valid status")
		}
	}

	priority := t.Priority
	if in.Priority != "" {
		priority = domain.TaskPriority(in.Priority)
		if !priority.Valid() {
			errs.Add("priority", "Please select a valid priority")
		}
	}

	var due *time.Time
	if d := strings.TrimSpace(in.DueDate); d != "" {
		parsed, err := time.Parse(domain.DateLayout, d)
		if err != nil {
			errs.Add("due_date", "Please enter a valid date (YYYY-MM-DD)")
		} else {
			due = &parsed
		}
	}

	var categoryID *string
	if c := strings.TrimSpace(in.CategoryID); c != "" {
		cat, err := s.Store.Categories().GetCategory(ctx, userID, c)
		switch {
		case errors.Is(err, store.ErrNotFound):
			errs.Add("category_id", "Please select a valid category")
		case err != nil:
			return err
		default:
			categoryID = &cat.ID
			t.CategoryName = cat.Name
			t.CategoryColor = cat.Color
		}
	}

	if err := errs.Err(); err != nil {
		return err
	}

	t.Title = title
	t.Description = description
	t.Priority = priority
	t.DueDate = due
	t.CategoryID = categoryID
	if categoryID == nil {
		t.CategoryName, t.CategoryColor = "", ""
	}
	t.Status = status
	return nil
}

// setStatus moves t into status, keeping completed_at in step.
func setStatus(t *domain.Task, status domain.TaskStatus, now time.Time) {
	switch {
	case status == domain.StatusDone && t.CompletedAt == nil:
		t.CompletedAt = &now
	case status != domain.StatusDone:
		t.CompletedAt = nil
	}
	t.Status = status
}

func (s *TaskService) Create(ctx context.Context, userID string, in TaskInput) (domain.Task, error) {
	now := s.Clock.Now()
	t := domain.Task{
		ID:        idx.New().String(),
		UserID:    userID,
		Status:    domain.StatusTodo,
		Priority:  domain.PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.validate(ctx, userID, in, &t); err != nil {
		return domain.Task{}, err
	}
	setStatus(&t, t.Status, now)

	order, err := s.Store.Tasks().NextSortOrder(ctx, userID, t.Status)
	if err != nil {
		return domain.Task{}, err
	}
	t.SortOrder = order

	if err := s.Store.Tasks().CreateTask(ctx, t); err != nil {
		return domain.Task{}, err
	}

	slogx.FromContext(ctx).Info("task created", slog.String("task_id", t.ID))
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, userID, id string, in TaskInput) (domain.Task, error) {
	now := s.Clock.Now()
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.Task{}, err
	}

	prev := t.Status
	if err := s.validate(ctx, userID, in, &t); err != nil {
		return domain.Task{}, err
	}
	next := t.Status
	t.Status = prev
	setStatus(&t, next, now)

	if next != prev {
		order, err := s.Store.Tasks().NextSortOrder(ctx, userID, next)
		if err != nil {
			return domain.Task{}, err
		}
		t.SortOrder = order
	}
	return t, s.save(ctx, t, now)
}

// ChangeStatus moves a task between kanban columns. A nil sortOrder appends
// it to the end of the target column.
func (s *TaskService) ChangeStatus(ctx context.Context, userID, id, status string, sortOrder *int) (domain.Task, error) {
	now := s.Clock.Now()

	st := domain.TaskStatus(status)
	if !st.Valid() {
		return domain.Task{}, ValidationErrors{"status": {"Please select a valid status"}}
	}

	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.Task{}, err
	}

	switch {
	case sortOrder != nil:
		t.SortOrder = max(*sortOrder, 0)
	case st != t.Status:
		order, err := s.Store.Tasks().NextSortOrder(ctx, userID, st)
		if err != nil {
			return domain.Task{}, err
		}
		t.SortOrder = order
	}
	setStatus(&t, st, now)
	return t, s.save(ctx, t, now)
}

// Toggle flips a task between done and todo.
func (s *TaskService) Toggle(ctx context.Context, userID, id string) (domain.Task, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.Task{}, err
	}
	next := domain.StatusDone
	if t.Status == domain.StatusDone {
		next = domain.StatusTodo
	}
	return s.ChangeStatus(ctx, userID, id, string(next), nil)
}

func (s *TaskService) save(ctx context.Context, t domain.Task, now time.Time) error {
	t.UpdatedAt = now
	err := s.Store.Tasks().UpdateTask(ctx, t)
	if errors.Is(err, store.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}

// Delete moves a task to the trash.
func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	err := s.Store.Tasks().SoftDeleteTask(ctx, userID, id, s.Clock.Now())
	if errors.Is(err, store.ErrNotFound) {
		return ErrTaskNotFound
	}
	if err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("task moved to trash", slog.String("task_id", id))
	return nil
}

// Board returns the kanban columns in status order.
func (s *TaskService) Board(ctx context.Context, userID string) ([]BoardColumn, error) {
	tasks, err := s.Store.Tasks().ListBoardTasks(ctx, userID)
	if err != nil {
		return nil, err
	}

	cols := make([]BoardColumn, len(domain.TaskStatuses))
	index := make(map[domain.TaskStatus]int, len(domain.TaskStatuses))
	for i, st := range domain.TaskStatuses {
		cols[i] = BoardColumn{Status: st, Label: st.Label(), Tasks: []domain.Task{}}
		index[st] = i
	}
	for _, t := range tasks {
		if i, ok := index[t.Status]; ok {
			cols[i].Tasks = append(cols[i].Tasks, t)
		}
	}
	return cols, nil
}

// Calendar groups the tasks due in month (YYYY-MM) by day. An empty or
// malformed month means the current one in timezone tz.
func (s *TaskService) Calendar(ctx context.Context, userID, month, tz string) (Calendar, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		today := s.Clock.Today(tz)
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	end := start.AddDate(0, 1, 0)

	tasks, err := s.Store.Tasks().ListTasksDueBetween(ctx, userID, start, end)
	if err != nil {
		return Calendar{}, err
	}

	days := make(map[string][]domain.Task)
	for _, t := range tasks {
		key := t.DueDate.Format(domain.DateLayout)
		days[key] = append(days[key], t)
	}

	return Calendar{
		Month:        start.Format("2006-01"),
		Label:        start.Format("January 2006"),
		Prev:         start.AddDate(0, -1, 0).Format("2006-01"),
		Next:         end.Format("2006-01"),
		FirstWeekday: start.Weekday(),
		DaysInMonth:  end.AddDate(0, 0, -1).Day(),
		Days:         days,
	}, nil
}
