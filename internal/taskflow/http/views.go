package http

import (
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
)

// JSON shapes of the view models. Domain types carry no tags; these do.

type userView struct {
	ID              string    `json:"id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	FullName        string    `json:"full_name"`
	Email           string    `json:"email"`
	EmailVerified   bool      `json:"email_verified"`
	ThemePreference string    `json:"theme_preference"`
	Timezone        string    `json:"timezone"`
	CreatedAt       time.Time `json:"created_at"`
}

func newUserView(u domain.User) *userView {
	return &userView{
		ID:              u.ID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		FullName:        u.FullName(),
		Email:           u.Email,
		EmailVerified:   u.IsVerified(),
		ThemePreference: u.ThemePreference,
		Timezone:        u.Timezone,
		CreatedAt:       u.CreatedAt,
	}
}

type taskView struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	StatusLabel   string     `json:"status_label"`
	Priority      string     `json:"priority"`
	DueDate       *string    `json:"due_date"`
	IsOverdue     bool       `json:"is_overdue"`
	CompletedAt   *time.Time `json:"completed_at"`
	SortOrder     int        `json:"sort_order"`
	CategoryID    *string    `json:"category_id"`
	CategoryName  string     `json:"category_name,omitempty"`
	CategoryColor string     `json:"category_color,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func newTaskView(t domain.Task, today time.Time) taskView {
	v := taskView{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        string(t.Status),
		StatusLabel:   t.Status.Label(),
		Priority:      string(t.Priority),
		IsOverdue:     t.IsOverdue(today),
		CompletedAt:   t.CompletedAt,
		SortOrder:     t.SortOrder,
		CategoryID:    t.CategoryID,
		CategoryName:  t.CategoryName,
		CategoryColor: t.CategoryColor,
		DeletedAt:     t.DeletedAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if t.DueDate != nil {
		d := t.DueDate.Format(domain.DateLayout)
		v.DueDate = &d
	}
	return v
}

func newTaskViews(tasks []domain.Task, today time.Time) []taskView {
	out := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, newTaskView(t, today))
	}
	return out
}

type subTaskView struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"is_completed"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

func newSubTaskView(s domain.SubTask) subTaskView {
	return subTaskView{
		ID:          s.ID,
		TaskID:      s.TaskID,
		Title:       s.Title,
		IsCompleted: s.IsCompleted,
		SortOrder:   s.SortOrder,
		CreatedAt:   s.CreatedAt,
	}
}

func newSubTaskViews(subs []domain.SubTask) []subTaskView {
	out := make([]subTaskView, 0, len(subs))
	for _, s := range subs {
		out = append(out, newSubTaskView(s))
	}
	return out
}

type progressView struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

func newProgressView(p domain.Progress) progressView {
	return progressView{Completed: p.Completed, Total: p.Total, Percent: p.Percent()}
}

type categoryView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Color          string `json:"color"`
	TaskCount      *int   `json:"task_count,omitempty"`
	CompletedCount *int   `json:"completed_count,omitempty"`
}

func newCategoryView(c domain.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, Color: c.Color}
}

func newCategoryStatsViews(cats []domain.CategoryStats) []categoryView {
	out := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		v := newCategoryView(c.Category)
		v.TaskCount = &c.TaskCount
		v.CompletedCount = &c.CompletedCount
		out = append(out, v)
	}
	return out
}

type statsView struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	InProgress     int     `json:"in_progress"`
	Overdue        int     `json:"overdue"`
	CompletionRate float64 `json:"completion_rate"`
}

func newStatsView(s domain.TaskStats) statsView {
	return statsView{
		Total:          s.Total,
		Completed:      s.Completed,
		InProgress:     s.InProgress,
		Overdue:        s.Overdue,
		CompletionRate: s.CompletionRate(),
	}
}

// formOptions are the select lists a task form needs.
type formOptions struct {
	Statuses   []option       `json:"statuses"`
	Priorities []option       `json:"priorities"`
	Categories []categoryView `json:"categories"`
}

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func taskFormOptions(cats []domain.CategoryStats) formOptions {
	opts := formOptions{Categories: newCategoryStatsViews(cats)}
	for _, s := range domain.TaskStatuses {
		opts.Statuses = append(opts.Statuses, option{Value: string(s), Label: s.Label()})
	}
	for _, p := range domain.TaskPriorities {
		opts.Priorities = append(opts.Priorities, option{Value: string(p), Label: capitalise(string(p))})
	}
	return opts
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

type filterView struct {
	Status     string `json:"status"`
	Priority   string `json:"priority"`
	CategoryID string `json:"category_id"`
	Search     string `json:"search"`
	Due        string `json:"due"`
	Sort       string `json:"sort"`
	Direction  string `json:"direction"`
}

func newFilterView(f domain.TaskFilter) filterView {
	dir := "desc"
	if !f.Descending {
		dir = "asc"
	}
	return filterView{
		Status:     string(f.Status),
		Priority:   string(f.Priority),
		CategoryID: f.CategoryID,
		Search:     f.Search,
		Due:        f.Due,
		Sort:       f.Sort,
		Direction:  dir,
	}
}

type boardColumnView struct {
	Status string     `json:"status"`
	Label  string     `json:"label"`
	Tasks  []taskView `json:"tasks"`
}

func newBoardViews(cols []service.BoardColumn, today time.Time) []boardColumnView {
	out := make([]boardColumnView, 0, len(cols))
	for _, c := range cols {
		out = append(out, boardColumnView{
			Status: string(c.Status),
			Label:  c.Label,
			Tasks:  newTaskViews(c.Tasks, today),
		})
	}
	return out
}
