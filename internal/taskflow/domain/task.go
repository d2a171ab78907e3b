package domain

import (
	"time"
	_ "time/tzdata" // IANA zones for user timezones
)

type TaskStatus string

const (
	StatusBacklog    TaskStatus = "backlog"
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusReview     TaskStatus = "review"
	StatusDone       TaskStatus = "done"
)

// TaskStatuses lists every status in kanban column order.
var TaskStatuses = []TaskStatus{StatusBacklog, StatusTodo, StatusInProgress, StatusReview, StatusDone}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Label is the human readable column heading.
func (s TaskStatus) Label() string {
	switch s {
	case StatusBacklog:
		return "Backlog"
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusReview:
		return "Review"
	case StatusDone:
		return "Done"
	}
	return string(s)
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

var TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh}

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// DateLayout is the wire and storage format of due dates.
const DateLayout = "2006-01-02"

type Task struct {
	ID          string
	UserID      string
	CategoryID  *string
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	DueDate     *time.Time // date only, midnight UTC
	CompletedAt *time.Time
	SortOrder   int
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Joined from categories on reads.
	CategoryName  string
	CategoryColor string
}

// IsOverdue reports whether the task is past due on the given day.
func (t Task) IsOverdue(today time.Time) bool {
	if t.DueDate == nil || t.Status == StatusDone {
		return false
	}
	return t.DueDate.Before(TruncateDay(today))
}

// TruncateDay returns midnight UTC of t's calendar day in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LocalDay returns the calendar day now falls on in the IANA zone tz, as
// midnight UTC so it compares directly with stored due dates. An empty or
// unknown zone means UTC.
func LocalDay(now time.Time, tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TaskFilter narrows a task listing. Zero values mean "no filter".
type TaskFilter struct {
	Status     TaskStatus
	Priority   TaskPriority
	CategoryID string
	Search     string
	Due        string // overdue, today or week
	Sort       string // due_date, priority, created_at, updated_at or title
	Descending bool
	Limit      int
	Offset     int
}

// TaskStats summarises a user's active tasks.
type TaskStats struct {
	Total      int
	Completed  int
	InProgress int
	Overdue    int
}

// CompletionRate is Completed/Total as a percentage rounded to one decimal.
func (s TaskStats) CompletionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	pct := float64(s.Completed) / float64(s.Total) * 100
	return float64(int(pct*10+0.5)) / 10
}
