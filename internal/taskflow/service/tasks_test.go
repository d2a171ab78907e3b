package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

func TestTaskQuery_Filter(t *testing.T) {
	t.Parallel()

	f, page := TaskQuery{}.Filter()
	require.Equal(t, 1, page)
	require.Equal(t, "created_at", f.Sort)
	require.True(t, f.Descending)
	require.Equal(t, TasksPerPage, f.Limit)
	require.Zero(t, f.Offset)

	f, page = TaskQuery{
		Status:    "bogus",
		Priority:  "high",
		Due:       "week",
		Sort:      "title",
		Direction: "ASC",
		Page:      3,
	}.Filter()
	require.Equal(t, 3, page)
	require.Empty(t, f.Status)
	require.Equal(t, domain.PriorityHigh, f.Priority)
	require.Equal(t, "week", f.Due)
	require.Equal(t, "title", f.Sort)
	require.False(t, f.Descending)
	require.Equal(t, 2*TasksPerPage, f.Offset)

	f, _ = TaskQuery{Sort: "id; drop table tasks", Due: "someday"}.Filter()
	require.Equal(t, "created_at", f.Sort)
	require.Empty(t, f.Due)
}

func TestTaskService_CreateAndUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	u := e.signUp(t, "jane@example.com")
	cats, err := e.categories.List(ctx, u.ID)
	require.NoError(t, err)

	first, err := e.tasks.Create(ctx, u.ID, TaskInput{Title: "  Write report  "})
	require.NoError(t, err)
	require.Equal(t, "Write report", first.Title)
	require.Equal(t, domain.StatusTodo, first.Status)
	require.Equal(t, domain.PriorityMedium, first.Priority)
	require.Zero(t, first.SortOrder)

	second, err := e.tasks.Create(ctx, u.ID, TaskInput{
		Title:      "Pay bills",
		Priority:   "high",
		DueDate:    "2025-03-15",
		CategoryID: cats[0].ID,
	})
	require.NoError(t, err)
	require.Equal(t, 1, second.SortOrder)
	require.Equal(t, "2025-03-15", second.DueDate.Format(domain.DateLayout))
	require.Equal(t, cats[0].ID, *second.CategoryID)

	done, err := e.tasks.Create(ctx, u.ID, TaskInput{Title: "Already done", Status: "done"})
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	require.Zero(t, done.SortOrder)

	updated, err := e.tasks.Update(ctx, u.ID, second.ID, TaskInput{Title: "Pay all bills", Status: "in_progress"})
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, updated.Status)
	require.Equal(t, domain.PriorityHigh, updated.Priority)
	require.Nil(t, updated.DueDate)
	require.Nil(t, updated.CategoryID)

	got, err := e.tasks.Get(ctx, u.ID, second.ID)
	require.NoError(t, err)
	require.Equal(t, "Pay all bills", got.Title)
	require.Equal(t, domain.StatusInProgress, got.Status)
}

func TestTaskService_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	u := e.signUp(t, "jane@example.com")
	other := e.signUp(t, "john@example.com")
	otherCats, err := e.categories.List(ctx, other.ID)
	require.NoError(t, err)

	long := strings.Repeat("a", maxTitleLen+1)

	cases := map[string]struct {
		in    TaskInput
		field string
	}{
		"title required":   {TaskInput{Title: "   "}, "title"},
		"title too long":   {TaskInput{Title: long}, "title"},
		"bad status":       {TaskInput{Title: "x", Status: "later"}, "status"},
		"bad priority":     {TaskInput{Title: "x", Priority: "meh"}, "priority"},
		"bad due date":     {TaskInput{Title: "x", DueDate: "15/03/2025"}, "due_date"},
		"foreign category": {TaskInput{Title: "x", CategoryID: otherCats[0].ID}, "category_id"},
		"unknown category": {TaskInput{Title: "x", CategoryID: "missing"}, "category_id"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.tasks.Create(ctx, u.ID, tc.in)
			requireFieldError(t, err, tc.field)
		})
	}
}

func TestTaskService_StatusAndToggle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	u := e.signUp(t, "jane@example.com")

	task, err := e.tasks.Create(ctx, u.ID, TaskInput{Title: "Ship it"})
	require.NoError(t, err)

	task, err = e.tasks.Toggle(ctx, u.ID, task.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDone, task.Status)
	require.NotNil(t, task.CompletedAt)

	task, err = e.tasks.Toggle(ctx, u.ID, task.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusTodo, task.Status)
	require.Nil(t, task.CompletedAt)

	order := 7
	task, err = e.tasks.ChangeStatus(ctx, u.ID, task.ID, "review", &order)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReview, task.Status)
	require.Equal(t, 7, task.SortOrder)

	_, err = e.tasks.ChangeStatus(ctx, u.ID, task.ID, "finished", nil)
	requireFieldError(t, err, "status")
}

func TestTaskService_Isolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	jane := e.signUp(t, "jane@example.com")
	john := e.signUp(t, "john@example.com")

	task, err := e.tasks.Create(ctx, jane.ID, TaskInput{Title: "Private"})
	require.NoError(t, err)

	_, err = e.tasks.Get(ctx, john.ID, task.ID)
	require.ErrorIs(t, err, ErrTaskNotFound)
	_, err = e.tasks.Update(ctx, john.ID, task.ID, TaskInput{Title: "Mine now"})
	require.ErrorIs(t, err, ErrTaskNotFound)
	_, err = e.tasks.ChangeStatus(ctx, john.ID, task.ID, "done", nil)
	require.ErrorIs(t, err, ErrTaskNotFound)
	require.ErrorIs(t, e.tasks.Delete(ctx, john.ID, task.ID), ErrTaskNotFound)
	_, err = e.subtasks.Create(ctx, john.ID, task.ID, "sneaky")
	require.ErrorIs(t, err, ErrTaskNotFound)
	require.ErrorIs(t, e.trash.Purge(ctx, john.ID, task.ID), ErrTaskNotFound)

	page, err := e.tasks.List(ctx, john.ID, TaskQuery{})
	require.NoError(t, err)
	require.Zero(t, page.Total)
}

func TestTaskService_ListPaging(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	u := e.signUp(t, "jane@example.com")

	for i := range TasksPerPage + 5 {
		_, err := e.tasks.Create(ctx, u.ID, TaskInput{Title: fmt.Sprintf("Task %02d", i)})
		require.NoError(t, err)
	}

	page, err := e.tasks.List(ctx, u.ID, TaskQuery{Sort: "title", Direction: "asc", Page: 2})
	require.NoError(t, err)
	require.Equal(t, TasksPerPage+5, page.Total)
	require.Equal(t, 2, page.Pages)
	require.Equal(t, 2, page.Page)
	require.Len(t, page.Tasks, 5)
	require.Equal(t, "Task 20", page.Tasks[0].Title)

	page, err = e.tasks.List(ctx, u.ID, TaskQuery{Search: "task 0"})
	require.NoError(t, err)
	require.Equal(t, 10, page.Total)
}

func TestTaskService_BoardAndCalendar(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	u := e.signUp(t, "jane@example.com")

	mk := func(title, status, due string) domain.Task {
		task, err := e.tasks.Create(ctx, u.ID, TaskInput{Title: title, Status: status, DueDate: due})
		require.NoError(t, err)
		return task
	}
	mk("a", "todo", "2025-03-01")
	mk("b", "todo", "2025-03-31")
	mk("c", "in_progress", "2025-04-01")
	mk("d", "done", "2025-02-28")
	gone := mk("e", "review", "2025-03-01")
	require.NoError(t, e.tasks.Delete(ctx, u.ID, gone.ID))

	board, err := e.tasks.Board(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, board, len(domain.TaskStatuses))
	require.Equal(t, domain.StatusBacklog, board[0].Status)
	counts := map[domain.TaskStatus]int{}
	for _, col := range board {
		counts[col.Status] = len(col.Tasks)
	}
	require.Equal(t, map[domain.TaskStatus]int{
		domain.StatusBacklog:    0,
		domain.StatusTodo:       2,
		domain.StatusInProgress: 1,
		domain.StatusReview:     0,
		domain.StatusDone:       1,
	}, counts)
	require.Equal(t, "a", board[1].Tasks[0].Title)

	cal, err := e.tasks.Calendar(ctx, u.ID, "2025-03", "")
	require.NoError(t, err)
	require.Equal(t, "2025-03", cal.Month)
	require.Equal(t, "March 2025", cal.Label)
	require.Equal(t, "2025-02", cal.Prev)
	require.Equal(t, "2025-04", cal.Next)
	require.Equal(t, 31, cal.DaysInMonth)
	require.Len(t, cal.Days, 2)
	require.Len(t, cal.Days["2025-03-01"], 1)
	require.Len(t, cal.Days["2025-03-31"], 1)

	cal, err = e.tasks.Calendar(ctx, u.ID, "garbage", "")
	require.NoError(t, err)
	require.Equal(t, "2025-03", cal.Month)
}

func TestSubTaskService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	u := e.signUp(t, "jane@example.com")

	task, err := e.tasks.Create(ctx, u.ID, TaskInput{Title: "Move house"})
	require.NoError(t, err)

	boxes, err := e.subtasks.Create(ctx, u.ID, task.ID, "Buy boxes")
	require.NoError(t, err)
	truck, err := e.subtasks.Create(ctx, u.ID, task.ID, "Book truck")
	require.NoError(t, err)
	require.Equal(t, 0, boxes.SortOrder)
	require.Equal(t, 1, truck.SortOrder)

	_, err = e.subtasks.Create(ctx, u.ID, task.ID, " ")
	requireFieldError(t, err, "title")

	boxes, err = e.subtasks.Toggle(ctx, u.ID, boxes.ID)
	require.NoError(t, err)
	require.True(t, boxes.IsCompleted)

	detail, err := e.tasks.Detail(ctx, u.ID, task.ID)
	require.NoError(t, err)
	require.Len(t, detail.SubTasks, 2)
	require.Equal(t, domain.Progress{Completed: 1, Total: 2}, detail.Progress)

	require.NoError(t, e.subtasks.Delete(ctx, u.ID, truck.ID))
	require.ErrorIs(t, e.subtasks.Delete(ctx, u.ID, truck.ID), ErrSubTaskNotFound)

	subs, err := e.subtasks.List(ctx, u.ID, task.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	// Trashed parents are out of reach.
	require.NoError(t, e.tasks.Delete(ctx, u.ID, task.ID))
	_, err = e.subtasks.Create(ctx, u.ID, task.ID, "Too late")
	require.ErrorIs(t, err, ErrTaskNotFound)
	_, err = e.subtasks.Toggle(ctx, u.ID, boxes.ID)
	require.ErrorIs(t, err, ErrSubTaskNotFound)
}

func TestTaskService_TodayFollowsTimezone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	u := e.signUp(t, "jane@example.com")

	// Monday evening in UTC is already Tuesday morning in Sydney.
	e.now = time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	const sydney = "Australia/Sydney"

	for _, in := range []TaskInput{
		{Title: "monday", DueDate: "2025-03-10"},
		{Title: "tuesday", DueDate: "2025-03-11"},
	} {
		_, err := e.tasks.Create(ctx, u.ID, in)
		require.NoError(t, err)
	}

	titles := func(tz, due string) []string {
		page, err := e.tasks.List(ctx, u.ID, TaskQuery{Due: due, Timezone: tz})
		require.NoError(t, err)
		out := []string{}
		for _, task := range page.Tasks {
			out = append(out, task.Title)
		}
		return out
	}
	require.Equal(t, []string{"monday"}, titles("", "today"))
	require.Equal(t, []string{"tuesday"}, titles(sydney, "today"))
	require.Empty(t, titles("", "overdue"))
	require.Equal(t, []string{"monday"}, titles(sydney, "overdue"))

	d, err := e.dashboard.Summary(ctx, u.ID, sydney)
	require.NoError(t, err)
	require.Equal(t, 1, d.Stats.Overdue)
	require.Len(t, d.Upcoming, 1)
	require.Equal(t, "tuesday", d.Upcoming[0].Title)

	e.now = time.Date(2025, 3, 31, 20, 0, 0, 0, time.UTC)
	cal, err := e.tasks.Calendar(ctx, u.ID, "", "")
	require.NoError(t, err)
	require.Equal(t, "2025-03", cal.Month)
	cal, err = e.tasks.Calendar(ctx, u.ID, "", sydney)
	require.NoError(t, err)
	require.Equal(t, "2025-04", cal.Month)
}
