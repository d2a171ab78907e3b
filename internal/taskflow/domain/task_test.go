package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/stretchr/testify/require"
)

func TestTaskIsOverdue(t *testing.T) {
	today := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	yesterday := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	todayDate := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	require.True(t, domain.Task{Status: domain.StatusTodo, DueDate: &yesterday}.IsOverdue(today))
	require.False(t, domain.Task{Status: domain.StatusDone, DueDate: &yesterday}.IsOverdue(today))
	require.False(t, domain.Task{Status: domain.StatusTodo, DueDate: &todayDate}.IsOverdue(today))
	require.False(t, domain.Task{Status: domain.StatusTodo}.IsOverdue(today))
}

func TestCompletionRate(t *testing.T) {
	require.Equal(t, 0.0, domain.TaskStats{}.CompletionRate())
	require.Equal(t, 33.3, domain.TaskStats{Total: 3, Completed: 1}.CompletionRate())
	require.Equal(t, 66.7, domain.TaskStats{Total: 3, Completed: 2}.CompletionRate())
	require.Equal(t, 100.0, domain.TaskStats{Total: 4, Completed: 4}.CompletionRate())
}

func TestEnums(t *testing.T) {
	for _, s := range domain.TaskStatuses {
		require.True(t, s.Valid())
	}
	require.False(t, domain.TaskStatus("completed").Valid())
	require.True(t, domain.PriorityHigh.Valid())
	require.False(t, domain.TaskPriority("urgent").Valid())
	require.Equal(t, "In Progress", domain.StatusInProgress.Label())
}

func TestValidCategoryColor(t *testing.T) {
	require.True(t, domain.ValidCategoryColor("blue"))
	require.True(t, domain.ValidCategoryColor("#0d6efd"))
	require.False(t, domain.ValidCategoryColor("#0d6ef"))
	require.False(t, domain.ValidCategoryColor("chartreuse"))
}

func TestSubTaskProgress(t *testing.T) {
	p := domain.SubTaskProgress([]domain.SubTask{{IsCompleted: true}, {}, {IsCompleted: true}})
	require.Equal(t, domain.Progress{Completed: 2, Total: 3}, p)
	require.Equal(t, 66, p.Percent())
	require.Equal(t, 0, domain.Progress{}.Percent())
}

func TestUserFullName(t *testing.T) {
	require.Equal(t, "Ada Lovelace", domain.User{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	require.Equal(t, "Ada", domain.User{FirstName: "Ada"}.FullName())
}

func TestLocalDay(t *testing.T) {
	now := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		tz   string
		want time.Time
	}{
		{"", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"UTC", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"Australia/Sydney", time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"America/Los_Angeles", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"Not/AZone", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.tz, func(t *testing.T) {
			require.Equal(t, tt.want, domain.LocalDay(now, tt.tz))
		})
	}

	late := domain.Task{Status: domain.StatusTodo, DueDate: &tests[0].want}
	require.False(t, late.IsOverdue(domain.LocalDay(now, "")))
	require.True(t, late.IsOverdue(domain.LocalDay(now, "Australia/Sydney")))
}
