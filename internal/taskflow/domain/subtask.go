package domain

import "time"

type SubTask struct {
	ID          string
	TaskID      string
	Title       string
	IsCompleted bool
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Progress counts completed subtasks.
type Progress struct {
	Completed int
	Total     int
}

func SubTaskProgress(subtasks []SubTask) Progress {
	p := Progress{Total: len(subtasks)}
	for _, s := range subtasks {
		if s.IsCompleted {
			p.Completed++
		}
	}
	return p
}

// Percent is the completion percentage rounded down.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return p.Completed * 100 / p.Total
}
