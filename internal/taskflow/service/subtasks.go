package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/idx"
)

type SubTaskService struct {
	Store store.Store
	Clock Clock
}

// parent returns the active task owning subtasks of taskID.
func (s *SubTaskService) parent(ctx context.Context, userID, taskID string) (domain.Task, error) {
	t, err := s.Store.Tasks().GetTask(ctx, userID, taskID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Task{}, ErrTaskNotFound
	}
	return t, err
}

func (s *SubTaskService) List(ctx context.Context, userID, taskID string) ([]domain.SubTask, error) {
	t, err := s.parent(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	return s.Store.SubTasks().ListSubTasks(ctx, t.ID)
}

// Create appends a subtask to the task.
func (s *SubTaskService) Create(ctx context.Context, userID, taskID, title string) (domain.SubTask, error) {
	title = strings.TrimSpace(title)
	errs := ValidationErrors{}
	switch {
	case title == "":
		errs.Add("title", "Title is required")
	case tooLong(title, maxTitleLen):
		errs.Add("title", fmt.Sprintf("Title must not exceed %d characters", maxTitleLen))
	}
	if err := errs.Err(); err != nil {
		return domain.SubTask{}, err
	}

	t, err := s.parent(ctx, userID, taskID)
	if err != nil {
		return domain.SubTask{}, err
	}

	order, err := s.Store.SubTasks().NextSubTaskSortOrder(ctx, t.ID)
	if err != nil {
		return domain.SubTask{}, err
	}

	now := s.Clock.Now()
	st := domain.SubTask{
		ID:        idx.New().String(),
		TaskID:    t.ID,
		Title:     title,
		SortOrder: order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.SubTasks().CreateSubTask(ctx, st); err != nil {
		return domain.SubTask{}, err
	}
	return st, nil
}

func (s *SubTaskService) get(ctx context.Context, userID, id string) (domain.SubTask, error) {
	st, err := s.Store.SubTasks().GetSubTask(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.SubTask{}, ErrSubTaskNotFound
	}
	return st, err
}

// Toggle flips is_completed.
func (s *SubTaskService) Toggle(ctx context.Context, userID, id string) (domain.SubTask, error) {
	st, err := s.get(ctx, userID, id)
	if err != nil {
		return domain.SubTask{}, err
	}

	now := s.Clock.Now()
	st.IsCompleted = !st.IsCompleted
	st.UpdatedAt = now
	if err := s.Store.SubTasks().SetSubTaskCompleted(ctx, st.ID, st.IsCompleted, now); err != nil {
		return domain.SubTask{}, err
	}
	return st, nil
}

func (s *SubTaskService) Delete(ctx context.Context, userID, id string) error {
	st, err := s.get(ctx, userID, id)
	if err != nil {
		return err
	}
	err = s.Store.SubTasks().DeleteSubTask(ctx, st.ID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSubTaskNotFound
	}
	return err
}
