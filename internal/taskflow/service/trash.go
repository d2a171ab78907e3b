package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

// TrashService works only on soft deleted tasks; active tasks are never
// reachable through it.
type TrashService struct {
	Store store.Store
	Clock Clock
}

// List returns trashed tasks, most recently deleted first.
func (s *TrashService) List(ctx context.Context, userID string) ([]domain.Task, error) {
	return s.Store.Tasks().ListDeletedTasks(ctx, userID)
}

func (s *TrashService) Restore(ctx context.Context, userID, id string) (domain.Task, error) {
	t, err := s.Store.Tasks().GetDeletedTask(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}

	now := s.Clock.Now()
	if err := s.Store.Tasks().RestoreTask(ctx, userID, id, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Task{}, ErrTaskNotFound
		}
		return domain.Task{}, err
	}

	t.DeletedAt = nil
	t.UpdatedAt = now
	slogx.FromContext(ctx).Info("task restored", slog.String("task_id", id))
	return t, nil
}

// Purge permanently deletes one trashed task and its subtasks.
func (s *TrashService) Purge(ctx context.Context, userID, id string) error {
	err := s.Store.Tasks().PurgeTask(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrTaskNotFound
	}
	if err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("task permanently deleted", slog.String("task_id", id))
	return nil
}

// Empty permanently deletes every trashed task and reports how many.
func (s *TrashService) Empty(ctx context.Context, userID string) (int64, error) {
	n, err := s.Store.Tasks().PurgeDeletedTasks(ctx, userID)
	if err != nil {
		return 0, err
	}
	slogx.FromContext(ctx).Info("trash emptied", slog.Int64("tasks", n))
	return n, nil
}
