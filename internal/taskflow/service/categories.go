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

type CategoryService struct {
	Store store.Store
	Clock Clock
}

type CategoryInput struct {
	Name  string
	Color string
}

// seedDefaultCategories gives a new account its starter categories.
func seedDefaultCategories(ctx context.Context, tx store.Tx, userID string, now time.Time) error {
	for _, dc := range domain.DefaultCategories {
		err := tx.Categories().CreateCategory(ctx, domain.Category{
			ID:        idx.New().String(),
			UserID:    userID,
			Name:      dc.Name,
			Color:     dc.Color,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("seed category %q: %w", dc.Name, err)
		}
	}
	return nil
}

// List returns the user's categories with task counts.
func (s *CategoryService) List(ctx context.Context, userID string) ([]domain.CategoryStats, error) {
	return s.Store.Categories().ListCategoryStats(ctx, userID)
}

func (s *CategoryService) Get(ctx context.Context, userID, id string) (domain.Category, error) {
	c, err := s.Store.Categories().GetCategory(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Category{}, ErrCategoryNotFound
	}
	return c, err
}

func (s *CategoryService) validate(ctx context.Context, userID, excludeID string, in *CategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	if in.Color == "" {
		in.Color = domain.DefaultCategoryColor
	}

	errs := ValidationErrors{}
	switch {
	case in.Name == "":
		errs.Add("name", "Category name is required")
	case tooLong(in.Name, maxNameLen):
		errs.Add("name", fmt.Sprintf("Category name must not exceed %d characters", maxNameLen))
	default:
		taken, err := s.Store.Categories().CategoryNameExists(ctx, userID, in.Name, excludeID)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("name", "A category with this name already exists")
		}
	}
	if !domain.ValidCategoryColor(in.Color) {
		errs.Add("color", "Please choose a valid color")
	}
	return errs.Err()
}

func (s *CategoryService) Create(ctx context.Context, userID string, in CategoryInput) (domain.Category, error) {
	if err := s.validate(ctx, userID, "", &in); err != nil {
		return domain.Category{}, err
	}

	now := s.Clock.Now()
	c := domain.Category{
		ID:        idx.New().String(),
		UserID:    userID,
		Name:      in.Name,
		Color:     in.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Categories().CreateCategory(ctx, c); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Category{}, ErrCategoryNameTaken
		}
		return domain.Category{}, err
	}

	slogx.FromContext(ctx).Info("category created", slog.String("category_id", c.ID))
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, userID, id string, in CategoryInput) (domain.Category, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.Category{}, err
	}
	if err := s.validate(ctx, userID, id, &in); err != nil {
		return domain.Category{}, err
	}

	c.Name = in.Name
	c.Color = in.Color
	c.UpdatedAt = s.Clock.Now()

	switch err := s.Store.Categories().UpdateCategory(ctx, c); {
	case errors.Is(err, store.ErrAlreadyExists):
		return domain.Category{}, ErrCategoryNameTaken
	case errors.Is(err, store.ErrNotFound):
		return domain.Category{}, ErrCategoryNotFound
	case err != nil:
		return domain.Category{}, err
	}
	return c, nil
}

// Delete removes a category. Its tasks, trashed ones included, are kept
// and become uncategorised.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	now := s.Clock.Now()

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Categories().GetCategory(ctx, userID, id); err != nil {
			return err
		}
		if err := tx.Tasks().DetachCategory(ctx, userID, id, now); err != nil {
			return err
		}
		return tx.Categories().DeleteCategory(ctx, userID, id)
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrCategoryNotFound
	}
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("category deleted", slog.String("category_id", id))
	return nil
}
