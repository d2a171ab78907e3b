package service

import (
	"context"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
)

const (
	dashboardRecentLimit   = 10
	dashboardUpcomingLimit = 5
)

type DashboardService struct {
	Store store.Store
	Clock Clock
}

type Dashboard struct {
	Stats          domain.TaskStats
	CompletionRate float64
	Recent         []domain.Task
	Upcoming       []domain.Task
}

// Summary builds the dashboard with "today" taken in the user's timezone.
func (s *DashboardService) Summary(ctx context.Context, userID, tz string) (Dashboard, error) {
	today := s.Clock.Today(tz)

	stats, err := s.Store.Tasks().TaskStats(ctx, userID, today)
	if err != nil {
		return Dashboard{}, err
	}
	recent, err := s.Store.Tasks().ListRecentTasks(ctx, userID, dashboardRecentLimit)
	if err != nil {
		return Dashboard{}, err
	}
	upcoming, err := s.Store.Tasks().ListUpcomingTasks(ctx, userID, today, dashboardUpcomingLimit)
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		Stats:          stats,
		CompletionRate: stats.CompletionRate(),
		Recent:         recent,
		Upcoming:       upcoming,
	}, nil
}
