package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
)

const (
	DefaultHousekeepingInterval  = time.Hour
	DefaultTrashRetention        = 30 * 24 * time.Hour
	DefaultLoginAttemptRetention = 30 * 24 * time.Hour

	// Reset rows are useless an hour after creation; keep a day for auditing.
	passwordResetRetention = 24 * time.Hour
)

// HousekeepingService periodically removes expired sessions, tokens and
// login attempts, and purges tasks that have sat in the trash too long.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// TrashRetention of zero keeps trashed tasks forever.
	TrashRetention        time.Duration
	LoginAttemptRetention time.Duration
	Clock                 Clock

	cron *cron.Cron
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to one hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	return &HousekeepingService{
		Store:                 st,
		Logger:                logger,
		Interval:              interval,
		TrashRetention:        DefaultTrashRetention,
		LoginAttemptRetention: DefaultLoginAttemptRetention,
	}
}

// Start runs one cleanup immediately and then schedules it every Interval.
// Call Stop to shut the scheduler down.
func (s *HousekeepingService) Start() error {
	seconds := int(s.Interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), func() {
		s.RunOnce(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule housekeeping: %w", err)
	}

	s.RunOnce(context.Background())
	s.cron.Start()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
	return nil
}

// Stop waits for a running cleanup to finish.
func (s *HousekeepingService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.Logger.Info("housekeeping service stopped")
}

// RunOnce performs a single cleanup pass. Steps are independent; a failing
// step is logged and the rest still run. It returns the number of steps
// that succeeded.
func (s *HousekeepingService) RunOnce(ctx context.Context) int {
	now := s.Clock.Now()
	s.Logger.Info("starting housekeeping cleanup")

	steps := []cleanupStep{
		{"expired sessions", func() (int64, error) {
			return s.Store.Sessions().DeleteExpiredSessions(ctx, now)
		}},
		{"expired remember tokens", func() (int64, error) {
			return s.Store.RememberTokens().DeleteExpiredRememberTokens(ctx, now)
		}},
		{"stale password resets", func() (int64, error) {
			return s.Store.PasswordResets().DeleteStalePasswordResets(ctx, now.Add(-passwordResetRetention))
		}},
		{"old login attempts", func() (int64, error) {
			return s.Store.LoginAttempts().DeleteLoginAttemptsBefore(ctx, now.Add(-s.loginAttemptRetention()))
		}},
	}
	if s.TrashRetention > 0 {
		steps = append(steps, cleanupStep{"old trashed tasks", func() (int64, error) {
			return s.Store.Tasks().PurgeDeletedBefore(ctx, now.Add(-s.TrashRetention))
		}})
	}

	var ok int
	for _, step := range steps {
		n, err := step.run()
		if err != nil {
			s.Logger.Error("failed to delete "+step.name, "error", err)
			continue
		}
		s.Logger.Debug("deleted "+step.name, "rows", n)
		ok++
	}

	s.Logger.Info("housekeeping cleanup completed", "successful_cleanups", ok)
	return ok
}

type cleanupStep struct {
	name string
	run  func() (int64, error)
}

func (s *HousekeepingService) loginAttemptRetention() time.Duration {
	if s.LoginAttemptRetention <= 0 {
		return DefaultLoginAttemptRetention
	}
	return s.LoginAttemptRetention
}
