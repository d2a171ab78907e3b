package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/cryptox"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

type ProfileService struct {
	Store store.Store
	Clock Clock
}

type Profile struct {
	User  domain.User
	Stats domain.TaskStats
}

type ProfileInput struct {
	FirstName       string
	LastName        string
	Email           string
	ThemePreference string
	Timezone        string
}

func (s *ProfileService) user(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

func (s *ProfileService) Show(ctx context.Context, userID string) (Profile, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	stats, err := s.Store.Tasks().TaskStats(ctx, userID, s.Clock.Now())
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: u, Stats: stats}, nil
}

// Update changes the profile fields. Changing the email keeps the account's
// verified state.
func (s *ProfileService) Update(ctx context.Context, userID string, in ProfileInput) (domain.User, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	if in.ThemePreference == "" {
		in.ThemePreference = u.ThemePreference
	}
	if in.Timezone == "" {
		in.Timezone = u.Timezone
	}

	errs := ValidationErrors{}
	requireName(errs, "first_name", "First name", in.FirstName)
	requireName(errs, "last_name", "Last name", in.LastName)
	requireEmail(errs, "email", in.Email)
	if !errs.Has("email") {
		taken, err := s.Store.Users().EmailExists(ctx, in.Email, userID)
		if err != nil {
			return domain.User{}, err
		}
		if taken {
			errs.Add("email", "An account with this email address already exists")
		}
	}
	if !domain.ValidTheme(in.ThemePreference) {
		errs.Add("theme_preference", "Please select a valid theme")
	}
	if _, err := time.LoadLocation(in.Timezone); err != nil || in.Timezone == "Local" {
		errs.Add("timezone", "Please select a valid timezone")
	}
	if err := errs.Err(); err != nil {
		return domain.User{}, err
	}

	update := domain.ProfileUpdate{
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Email:           normaliseEmail(in.Email),
		ThemePreference: in.ThemePreference,
		Timezone:        in.Timezone,
	}
	now := s.Clock.Now()
	if err := s.Store.Users().UpdateProfile(ctx, userID, update, now); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	u.FirstName = update.FirstName
	u.LastName = update.LastName
	u.Email = update.Email
	u.ThemePreference = update.ThemePreference
	u.Timezone = update.Timezone
	u.UpdatedAt = now
	return u, nil
}

// ChangePassword requires the current password and signs out remembered
// devices.
func (s *ProfileService) ChangePassword(ctx context.Context, userID, current, password, confirmation string) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}

	errs := ValidationErrors{}
	if current == "" {
		errs.Add("current_password", "Current password is required")
	} else if err := cryptox.VerifyPassword(current, u.PasswordHash); err != nil {
		errs.Add("current_password", "Current password is incorrect")
	}
	requireNewPassword(errs, password, confirmation)
	if err := errs.Err(); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}

	now := s.Clock.Now()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash, now); err != nil {
			return err
		}
		return tx.RememberTokens().DeleteUserRememberTokens(ctx, userID)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password changed", slog.String("user_id", userID))
	return nil
}

// DeleteAccount soft deletes the user after checking their password.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID, password string) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}

	if password == "" {
		return ValidationErrors{"password": {"Password is required"}}
	}
	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		return ValidationErrors{"password": {"Password is incorrect"}}
	}

	now := s.Clock.Now()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SoftDeleteUser(ctx, userID, now); err != nil {
			return err
		}
		return tx.RememberTokens().DeleteUserRememberTokens(ctx, userID)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("account deleted", slog.String("user_id", userID))
	return nil
}
