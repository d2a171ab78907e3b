package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/mail"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/cryptox"
	"github.com/aussiebroadwan/taskflow/pkg/idx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

const (
	// MaxLoginAttempts failed logins within LoginLockout block further
	// attempts for the email and for the IP address.
	MaxLoginAttempts = 5
	LoginLockout     = 15 * time.Minute

	VerificationTTL  = 24 * time.Hour
	PasswordResetTTL = 60 * time.Minute

	// MaxResetRequests bounds reset mails per email within ResetRequestWindow.
	MaxResetRequests   = 3
	ResetRequestWindow = time.Hour

	DefaultRememberTTL = 30 * 24 * time.Hour
)

type AuthService struct {
	Store       store.Store
	Mailer      mail.Mailer
	BaseURL     string
	RememberTTL time.Duration
	Clock       Clock
}

type RegisterInput struct {
	FirstName            string
	LastName             string
	Email                string
	Password             string
	PasswordConfirmation string
	AgreeTerms           bool
}

type LoginInput struct {
	Email     string
	Password  string
	Remember  bool
	IPAddress string
	UserAgent string
}

// RememberMe is a freshly issued remember-me token. Only its fingerprint is
// stored; Token goes into the cookie.
type RememberMe struct {
	Token     string
	ExpiresAt time.Time
}

type LoginResult struct {
	User     domain.User
	Remember *RememberMe
}

func (s *AuthService) rememberTTL() time.Duration {
	if s.RememberTTL <= 0 {
		return DefaultRememberTTL
	}
	return s.RememberTTL
}

func (s *AuthService) link(path, token string) string {
	return strings.TrimRight(s.BaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// Register creates an unverified account with the default categories and
// mails a verification link. Mail failures are logged, not returned.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	log := slogx.FromContext(ctx)
	now := s.Clock.Now()

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)

	errs := ValidationErrors{}
	requireName(errs, "first_name", "First name", in.FirstName)
	requireName(errs, "last_name", "Last name", in.LastName)
	requireEmail(errs, "email", in.Email)
	if !errs.Has("email") {
		taken, err := s.Store.Users().EmailExists(ctx, in.Email, "")
		if err != nil {
			return domain.User{}, err
		}
		if taken {
			errs.Add("email", "An account with this email address already exists")
		}
	}
	requireNewPassword(errs, in.Password, in.PasswordConfirmation)
	if !in.AgreeTerms {
		errs.Add("agree_terms", "You must agree to the Terms of Service and Privacy Policy")
	}
	if err := errs.Err(); err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.User{}, err
	}
	expires := now.Add(VerificationTTL)

	user := domain.User{
		ID:                    idx.New().String(),
		FirstName:             in.FirstName,
		LastName:              in.LastName,
		Email:                 normaliseEmail(in.Email),
		PasswordHash:          hash,
		VerificationTokenHash: cryptox.FingerprintToken(token),
		VerificationExpiresAt: &expires,
		ThemePreference:       domain.ThemeAuto,
		Timezone:              "UTC",
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			return err
		}
		return seedDefaultCategories(ctx, tx, user.ID, now)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ValidationErrors{"email": {"An account with this email address already exists"}}
		}
		log.Error("failed to create user", slog.Any("error", err))
		return domain.User{}, err
	}

	log.Info("user registered", slog.String("user_id", user.ID))

	if err := s.Mailer.SendVerification(ctx, user.Email, user.FirstName, s.link("/verify-email", token)); err != nil {
		log.Error("failed to send verification email",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
	return user, nil
}

// Login checks credentials. Every outcome past validation is written to the
// login attempt log, which drives the lockout.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	log := slogx.FromContext(ctx)
	now := s.Clock.Now()
	in.Email = strings.TrimSpace(in.Email)

	errs := ValidationErrors{}
	requireEmail(errs, "email", in.Email)
	if in.Password == "" {
		errs.Add("password", "Password is required")
	}
	if err := errs.Err(); err != nil {
		return LoginResult{}, err
	}

	failures, err := s.Store.LoginAttempts().CountRecentFailures(ctx, in.Email, in.IPAddress, now.Add(-LoginLockout))
	if err != nil {
		return LoginResult{}, err
	}
	if failures >= MaxLoginAttempts {
		log.Warn("login locked out",
			slog.String("email", normaliseEmail(in.Email)),
			slog.String("ip", in.IPAddress),
			slog.Int("failures", failures),
		)
		return LoginResult{}, ErrTooManyAttempts
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return LoginResult{}, s.failLogin(ctx, in, now, ErrInvalidCredentials)
	case err != nil:
		return LoginResult{}, err
	}

	if err := cryptox.VerifyPassword(in.Password, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Error("failed to verify password", slog.String("user_id", user.ID), slog.Any("error", err))
		}
		return LoginResult{}, s.failLogin(ctx, in, now, ErrInvalidCredentials)
	}

	if !user.IsVerified() {
		return LoginResult{}, s.failLogin(ctx, in, now, ErrEmailNotVerified)
	}

	if err := s.recordAttempt(ctx, in, now, true); err != nil {
		return LoginResult{}, err
	}

	result := LoginResult{User: user}
	if in.Remember {
		rm, err := s.issueRememberToken(ctx, user.ID, now)
		if err != nil {
			return LoginResult{}, err
		}
		result.Remember = rm
	}

	log.Info("user logged in", slog.String("user_id", user.ID), slog.Bool("remember", in.Remember))
	return result, nil
}

func (s *AuthService) failLogin(ctx context.Context, in LoginInput, now time.Time, reason error) error {
	if err := s.recordAttempt(ctx, in, now, false); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("login failed",
		slog.String("email", normaliseEmail(in.Email)),
		slog.String("ip", in.IPAddress),
		slog.String("reason", reason.Error()),
	)
	return reason
}

func (s *AuthService) recordAttempt(ctx context.Context, in LoginInput, now time.Time, success bool) error {
	return s.Store.LoginAttempts().RecordLoginAttempt(ctx, domain.LoginAttempt{
		ID:          idx.New().String(),
		Email:       in.Email,
		IPAddress:   in.IPAddress,
		UserAgent:   in.UserAgent,
		Success:     success,
		AttemptedAt: now,
	})
}

// issueRememberToken replaces every remember-me token of the user with a
// new one.
func (s *AuthService) issueRememberToken(ctx context.Context, userID string, now time.Time) (*RememberMe, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	rm := &RememberMe{Token: token, ExpiresAt: now.Add(s.rememberTTL())}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RememberTokens().DeleteUserRememberTokens(ctx, userID); err != nil {
			return err
		}
		return tx.RememberTokens().CreateRememberToken(ctx, domain.RememberToken{
			ID:        idx.New().String(),
			UserID:    userID,
			TokenHash: cryptox.FingerprintToken(token),
			ExpiresAt: rm.ExpiresAt,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return rm, nil
}

// ResumeSession logs a user back in from a remember-me cookie. The token is
// single use: a replacement is returned for the cookie.
func (s *AuthService) ResumeSession(ctx context.Context, token string) (domain.User, *RememberMe, error) {
	now := s.Clock.Now()
	if token == "" {
		return domain.User{}, nil, ErrInvalidToken
	}

	rt, err := s.Store.RememberTokens().GetRememberToken(ctx, cryptox.FingerprintToken(token), now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, nil, ErrInvalidToken
		}
		return domain.User{}, nil, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, nil, ErrInvalidToken
		}
		return domain.User{}, nil, err
	}
	if !user.IsVerified() {
		return domain.User{}, nil, ErrInvalidToken
	}

	rm, err := s.issueRememberToken(ctx, user.ID, now)
	if err != nil {
		return domain.User{}, nil, err
	}

	slogx.FromContext(ctx).Info("session resumed from remember token", slog.String("user_id", user.ID))
	return user, rm, nil
}

// Logout forgets every remember-me token of the user.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return s.Store.RememberTokens().DeleteUserRememberTokens(ctx, userID)
}

// VerifyEmail marks the account owning token as verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (domain.User, error) {
	now := s.Clock.Now()
	if token == "" {
		return domain.User{}, ErrInvalidToken
	}

	user, err := s.Store.Users().GetUserByVerificationToken(ctx, cryptox.FingerprintToken(token), now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidToken
		}
		return domain.User{}, err
	}

	if err := s.Store.Users().MarkEmailVerified(ctx, user.ID, now); err != nil {
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("email verified", slog.String("user_id", user.ID))
	user.EmailVerifiedAt = &now
	user.VerificationTokenHash = ""
	user.VerificationExpiresAt = nil
	return user, nil
}

// ResendVerification issues a new link if email belongs to an unverified
// account. Callers cannot tell whether it did.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)
	now := s.Clock.Now()
	email = strings.TrimSpace(email)

	errs := ValidationErrors{}
	requireEmail(errs, "email", email)
	if err := errs.Err(); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.IsVerified() {
		return nil
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}
	if err := s.Store.Users().SetVerificationToken(ctx, user.ID, cryptox.FingerprintToken(token), now.Add(VerificationTTL), now); err != nil {
		return err
	}

	if err := s.Mailer.SendVerification(ctx, user.Email, user.FirstName, s.link("/verify-email", token)); err != nil {
		log.Error("failed to send verification email", slog.String("user_id", user.ID), slog.Any("error", err))
	}
	return nil
}

// RequestPasswordReset mails a reset link when email belongs to an account
// and the per-email request limit has not been reached. The outcome is the
// same either way to avoid revealing which emails are registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)
	now := s.Clock.Now()
	email = strings.TrimSpace(email)

	errs := ValidationErrors{}
	requireEmail(errs, "email", email)
	if err := errs.Err(); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	recent, err := s.Store.PasswordResets().CountPasswordResetsSince(ctx, user.Email, now.Add(-ResetRequestWindow))
	if err != nil {
		return err
	}
	if recent >= MaxResetRequests {
		log.Warn("password reset limit reached", slog.String("user_id", user.ID))
		return nil
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}
	err = s.Store.PasswordResets().CreatePasswordReset(ctx, domain.PasswordReset{
		ID:        idx.New().String(),
		Email:     user.Email,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: now.Add(PasswordResetTTL),
		CreatedAt: now,
	})
	if err != nil {
		return err
	}

	if err := s.Mailer.SendPasswordReset(ctx, user.Email, s.link("/reset-password", token)); err != nil {
		log.Error("failed to send password reset email", slog.String("user_id", user.ID), slog.Any("error", err))
	}
	return nil
}

// CheckResetToken returns the email an unused, unexpired reset token was
// issued for.
func (s *AuthService) CheckResetToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	pr, err := s.Store.PasswordResets().GetActivePasswordReset(ctx, cryptox.FingerprintToken(token), s.Clock.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	return pr.Email, nil
}

// ResetPassword sets a new password using a reset token. All outstanding
// resets for the email are consumed and remember-me tokens are revoked.
func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirmation string) error {
	now := s.Clock.Now()

	errs := ValidationErrors{}
	requireNewPassword(errs, password, confirmation)
	if err := errs.Err(); err != nil {
		return err
	}

	email, err := s.CheckResetToken(ctx, token)
	if err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash, now); err != nil {
			return err
		}
		if err := tx.PasswordResets().MarkPasswordResetsUsed(ctx, email, now); err != nil {
			return err
		}
		return tx.RememberTokens().DeleteUserRememberTokens(ctx, user.ID)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password reset", slog.String("user_id", user.ID))
	return nil
}
