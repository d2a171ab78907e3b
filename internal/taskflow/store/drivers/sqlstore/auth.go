package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

type loginAttemptsRepo struct{ q queries }

func (r *loginAttemptsRepo) RecordLoginAttempt(ctx context.Context, a domain.LoginAttempt) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO login_attempts (id, email, ip_address, user_agent, success, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, normaliseEmail(a.Email), a.IPAddress, a.UserAgent, a.Success, a.AttemptedAt.UTC())
	return err
}

func (r *loginAttemptsRepo) CountRecentFailures(ctx context.Context, email, ip string, since time.Time) (int, error) {
	return r.q.count(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE (email = ? OR ip_address = ?)
		  AND success = ?
		  AND attempted_at > ?`,
		normaliseEmail(email), ip, false, since.UTC())
}

func (r *loginAttemptsRepo) DeleteLoginAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.q.execCount(ctx, `DELETE FROM login_attempts WHERE attempted_at < ?`, cutoff.UTC())
}

type rememberTokensRepo struct{ q queries }

func (r *rememberTokensRepo) CreateRememberToken(ctx context.Context, t domain.RememberToken) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO remember_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt.UTC(), t.CreatedAt.UTC())
	return err
}

func (r *rememberTokensRepo) GetRememberToken(ctx context.Context, tokenHash string, now time.Time) (domain.RememberToken, error) {
	var t domain.RememberToken
	err := r.q.queryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM remember_tokens
		WHERE token_hash = ? AND expires_at > ?`,
		tokenHash, now.UTC(),
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return domain.RememberToken{}, mapNotFound(err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func (r *rememberTokensRepo) DeleteRememberToken(ctx context.Context, id string) error {
	return r.q.execOne(ctx, `DELETE FROM remember_tokens WHERE id = ?`, id)
}

func (r *rememberTokensRepo) DeleteUserRememberTokens(ctx context.Context, userID string) error {
	_, err := r.q.exec(ctx, `DELETE FROM remember_tokens WHERE user_id = ?`, userID)
	return err
}

func (r *rememberTokensRepo) DeleteExpiredRememberTokens(ctx context.Context, now time.Time) (int64, error) {
	return r.q.execCount(ctx, `DELETE FROM remember_tokens WHERE expires_at <= ?`, now.UTC())
}

type passwordResetsRepo struct{ q queries }

func (r *passwordResetsRepo) CreatePasswordReset(ctx context.Context, pr domain.PasswordReset) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO password_resets (id, email, token_hash, expires_at, used_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		pr.ID, normaliseEmail(pr.Email), pr.TokenHash, pr.ExpiresAt.UTC(),
		mapOptionalTime(pr.UsedAt), pr.CreatedAt.UTC())
	return err
}

func (r *passwordResetsRepo) GetActivePasswordReset(ctx context.Context, tokenHash string, now time.Time) (domain.PasswordReset, error) {
	var (
		pr     domain.PasswordReset
		usedAt sql.NullTime
	)
	err := r.q.queryRow(ctx, `
		SELECT id, email, token_hash, expires_at, used_at, created_at
		FROM password_resets
		WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?`,
		tokenHash, now.UTC(),
	).Scan(&pr.ID, &pr.Email, &pr.TokenHash, &pr.ExpiresAt, &usedAt, &pr.CreatedAt)
	if err != nil {
		return domain.PasswordReset{}, mapNotFound(err)
	}
	pr.UsedAt = mapNullTimePtr(usedAt)
	pr.ExpiresAt = pr.ExpiresAt.UTC()
	pr.CreatedAt = pr.CreatedAt.UTC()
	return pr, nil
}

func (r *passwordResetsRepo) CountPasswordResetsSince(ctx context.Context, email string, since time.Time) (int, error) {
	return r.q.count(ctx,
		`SELECT COUNT(*) FROM password_resets WHERE email = ? AND created_at > ?`,
		normaliseEmail(email), since.UTC())
}

func (r *passwordResetsRepo) MarkPasswordResetsUsed(ctx context.Context, email string, now time.Time) error {
	_, err := r.q.exec(ctx,
		`UPDATE password_resets SET used_at = ? WHERE email = ? AND used_at IS NULL`,
		now.UTC(), normaliseEmail(email))
	return err
}

func (r *passwordResetsRepo) DeleteStalePasswordResets(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.q.execCount(ctx, `DELETE FROM password_resets WHERE created_at < ?`, cutoff.UTC())
}
