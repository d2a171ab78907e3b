package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

type usersRepo struct{ q queries }

const userColumns = `id, first_name, last_name, email, password_hash, email_verified_at,
	verification_token_hash, verification_expires_at, theme_preference, timezone,
	deleted_at, created_at, updated_at`

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u                  domain.User
		verifiedAt         sql.NullTime
		tokenHash          sql.NullString
		verificationExpiry sql.NullTime
		deletedAt          sql.NullTime
	)

	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.PasswordHash,
		&verifiedAt,
		&tokenHash,
		&verificationExpiry,
		&u.ThemePreference,
		&u.Timezone,
		&deletedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.EmailVerifiedAt = mapNullTimePtr(verifiedAt)
	u.VerificationTokenHash = mapNullString(tokenHash)
	u.VerificationExpiresAt = mapNullTimePtr(verificationExpiry)
	u.DeletedAt = mapNullTimePtr(deletedAt)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.q.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND deleted_at IS NULL`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.q.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND deleted_at IS NULL`,
		normaliseEmail(email)))
}

func (r *usersRepo) EmailExists(ctx context.Context, email, excludeID string) (bool, error) {
	n, err := r.q.count(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ? AND id <> ? AND deleted_at IS NULL`,
		normaliseEmail(email), excludeID)
	return n > 0, err
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.FirstName,
		u.LastName,
		normaliseEmail(u.Email),
		u.PasswordHash,
		mapOptionalTime(u.EmailVerifiedAt),
		mapStringNull(u.VerificationTokenHash),
		mapOptionalTime(u.VerificationExpiresAt),
		u.ThemePreference,
		u.Timezone,
		mapOptionalTime(u.DeletedAt),
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
	)
	return err
}

func (r *usersRepo) SetVerificationToken(ctx context.Context, userID, tokenHash string, expiresAt, now time.Time) error {
	return r.q.execOne(ctx, `
		UPDATE users
		SET verification_token_hash = ?, verification_expires_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		tokenHash, expiresAt.UTC(), now.UTC(), userID)
}

func (r *usersRepo) GetUserByVerificationToken(ctx context.Context, tokenHash string, now time.Time) (domain.User, error) {
	return scanUser(r.q.queryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE verification_token_hash = ?
		  AND verification_expires_at > ?
		  AND email_verified_at IS NULL
		  AND deleted_at IS NULL`,
		tokenHash, now.UTC()))
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, userID string, now time.Time) error {
	return r.q.execOne(ctx, `
		UPDATE users
		SET email_verified_at = ?, verification_token_hash = NULL,
		    verification_expires_at = NULL, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		now.UTC(), now.UTC(), userID)
}

func (r *usersRepo) UpdateProfile(ctx context.Context, userID string, p domain.ProfileUpdate, now time.Time) error {
	return r.q.execOne(ctx, `
		UPDATE users
		SET first_name = ?, last_name = ?, email = ?, theme_preference = ?,
		    timezone = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		p.FirstName, p.LastName, normaliseEmail(p.Email), p.ThemePreference,
		p.Timezone, now.UTC(), userID)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		hash, now.UTC(), userID)
}

func (r *usersRepo) SoftDeleteUser(ctx context.Context, userID string, now time.Time) error {
	return r.q.execOne(ctx,
		`UPDATE users SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now.UTC(), now.UTC(), userID)
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
