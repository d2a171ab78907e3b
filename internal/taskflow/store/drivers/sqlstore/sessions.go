package sqlstore

import (
	"context"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

type sessionsRepo struct{ q queries }

func (r *sessionsRepo) GetSession(ctx context.Context, id string, now time.Time) (domain.Session, error) {
	var s domain.Session
	err := r.q.queryRow(ctx, `
		SELECT id, data, expires_at, created_at, updated_at
		FROM sessions
		WHERE id = ? AND expires_at > ?`,
		id, now.UTC(),
	).Scan(&s.ID, &s.Data, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.ExpiresAt = s.ExpiresAt.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (r *sessionsRepo) SaveSession(ctx context.Context, s domain.Session) error {
	_, err := r.q.exec(ctx, `
		INSERT INTO sessions (id, data, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET data = excluded.data,
		    expires_at = excluded.expires_at,
		    updated_at = excluded.updated_at`,
		s.ID, s.Data, s.ExpiresAt.UTC(), s.CreatedAt.UTC(), s.UpdatedAt.UTC())
	return err
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, id string) error {
	_, err := r.q.exec(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return r.q.execCount(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
}
