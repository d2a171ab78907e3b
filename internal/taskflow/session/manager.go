package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/cryptox"
	"github.com/aussiebroadwan/taskflow/pkg/jwtx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

const (
	CookieName      = "taskflow_session"
	DefaultLifetime = 120 * time.Minute

	// touchInterval bounds how often an unchanged session is rewritten to
	// slide its expiry.
	touchInterval = time.Minute
)

// Codec turns a session id into a cookie value and back.
type Codec interface {
	Sign(jwtx.Claims) (string, error)
	Verify(string) (jwtx.Claims, error)
}

type Manager struct {
	Store    store.Sessions
	Codec    Codec
	Issuer   string
	Lifetime time.Duration
	Secure   bool
	Now      func() time.Time
}

func NewManager(sessions store.Sessions, codec Codec, issuer string, lifetime time.Duration, secure bool) *Manager {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Manager{
		Store:    sessions,
		Codec:    codec,
		Issuer:   issuer,
		Lifetime: lifetime,
		Secure:   secure,
		Now:      time.Now,
	}
}

func (m *Manager) now() time.Time { return m.Now().UTC() }

// Load returns the session referenced by the request cookie, or a new empty
// session when the cookie is missing, invalid or expired.
func (m *Manager) Load(r *http.Request) *Session {
	now := m.now()

	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return newSession(now)
	}

	claims, err := m.Codec.Verify(c.Value)
	if err != nil {
		slogx.FromContext(r.Context()).Debug("session cookie rejected", slog.Any("error", err))
		return newSession(now)
	}

	row, err := m.Store.GetSession(r.Context(), cryptox.FingerprintToken(claims.SID), now)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(r.Context()).Error("failed to load session", slog.Any("error", err))
		}
		return newSession(now)
	}

	s := &Session{
		id:        claims.SID,
		createdAt: row.CreatedAt,
		savedAt:   row.UpdatedAt,
		persisted: true,
	}
	if err := json.Unmarshal(row.Data, &s.data); err != nil {
		slogx.FromContext(r.Context()).Warn("discarding corrupt session", slog.Any("error", err))
		return newSession(now)
	}
	return s
}

// Commit persists s if needed and writes the cookie header. It must run
// before the response status is written.
func (m *Manager) Commit(ctx context.Context, w http.ResponseWriter, s *Session) error {
	now := m.now()

	for _, fp := range s.stale {
		if err := m.Store.DeleteSession(ctx, fp); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	s.stale = nil

	if !s.needsSave(now) {
		if s.destroyed && !s.persisted {
			m.clearCookie(w)
		}
		return nil
	}

	if s.id == "" {
		id, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return err
		}
		s.id = id
	}

	data, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	expiresAt := now.Add(m.Lifetime)
	err = m.Store.SaveSession(ctx, domain.Session{
		ID:        cryptox.FingerprintToken(s.id),
		Data:      data,
		ExpiresAt: expiresAt,
		CreatedAt: s.createdAt,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	token, err := m.Codec.Sign(jwtx.NewSessionClaims(s.id, m.Issuer, m.Lifetime, now))
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(m.Lifetime.Seconds()),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	s.persisted = true
	s.dirty = false
	s.savedAt = now
	return nil
}

// needsSave reports whether the row must be written. Brand new sessions are
// only stored once something is put in them.
func (s *Session) needsSave(now time.Time) bool {
	if s.dirty {
		return true
	}
	return s.persisted && now.Sub(s.savedAt) >= touchInterval
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
