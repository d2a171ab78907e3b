// Package session implements server side sessions for TaskFlow.
//
// Session state lives in the sessions table keyed by the fingerprint of a
// random session id. The browser only holds a signed cookie carrying the
// raw id, so a leaked database row cannot be replayed as a cookie.
package session

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskflow/pkg/cryptox"
)

// Flash kinds used across the application.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// Data is the persisted session payload.
type Data struct {
	UserID      string              `json:"user_id,omitempty"`
	LoginTime   time.Time           `json:"login_time,omitzero"`
	CSRFToken   string              `json:"csrf_token,omitempty"`
	Flash       map[string]string   `json:"flash,omitempty"`
	OldInput    map[string]string   `json:"old_input,omitempty"`
	Errors      map[string][]string `json:"errors,omitempty"`
	IntendedURL string              `json:"intended_url,omitempty"`
}

// Session is the per request view of a session. It is not safe for
// concurrent use; one request owns it.
type Session struct {
	id        string // raw id from the cookie, empty until issued
	data      Data
	createdAt time.Time
	savedAt   time.Time

	persisted bool
	dirty     bool
	destroyed bool

	// fingerprints of rows to delete on commit (regenerate, destroy)
	stale []string
}

func newSession(now time.Time) *Session {
	return &Session{createdAt: now}
}

// UserID returns the logged in user, or "".
func (s *Session) UserID() string { return s.data.UserID }

func (s *Session) IsAuthenticated() bool { return s.data.UserID != "" }

func (s *Session) LoginTime() time.Time { return s.data.LoginTime }

// SetUser logs userID in. The session id and CSRF token are replaced so a
// pre-login id cannot be fixed by an attacker.
func (s *Session) SetUser(userID string, now time.Time) error {
	s.Regenerate()
	s.data.UserID = userID
	s.data.LoginTime = now.UTC()
	s.dirty = true
	return s.RegenerateCSRF()
}

// ClearUser logs the user out but keeps the rest of the session.
func (s *Session) ClearUser() {
	if s.data.UserID == "" {
		return
	}
	s.data.UserID = ""
	s.data.LoginTime = time.Time{}
	s.dirty = true
}

// Regenerate moves the session to a fresh id. The old row is deleted when
// the session is committed.
func (s *Session) Regenerate() {
	if s.persisted && s.id != "" {
		s.stale = append(s.stale, cryptox.FingerprintToken(s.id))
	}
	s.id = ""
	s.persisted = false
	s.dirty = true
}

// Destroy discards all session data and starts an empty session. Anything
// written afterwards, such as a logout flash, lands in the new session.
func (s *Session) Destroy(now time.Time) {
	if s.persisted && s.id != "" {
		s.stale = append(s.stale, cryptox.FingerprintToken(s.id))
	}
	s.id = ""
	s.data = Data{}
	s.createdAt = now
	s.persisted = false
	s.dirty = false
	s.destroyed = true
}

// Flash stores a one-shot message for the next page.
func (s *Session) Flash(kind, message string) {
	if s.data.Flash == nil {
		s.data.Flash = make(map[string]string)
	}
	s.data.Flash[kind] = message
	s.dirty = true
}

// Flashes returns and clears all flash messages.
func (s *Session) Flashes() map[string]string {
	out := s.data.Flash
	if len(out) > 0 {
		s.data.Flash = nil
		s.dirty = true
	}
	if out == nil {
		out = map[string]string{}
	}
	return out
}

// FlashInput keeps submitted form values so the form can be refilled.
// Passwords and form plumbing fields are never kept.
func (s *Session) FlashInput(values url.Values) {
	old := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) == 0 || !keepInput(k) {
			continue
		}
		old[k] = v[0]
	}
	if len(old) == 0 {
		return
	}
	s.data.OldInput = old
	s.dirty = true
}

func keepInput(field string) bool {
	if field == "_token" || field == "_method" {
		return false
	}
	return !strings.Contains(strings.ToLower(field), "password")
}

// OldInput returns and clears the flashed form values.
func (s *Session) OldInput() map[string]string {
	out := s.data.OldInput
	if len(out) > 0 {
		s.data.OldInput = nil
		s.dirty = true
	}
	if out == nil {
		out = map[string]string{}
	}
	return out
}

// FlashErrors stores validation errors (field to messages) for the next page.
func (s *Session) FlashErrors(errs map[string][]string) {
	if len(errs) == 0 {
		return
	}
	s.data.Errors = errs
	s.dirty = true
}

// Errors returns and clears the flashed validation errors.
func (s *Session) Errors() map[string][]string {
	out := s.data.Errors
	if len(out) > 0 {
		s.data.Errors = nil
		s.dirty = true
	}
	if out == nil {
		out = map[string][]string{}
	}
	return out
}

// CSRFToken returns the session's CSRF token, creating one if needed.
func (s *Session) CSRFToken() (string, error) {
	if s.data.CSRFToken == "" {
		if err := s.RegenerateCSRF(); err != nil {
			return "", err
		}
	}
	return s.data.CSRFToken, nil
}

// RegenerateCSRF replaces the CSRF token.
func (s *Session) RegenerateCSRF() error {
	tok, err := cryptox.GenerateHexToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}
	s.data.CSRFToken = tok
	s.dirty = true
	return nil
}

// VerifyCSRF compares token against the session token in constant time.
// A session without a token never verifies.
func (s *Session) VerifyCSRF(token string) bool {
	return cryptox.EqualTokens(s.data.CSRFToken, token)
}

func (s *Session) SetIntendedURL(u string) {
	s.data.IntendedURL = u
	s.dirty = true
}

// PopIntendedURL returns and clears the URL saved before a login redirect.
func (s *Session) PopIntendedURL() string {
	u := s.data.IntendedURL
	if u != "" {
		s.data.IntendedURL = ""
		s.dirty = true
	}
	return u
}

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the request's session. Outside the middleware it
// returns a detached session that is never persisted.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok && s != nil {
		return s
	}
	return newSession(time.Now().UTC())
}
