package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/session"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

const (
	RememberCookieName = "remember_token"

	// CSRFHeader carries the token for htmx and fetch requests.
	CSRFHeader = "X-CSRF-Token"
	csrfField  = "_token"
)

// cookieJar writes the remember-me cookie.
type cookieJar struct {
	Secure bool
	Clock  service.Clock
}

func (c cookieJar) setRemember(w http.ResponseWriter, rm *service.RememberMe) {
	http.SetCookie(w, &http.Cookie{
		Name:     RememberCookieName,
		Value:    rm.Token,
		Path:     "/",
		Expires:  rm.ExpiresAt,
		MaxAge:   int(rm.ExpiresAt.Sub(c.Clock.Now()).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookieJar) clearRemember(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RememberCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// rememberMe logs a guest back in from a remember-me cookie and rotates
// the token. Invalid cookies are cleared.
func (rt *Router) rememberMe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := session.FromContext(r.Context())
		c, err := r.Cookie(RememberCookieName)
		if s.IsAuthenticated() || err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, rm, err := rt.AuthService.ResumeSession(r.Context(), c.Value)
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			rt.cookies().clearRemember(w)
		case err != nil:
			slogx.FromContext(r.Context()).Error("failed to resume session", slog.Any("error", err))
		default:
			if err := s.SetUser(user.ID, rt.Clock.Now()); err != nil {
				slogx.FromContext(r.Context()).Error("failed to start session", slog.Any("error", err))
				break
			}
			rt.cookies().setRemember(w, rm)
		}
		next.ServeHTTP(w, r)
	})
}

// loadUser resolves the session user. A session pointing at a missing or
// deleted account is logged out.
func (rt *Router) loadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := session.FromContext(r.Context())
		if !s.IsAuthenticated() {
			next.ServeHTTP(w, r)
			return
		}

		user, err := rt.UserService.GetUserByID(r.Context(), s.UserID())
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			s.ClearUser()
			s.Regenerate()
		case err != nil:
			slogx.FromContext(r.Context()).Error("failed to load current user", slog.Any("error", err))
		default:
			ctx := withCurrentUser(r.Context(), &user)
			ctx = httpx.WithUserID(ctx, user.ID)
			ctx = slogx.WithUserID(ctx, user.ID)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth sends guests to the login page, remembering where they were
// headed.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r) != nil {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodGet && r.URL.Path != "/login" && r.URL.Path != "/logout" {
			session.FromContext(r.Context()).SetIntendedURL(r.URL.RequestURI())
		}
		httpx.Redirect(w, r, "/login")
	})
}

// requireGuest keeps logged in users away from the auth pages.
func requireGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r) != nil {
			httpx.Redirect(w, r, "/dashboard")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// verifyCSRF checks state changing requests against the session token. The
// token is read from the X-CSRF-Token header, then the _token form or JSON
// field.
func verifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get(CSRFHeader)
		if token == "" {
			if err := httpx.ParseInput(r); err == nil {
				token = r.PostForm.Get(csrfField)
			}
		}

		if !session.FromContext(r.Context()).VerifyCSRF(token) {
			slogx.FromContext(r.Context()).Warn("csrf token mismatch",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			const msg = "CSRF token validation failed"
			if httpx.WantsJSON(r) {
				httpx.WriteJSON(w, http.StatusForbidden, envelope{Success: false, Message: msg})
				return
			}
			httpx.NoCache(w)
			http.Error(w, msg, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
