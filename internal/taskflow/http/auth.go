package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/session"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

const (
	msgTooManyAttempts    = "Too many login attempts. Please try again in 15 minutes."
	msgInvalidCredentials = "Invalid email or password."
	msgEmailNotVerified   = "Please verify your email address before logging in."
	msgRegistered         = "Registration successful! Please check your email to verify your account."
	msgLoggedOut          = "You have been logged out."
	msgInvalidVerifyToken = "Invalid verification token."
	msgEmailVerified      = "Email verified successfully! You can now log in."
	msgVerificationResent = "If an unverified account with that email exists, we've sent a new verification link."
	msgResetRequested     = "If an account with that email exists, we've sent a password reset link."
	msgInvalidResetLink   = "Invalid or expired reset link."
	msgPasswordReset      = "Password reset successful! You can now log in."
	msgInvalidEmail       = "Please enter a valid email address."
)

// AuthHandler serves registration, login and the email based account
// recovery flows.
type AuthHandler struct {
	AuthService *service.AuthService
	Cookies     cookieJar
	Clock       service.Clock
}

// checked reports whether a checkbox style field was ticked.
func checked(r *http.Request, field string) bool {
	switch strings.ToLower(r.PostFormValue(field)) {
	case "", "0", "false", "off":
		return false
	}
	return true
}

func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, "auth/login", "Login", nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseInput(w, r) {
		return
	}

	res, err := h.AuthService.Login(r.Context(), service.LoginInput{
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
		Remember:  checked(r, "remember_me") || checked(r, "remember"),
		IPAddress: httpx.IPKeyExtractor(r),
		UserAgent: r.UserAgent(),
	})

	var verrs service.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		invalid(w, r, verrs, "/login")
		return
	case errors.Is(err, service.ErrTooManyAttempts):
		fail(w, r, http.StatusTooManyRequests, msgTooManyAttempts, "/login")
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		fail(w, r, http.StatusUnauthorized, msgInvalidCredentials, "/login")
		return
	case errors.Is(err, service.ErrEmailNotVerified):
		fail(w, r, http.StatusForbidden, msgEmailNotVerified, "/login")
		return
	case err != nil:
		serverError(w, r, err, "/login")
		return
	}

	s := session.FromContext(r.Context())
	if err := s.SetUser(res.User.ID, h.Clock.Now()); err != nil {
		serverError(w, r, err, "/login")
		return
	}
	if res.Remember != nil {
		h.Cookies.setRemember(w, res.Remember)
	}

	target := s.PopIntendedURL()
	if target == "" {
		target = "/dashboard"
	}
	if httpx.WantsJSON(r) && !httpx.IsHTMX(r) {
		httpx.WriteJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{"redirect": target}})
		return
	}
	httpx.Redirect(w, r, target)
}

func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, "auth/register", "Register", nil)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !parseInput(w, r) {
		return
	}

	_, err := h.AuthService.Register(r.Context(), service.RegisterInput{
		FirstName:            r.PostFormValue("first_name"),
		LastName:             r.PostFormValue("last_name"),
		Email:                r.PostFormValue("email"),
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
		AgreeTerms:           checked(r, "agree_terms"),
	})
	if err != nil {
		handleError(w, r, err, "/register")
		return
	}
	succeed(w, r, http.StatusCreated, msgRegistered, "/login", nil)
}

// VerifyEmail consumes the link from the verification mail. A bad link
// renders a page offering to resend it.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	token := r.URL.Query().Get("token")
	if token == "" {
		s.Flash(session.FlashError, msgInvalidVerifyToken)
		httpx.Redirect(w, r, "/login")
		return
	}

	_, err := h.AuthService.VerifyEmail(r.Context(), token)
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		render(w, r, http.StatusBadRequest, "auth/verify-email", "Verify Email", map[string]any{
			"message":     "This verification link is invalid or has expired.",
			"show_resend": true,
		})
		return
	case err != nil:
		serverError(w, r, err, "")
		return
	}

	s.Flash(session.FlashSuccess, msgEmailVerified)
	httpx.Redirect(w, r, "/login")
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if !parseInput(w, r) {
		return
	}

	err := h.AuthService.ResendVerification(r.Context(), r.PostFormValue("email"))
	var verrs service.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		fail(w, r, http.StatusUnprocessableEntity, msgInvalidEmail, "/login")
		return
	case err != nil:
		serverError(w, r, err, "/login")
		return
	}
	succeed(w, r, http.StatusOK, msgVerificationResent, "/login", nil)
}

func (h *AuthHandler) ShowForgotPassword(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, "auth/forgot-password", "Forgot Password", nil)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if !parseInput(w, r) {
		return
	}

	err := h.AuthService.RequestPasswordReset(r.Context(), r.PostFormValue("email"))
	var verrs service.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		fail(w, r, http.StatusUnprocessableEntity, msgInvalidEmail, "/forgot-password")
		return
	case err != nil:
		serverError(w, r, err, "/forgot-password")
		return
	}
	succeed(w, r, http.StatusOK, msgResetRequested, "/login", nil)
}

func (h *AuthHandler) ShowResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	email, err := h.AuthService.CheckResetToken(r.Context(), token)
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		session.FromContext(r.Context()).Flash(session.FlashError, msgInvalidResetLink)
		httpx.Redirect(w, r, "/forgot-password")
		return
	case err != nil:
		serverError(w, r, err, "")
		return
	}

	render(w, r, http.StatusOK, "auth/reset-password", "Reset Password", map[string]string{
		"token": token,
		"email": email,
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if !parseInput(w, r) {
		return
	}
	token := r.PostFormValue("token")
	back := "/reset-password?token=" + url.QueryEscape(token)

	err := h.AuthService.ResetPassword(r.Context(), token,
		r.PostFormValue("password"),
		r.PostFormValue("password_confirmation"),
	)
	var verrs service.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		invalid(w, r, verrs, back)
		return
	case errors.Is(err, service.ErrInvalidToken):
		fail(w, r, http.StatusBadRequest, msgInvalidResetLink, "/forgot-password")
		return
	case err != nil:
		serverError(w, r, err, back)
		return
	}
	succeed(w, r, http.StatusOK, msgPasswordReset, "/login", nil)
}

// Logout forgets remembered devices and starts a fresh session that only
// carries the goodbye flash.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	if u := currentUser(r); u != nil {
		if err := h.AuthService.Logout(r.Context(), u.ID); err != nil {
			slogx.FromContext(r.Context()).Error("failed to delete remember tokens", slog.Any("error", err))
		}
	}
	h.Cookies.clearRemember(w)
	s.Destroy(h.Clock.Now())

	succeed(w, r, http.StatusOK, msgLoggedOut, "/login", nil)
}
