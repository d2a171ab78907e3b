package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/session"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

const (
	msgServerError  = "Something went wrong. Please try again."
	msgInvalidInput = "Please correct the errors below."
	msgNotFound     = "The requested resource was not found."
)

type ctxKey int

const currentUserKey ctxKey = iota

func withCurrentUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}

// currentUser returns the logged in user loaded for this request, or nil.
// userToday is the current day in the signed-in user's timezone.
func userToday(r *http.Request, c service.Clock) time.Time {
	var tz string
	if u := currentUser(r); u != nil {
		tz = u.Timezone
	}
	return c.Today(tz)
}

func currentUser(r *http.Request) *domain.User {
	u, _ := r.Context().Value(currentUserKey).(*domain.User)
	return u
}

// viewModel is what a template would receive. Reading it consumes the
// session's flashes, old input and validation errors.
type viewModel struct {
	Page      string              `json:"page"`
	Title     string              `json:"title"`
	CSRFToken string              `json:"csrf_token"`
	User      *userView           `json:"user,omitempty"`
	Flashes   map[string]string   `json:"flashes"`
	Errors    map[string][]string `json:"errors"`
	Old       map[string]string   `json:"old"`
	Data      any                 `json:"data,omitempty"`
}

// envelope is the body of API style responses.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

type toast struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// render writes the view model of a page.
func render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	s := session.FromContext(r.Context())

	token, err := s.CSRFToken()
	if err != nil {
		serverError(w, r, err, "")
		return
	}

	vm := viewModel{
		Page:      page,
		Title:     title,
		CSRFToken: token,
		Flashes:   s.Flashes(),
		Errors:    s.Errors(),
		Old:       s.OldInput(),
		Data:      data,
	}
	if u := currentUser(r); u != nil {
		vm.User = newUserView(*u)
	}
	httpx.WriteJSON(w, status, vm)
}

// succeed reports a completed form submission: JSON clients get an
// envelope, browsers a flash and a redirect.
func succeed(w http.ResponseWriter, r *http.Request, status int, message, redirect string, data any) {
	if httpx.WantsJSON(r) {
		if httpx.IsHTMX(r) && message != "" {
			httpx.Trigger(w, "showToast", toast{Type: session.FlashSuccess, Message: message})
		}
		httpx.WriteJSON(w, status, envelope{Success: true, Message: message, Data: data})
		return
	}
	if message != "" {
		session.FromContext(r.Context()).Flash(session.FlashSuccess, message)
	}
	httpx.Redirect(w, r, redirect)
}

// fail reports a rejected submission with a single message.
func fail(w http.ResponseWriter, r *http.Request, status int, message, back string) {
	if httpx.WantsJSON(r) {
		if httpx.IsHTMX(r) {
			httpx.Trigger(w, "showToast", toast{Type: session.FlashError, Message: message})
		}
		httpx.WriteJSON(w, status, envelope{Success: false, Message: message})
		return
	}
	s := session.FromContext(r.Context())
	s.Flash(session.FlashError, message)
	s.FlashInput(r.PostForm)
	httpx.Redirect(w, r, back)
}

// invalid sends field errors back to the form.
func invalid(w http.ResponseWriter, r *http.Request, errs service.ValidationErrors, back string) {
	if httpx.WantsJSON(r) {
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, envelope{
			Success: false,
			Message: msgInvalidInput,
			Errors:  errs,
		})
		return
	}
	s := session.FromContext(r.Context())
	s.FlashErrors(errs)
	s.FlashInput(r.PostForm)
	httpx.Redirect(w, r, back)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		httpx.WriteJSON(w, http.StatusNotFound, envelope{Success: false, Message: msgNotFound})
		return
	}
	render(w, r, http.StatusNotFound, "errors/404", "Page Not Found", nil)
}

// serverError logs err and answers with the generic message. Browser form
// posts are sent back to back with a flash; everything else gets a 500.
func serverError(w http.ResponseWriter, r *http.Request, err error, back string) {
	slogx.FromContext(r.Context()).Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)

	if back == "" || httpx.WantsJSON(r) || r.Method == http.MethodGet {
		httpx.WriteJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: msgServerError})
		return
	}
	session.FromContext(r.Context()).Flash(session.FlashError, msgServerError)
	httpx.Redirect(w, r, back)
}

// isNotFound matches every "row does not exist for this user" error.
func isNotFound(err error) bool {
	return errors.Is(err, service.ErrTaskNotFound) ||
		errors.Is(err, service.ErrSubTaskNotFound) ||
		errors.Is(err, service.ErrCategoryNotFound) ||
		errors.Is(err, service.ErrUserNotFound)
}

// handleError maps a service error to a response.
func handleError(w http.ResponseWriter, r *http.Request, err error, back string) {
	var verrs service.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		invalid(w, r, verrs, back)
	case isNotFound(err):
		notFound(w, r)
	case errors.Is(err, service.ErrCategoryNameTaken):
		invalid(w, r, service.ValidationErrors{"name": {"A category with this name already exists"}}, back)
	case errors.Is(err, service.ErrEmailTaken):
		invalid(w, r, service.ValidationErrors{"email": {"An account with this email address already exists"}}, back)
	default:
		serverError(w, r, err, back)
	}
}

// parseInput reads the submitted form or JSON body.
func parseInput(w http.ResponseWriter, r *http.Request) bool {
	if err := httpx.ParseInput(r); err != nil {
		if httpx.WantsJSON(r) {
			httpx.WriteJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Invalid request body."})
		} else {
			http.Error(w, "Invalid request body.", http.StatusBadRequest)
		}
		return false
	}
	return true
}

// backOr returns the local part of the Referer when it points back at this
// host, or fallback.
func backOr(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || !strings.HasPrefix(ref.Path, "/") || (ref.Host != "" && ref.Host != r.Host) {
		return fallback
	}
	return ref.RequestURI()
}
