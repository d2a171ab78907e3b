package service

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrSubTaskNotFound  = errors.New("subtask not found")
	ErrUserNotFound     = errors.New("user not found")

	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrTooManyAttempts    = errors.New("too_many_attempts")
	ErrEmailNotVerified   = errors.New("email_not_verified")
	ErrInvalidToken       = errors.New("invalid_token")

	ErrCategoryNameTaken = errors.New("category name already taken")
	ErrEmailTaken        = errors.New("email already taken")
)

// ValidationErrors maps a form field to its messages. It is returned as an
// error when input is rejected, and is detectable with errors.As.
type ValidationErrors map[string][]string

func (v ValidationErrors) Add(field, message string) {
	v[field] = append(v[field], message)
}

func (v ValidationErrors) Has(field string) bool { return len(v[field]) > 0 }

// Err returns v as an error, or nil when there is nothing to report.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// Clock supplies the current time. A nil Clock is the wall clock.
type Clock func() time.Time

func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// Today is the current calendar day for a user in timezone tz.
func (c Clock) Today(tz string) time.Time {
	return domain.LocalDay(c.Now(), tz)
}
