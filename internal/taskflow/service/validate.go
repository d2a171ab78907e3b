package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxNameLen        = 100
	maxEmailLen       = 255
	maxTitleLen       = 255
	maxDescriptionLen = 10000
	minPasswordLen    = 8
)

func validEmail(email string) bool {
	if email == "" || utf8.RuneCountInString(email) > maxEmailLen {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

// validPassword requires the minimum length plus an upper case letter, a
// lower case letter and a digit.
func validPassword(password string) bool {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return false
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func tooLong(s string, limit int) bool {
	return utf8.RuneCountInString(s) > limit
}

// requireName validates a first or last name field.
func requireName(errs ValidationErrors, field, label, value string) {
	switch {
	case value == "":
		errs.Add(field, label+" is required")
	case tooLong(value, maxNameLen):
		errs.Add(field, fmt.Sprintf("%s must not exceed %d characters", label, maxNameLen))
	}
}

func requireEmail(errs ValidationErrors, field, value string) {
	switch {
	case value == "":
		errs.Add(field, "Email is required")
	case !validEmail(value):
		errs.Add(field, "Please enter a valid email address")
	}
}

// requireNewPassword checks a password and its confirmation.
func requireNewPassword(errs ValidationErrors, password, confirmation string) {
	switch {
	case password == "":
		errs.Add("password", "Password is required")
	case !validPassword(password):
		errs.Add("password", "Password must be at least 8 characters and contain at least one uppercase letter, one lowercase letter, and one number")
	}
	if password != confirmation {
		errs.Add("password_confirmation", "Password confirmation does not match")
	}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
