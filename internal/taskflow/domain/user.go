package domain

import "time"

// Theme preferences a user can pick on their profile.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto"
)

type User struct {
	ID                    string
	FirstName             string
	LastName              string
	Email                 string
	PasswordHash          string // argon2id, PHC encoded
	EmailVerifiedAt       *time.Time
	VerificationTokenHash string // fingerprint, empty once verified
	VerificationExpiresAt *time.Time
	ThemePreference       string
	Timezone              string
	DeletedAt             *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u User) IsVerified() bool { return u.EmailVerifiedAt != nil }

// ProfileUpdate holds the fields a user may change on their profile page.
type ProfileUpdate struct {
	FirstName       string
	LastName        string
	Email           string
	ThemePreference string
	Timezone        string
}

func ValidTheme(theme string) bool {
	switch theme {
	case ThemeLight, ThemeDark, ThemeAuto:
		return true
	}
	return false
}
