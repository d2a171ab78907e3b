package domain

import (
	"regexp"
	"time"
)

type Category struct {
	ID        string
	UserID    string
	Name      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CategoryStats is a category along with counts of its active tasks.
type CategoryStats struct {
	Category
	TaskCount      int
	CompletedCount int
}

// DefaultCategoryColor is used when a form leaves the color blank.
const DefaultCategoryColor = "blue"

// CategoryColors is the named palette offered by the category form.
var CategoryColors = []string{"blue", "green", "red", "yellow", "purple", "orange", "teal", "pink", "gray"}

// DefaultCategories are seeded for every new account, in this order.
var DefaultCategories = []struct {
	Name  string
	Color string
}{
	{"Work", "blue"},
	{"Personal", "green"},
	{"Health", "red"},
	{"Finance", "yellow"},
	{"Learning", "purple"},
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidCategoryColor accepts a palette name or a #RRGGBB hex value.
func ValidCategoryColor(color string) bool {
	for _, c := range CategoryColors {
		if c == color {
			return true
		}
	}
	return hexColor.MatchString(color)
}
