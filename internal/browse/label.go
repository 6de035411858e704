package browse

import (
	"strings"

	"github.com/wichananm65/gift-finder/internal/trending"
)

// Label is the subtitle shown above the results.
func Label(f FilterState) string {
	if f.Query != "" {
		return `Results for "` + f.Query + `"`
	}
	if !f.IsFiltering() || f.Recipient == "" {
		return "For everyone"
	}
	name, ok := trending.RecipientLabel(f.Recipient)
	if !ok {
		name = f.Recipient
	}
	parts := []string{"For " + name}
	if f.Age != "" {
		parts = append(parts, f.Age)
	}
	if f.Gender != "" {
		parts = append(parts, f.Gender)
	}
	return strings.Join(parts, " · ")
}
