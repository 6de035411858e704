package browse

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/wichananm65/gift-finder/internal/taxonomy"
)

// Suggestion types.
const (
	SuggestionFacet  = "category"
	SuggestionSearch = "search"
)

const (
	DefaultSuggestionLimit = 6
	MaxSuggestionLimit     = 8
)

// Suggestion is one entry of the search dropdown.
type Suggestion struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Label string `json:"label"`
}

// Suggest returns the taxonomy labels containing text, prefix matches first
// and then in collation order, capped at limit, followed by a literal search
// entry for the input itself. Empty input yields no suggestions.
func Suggest(text string, idx *taxonomy.Index, limit int) []Suggestion {
	raw := strings.TrimSpace(text)
	query := strings.ToLower(raw)
	if query == "" {
		return []Suggestion{}
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	if limit > MaxSuggestionLimit {
		limit = MaxSuggestionLimit
	}

	var matches []string
	for _, label := range idx.Labels() {
		if strings.Contains(strings.ToLower(label), query) {
			matches = append(matches, label)
		}
	}

	col := collate.New(language.English)
	sort.SliceStable(matches, func(i, j int) bool {
		pi := strings.HasPrefix(strings.ToLower(matches[i]), query)
		pj := strings.HasPrefix(strings.ToLower(matches[j]), query)
		if pi != pj {
			return pi
		}
		return col.CompareString(matches[i], matches[j]) < 0
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Suggestion, 0, len(matches)+1)
	for _, m := range matches {
		out = append(out, Suggestion{Type: SuggestionFacet, Value: m, Label: m})
	}
	return append(out, Suggestion{Type: SuggestionSearch, Value: raw, Label: `Search for "` + raw + `"`})
}
