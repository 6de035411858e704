package browse

import (
	"strings"
	"unicode"

	"github.com/wichananm65/gift-finder/internal/gift"
	"github.com/wichananm65/gift-finder/internal/trending"
)

// searchFields are the detail columns the free-text query is matched against.
var searchFields = []string{gift.FieldLocalTitle, gift.FieldTitle, gift.FieldDescription}

// SanitizeQuery removes characters that carry syntax in the remote filter
// language (',', '(' and ')') and control characters, then collapses runs of
// whitespace.
func SanitizeQuery(q string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == ',' || r == '(' || r == ')':
			return ' '
		case unicode.IsControl(r):
			return ' '
		}
		return r
	}, q)
	return strings.Join(strings.Fields(cleaned), " ")
}

// BuildPageRequest turns the filter into the read for its current page.
// Price and provider are never sent; they are applied by Reconcile.
func BuildPageRequest(f FilterState, pageSize int) gift.PageRequest {
	req := gift.PageRequest{
		Order: []gift.OrderBy{
			{Field: gift.FieldScore, Desc: true},
			{Field: gift.FieldCreatedAt, Desc: true},
		},
		Offset:     f.Page * pageSize,
		Limit:      pageSize,
		StrictJoin: true,
	}

	for _, p := range []gift.Predicate{
		{Field: gift.FieldRecipient, Value: f.Recipient},
		{Field: gift.FieldTopic, Value: f.Topic},
		{Field: gift.FieldArea, Value: f.Area},
		{Field: gift.FieldCategory, Value: f.Category},
	} {
		if p.Value != "" {
			req.Equals = append(req.Equals, p)
		}
	}

	if text := SanitizeQuery(f.Query); text != "" {
		req.Text = text
		req.TextFields = searchFields
	}
	return req
}

// BuildDefaultViewRequest is the bounded per-recipient read of the default view.
func BuildDefaultViewRequest(recipient string, limit int) gift.PageRequest {
	return trending.BuildRequest(recipient, limit)
}
