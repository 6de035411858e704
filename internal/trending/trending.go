package trending

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wichananm65/gift-finder/internal/gift"
)

// DefaultLimit is the per-recipient size of a trending section.
const DefaultLimit = 8

// Section is the trending list of one recipient.
type Section struct {
	Recipient string      `json:"recipient"`
	Label     string      `json:"label"`
	Items     []gift.Item `json:"items"`
}

// View is the default view: one section per recipient with at least one
// item, in recipient order.
type View struct {
	Sections []Section `json:"sections"`
}

// ItemCount returns the total number of items across sections.
func (v View) ItemCount() int {
	n := 0
	for _, s := range v.Sections {
		n += len(s.Items)
	}
	return n
}

// BuildRequest is the bounded per-recipient read used by the default view:
// recipient equality only, lenient join, score order.
func BuildRequest(recipient string, limit int) gift.PageRequest {
	return gift.PageRequest{
		Equals: []gift.Predicate{{Field: gift.FieldRecipient, Value: recipient}},
		Order: []gift.OrderBy{
			{Field: gift.FieldScore, Desc: true},
			{Field: gift.FieldCreatedAt, Desc: true},
		},
		Limit: limit,
	}
}

// Loader assembles the default view.
type Loader struct {
	fetcher    gift.Fetcher
	limit      int
	recipients []Recipient
	logger     *zap.Logger
}

func NewLoader(fetcher gift.Fetcher, limit int, logger *zap.Logger) *Loader {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{fetcher: fetcher, limit: limit, recipients: Recipients, logger: logger}
}

// Load fetches every recipient concurrently and returns only after all
// fetches settle. A failed fetch degrades to an empty section, and empty
// sections are left out.
func (l *Loader) Load(ctx context.Context) View {
	lists := make([][]gift.Item, len(l.recipients))

	var g errgroup.Group
	for i, r := range l.recipients {
		g.Go(func() error {
			lists[i] = l.loadRecipient(ctx, r.Value)
			return nil
		})
	}
	_ = g.Wait()

	view := View{Sections: []Section{}}
	for i, r := range l.recipients {
		if len(lists[i]) == 0 {
			continue
		}
		view.Sections = append(view.Sections, Section{Recipient: r.Value, Label: r.Label, Items: lists[i]})
	}
	return view
}

func (l *Loader) loadRecipient(ctx context.Context, recipient string) []gift.Item {
	raw, err := l.fetcher.Fetch(ctx, BuildRequest(recipient, l.limit))
	if err != nil {
		l.logger.Warn("trending fetch failed", zap.String("recipient", recipient), zap.Error(err))
		return nil
	}

	items := make([]gift.Item, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, rec := range raw {
		out := gift.Normalize(rec)
		if out.Dropped {
			l.logger.Debug("trending record dropped", zap.String("recipient", recipient), zap.String("reason", out.Reason))
			continue
		}
		// cards without a shop link are not shown on the default view
		if out.Item.URL == "" {
			continue
		}
		if _, dup := seen[out.Item.Key()]; dup {
			continue
		}
		seen[out.Item.Key()] = struct{}{}
		items = append(items, out.Item)
	}
	return items
}
