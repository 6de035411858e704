package browse

import (
	"github.com/wichananm65/gift-finder/internal/gift"
)

// DropCounts tallies why records of a page were not accepted.
type DropCounts struct {
	Malformed int `json:"malformed"`
	Duplicate int `json:"duplicate"`
	Price     int `json:"price"`
	Provider  int `json:"provider"`
}

// ReconcileResult is the outcome of one page.
type ReconcileResult struct {
	Added   []gift.Item
	HasMore bool

	// RawCount is the number of records the store returned, before filtering.
	RawCount int
	Dropped  DropCounts

	// BadImages counts accepted records whose image list could not be parsed.
	BadImages int
}

// Empty reports whether the page added nothing.
func (r ReconcileResult) Empty() bool {
	return len(r.Added) == 0
}

// Reconcile runs one raw page through normalization, dedup, the price filter
// and the provider filter, in that order, appending survivors to acc. HasMore
// is decided on the raw page length alone.
func Reconcile(raw []gift.RawRecord, f FilterState, acc *Accumulator, pageSize int) ReconcileResult {
	res := ReconcileResult{
		Added:    []gift.Item{},
		RawCount: len(raw),
		HasMore:  pageSize > 0 && len(raw) == pageSize,
	}
	pageSeen := make(map[string]struct{}, len(raw))

	for _, rec := range raw {
		out := gift.Normalize(rec)
		if out.Dropped {
			res.Dropped.Malformed++
			continue
		}
		item := out.Item

		key := item.Key()
		if _, dup := pageSeen[key]; dup || acc.Has(key) {
			res.Dropped.Duplicate++
			continue
		}
		pageSeen[key] = struct{}{}

		if f.Price.Active() {
			if !item.Price.Valid || !f.Price.Contains(item.Price.Decimal) {
				res.Dropped.Price++
				continue
			}
		}

		if f.ProviderSubset() && !f.HasProvider(item.Provider) {
			res.Dropped.Provider++
			continue
		}

		if out.ImagesMalformed {
			res.BadImages++
		}
		acc.Add(item)
		res.Added = append(res.Added, item)
	}
	return res
}
