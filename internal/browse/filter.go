package browse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wichananm65/gift-finder/internal/gift"
	"github.com/wichananm65/gift-finder/internal/trending"
)

var (
	ErrUnknownFacet     = errors.New("unknown facet")
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrOrphanFacet      = errors.New("facet requires its parent facet")
	ErrNoProvider       = errors.New("at least one provider must stay selected")
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrNegativePrice    = errors.New("price bound must not be negative")
)

// Facet names accepted by SetFacet.
const (
	FacetRecipient = "recipient"
	FacetAge       = "age"
	FacetGender    = "gender"
	FacetTopic     = "topic"
	FacetArea      = "area"
	FacetCategory  = "category"
)

// View modes.
const (
	ViewDefault  = "default"
	ViewFiltered = "filtered"
)

// PriceRange holds optional inclusive bounds. A null bound is unbounded.
type PriceRange struct {
	Min decimal.NullDecimal `json:"min"`
	Max decimal.NullDecimal `json:"max"`
}

// Active reports whether any bound is set.
func (p PriceRange) Active() bool {
	return p.Min.Valid || p.Max.Valid
}

// Contains reports whether v lies within the bounds.
func (p PriceRange) Contains(v decimal.Decimal) bool {
	if p.Min.Valid && v.LessThan(p.Min.Decimal) {
		return false
	}
	if p.Max.Valid && v.GreaterThan(p.Max.Decimal) {
		return false
	}
	return true
}

func (p PriceRange) equal(o PriceRange) bool {
	return nullEqual(p.Min, o.Min) && nullEqual(p.Max, o.Max)
}

func nullEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

// FilterState is everything that decides what a filtered session shows.
// Mutators report whether a query-affecting field changed; a caller that gets
// changed=true must drop accumulated results before the next fetch.
type FilterState struct {
	Recipient string          `json:"recipient,omitempty"`
	Age       string          `json:"age,omitempty"`
	Gender    string          `json:"gender,omitempty"`
	Topic     string          `json:"topic,omitempty"`
	Area      string          `json:"area,omitempty"`
	Category  string          `json:"category,omitempty"`
	Providers []gift.Provider `json:"providers"`
	Price     PriceRange      `json:"price"`
	Query     string          `json:"query,omitempty"`
	Page      int             `json:"page"`
	HasMore   bool            `json:"hasMore"`
}

// NewFilterState returns the initial state: no facets, every provider.
func NewFilterState() FilterState {
	return FilterState{Providers: append([]gift.Provider{}, gift.AllProviders...)}
}

// Reset restores the initial state.
func (f *FilterState) Reset() {
	*f = NewFilterState()
}

// Clone returns a deep copy.
func (f FilterState) Clone() FilterState {
	f.Providers = append([]gift.Provider{}, f.Providers...)
	return f
}

// SetFacet sets one facet; an empty value clears it. Changing the topic
// clears area and category, changing the area clears category.
func (f *FilterState) SetFacet(name, value string) (bool, error) {
	value = strings.TrimSpace(value)
	var changed bool

	switch name {
	case FacetRecipient:
		if value != "" && !trending.IsRecipient(value) {
			return false, fmt.Errorf("%w: %q", ErrInvalidRecipient, value)
		}
		changed = f.Recipient != value
		f.Recipient = value
	case FacetAge:
		changed = f.Age != value
		f.Age = value
	case FacetGender:
		changed = f.Gender != value
		f.Gender = value
	case FacetTopic:
		if f.Topic == value {
			return false, nil
		}
		f.Topic, f.Area, f.Category = value, "", ""
		changed = true
	case FacetArea:
		if value != "" && f.Topic == "" {
			return false, fmt.Errorf("%w: area needs a topic", ErrOrphanFacet)
		}
		if f.Area == value {
			return false, nil
		}
		f.Area, f.Category = value, ""
		changed = true
	case FacetCategory:
		if value != "" && (f.Topic == "" || f.Area == "") {
			return false, fmt.Errorf("%w: category needs a topic and an area", ErrOrphanFacet)
		}
		changed = f.Category != value
		f.Category = value
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownFacet, name)
	}

	if changed {
		f.rewind()
	}
	return changed, nil
}

// SetPriceRange sets the bounds, swapping them when min > max.
func (f *FilterState) SetPriceRange(lo, hi decimal.NullDecimal) (bool, error) {
	if (lo.Valid && lo.Decimal.IsNegative()) || (hi.Valid && hi.Decimal.IsNegative()) {
		return false, ErrNegativePrice
	}
	if lo.Valid && hi.Valid && lo.Decimal.GreaterThan(hi.Decimal) {
		lo, hi = hi, lo
	}
	next := PriceRange{Min: lo, Max: hi}
	if f.Price.equal(next) {
		return false, nil
	}
	f.Price = next
	f.rewind()
	return true, nil
}

// SetProviders replaces the selected marketplaces. The set may not be empty.
func (f *FilterState) SetProviders(providers []gift.Provider) (bool, error) {
	selected := map[gift.Provider]bool{}
	for _, p := range providers {
		p = gift.Provider(strings.ToLower(strings.TrimSpace(string(p))))
		if p.Label() == "" {
			return false, fmt.Errorf("%w: %q", ErrUnknownProvider, p)
		}
		selected[p] = true
	}
	if len(selected) == 0 {
		return false, ErrNoProvider
	}

	next := make([]gift.Provider, 0, len(selected))
	for _, p := range gift.AllProviders {
		if selected[p] {
			next = append(next, p)
		}
	}
	if sameProviders(f.Providers, next) {
		return false, nil
	}
	f.Providers = next
	f.rewind()
	return true, nil
}

// SetQuery sets the trimmed free-text query.
func (f *FilterState) SetQuery(text string) bool {
	text = strings.TrimSpace(text)
	if f.Query == text {
		return false
	}
	f.Query = text
	f.rewind()
	return true
}

// ProviderSubset reports whether the selected providers are a strict,
// non-empty subset of all providers, which is when provider filtering applies.
func (f FilterState) ProviderSubset() bool {
	return len(f.Providers) > 0 && len(f.Providers) < len(gift.AllProviders)
}

// HasProvider reports whether p is selected.
func (f FilterState) HasProvider(p gift.Provider) bool {
	for _, s := range f.Providers {
		if s == p {
			return true
		}
	}
	return false
}

// IsFiltering reports whether any facet, price bound or query is active, or
// the provider selection narrows the catalog.
func (f FilterState) IsFiltering() bool {
	return f.Recipient != "" || f.Age != "" || f.Gender != "" ||
		f.Topic != "" || f.Area != "" || f.Category != "" ||
		f.Price.Active() || f.Query != "" || f.ProviderSubset()
}

// ViewMode is derived from IsFiltering.
func (f FilterState) ViewMode() string {
	if f.IsFiltering() {
		return ViewFiltered
	}
	return ViewDefault
}

func (f *FilterState) rewind() {
	f.Page = 0
	f.HasMore = false
}

func sameProviders(a, b []gift.Provider) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
