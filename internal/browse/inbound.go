package browse

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wichananm65/gift-finder/internal/gift"
)

// FallbackDefault asks for the default view when the pre-filtered first page
// comes back empty.
const FallbackDefault = "default"

// Inbound configuration sources.
const (
	SourceURL   = "url"
	SourceEmbed = "embed"
)

// InboundConfig pre-filters a session at start. It is read once from either
// the page URL or the embedding page.
type InboundConfig struct {
	Source    string          `json:"source"`
	Recipient string          `json:"recipient,omitempty"`
	Query     string          `json:"query,omitempty"`
	Topic     string          `json:"topic,omitempty"`
	Area      string          `json:"area,omitempty"`
	Category  string          `json:"category,omitempty"`
	Providers []gift.Provider `json:"providers,omitempty"`
	Price     PriceRange      `json:"price"`
	Fallback  string          `json:"fallback,omitempty"`
}

// FallsBackToDefault reports whether an empty first page should switch the
// session to the default view.
func (c *InboundConfig) FallsBackToDefault() bool {
	return c != nil && strings.EqualFold(c.Fallback, FallbackDefault)
}

var budgets = map[string]PriceRange{
	"under-25": {Max: nullDecimal(25)},
	"under-50": {Max: nullDecimal(50)},
	"25-50":    {Min: nullDecimal(25), Max: nullDecimal(50)},
	"50-100":   {Min: nullDecimal(50), Max: nullDecimal(100)},
	"over-100": {Min: nullDecimal(100)},
}

// ParseURLQuery reads the pre-filter from page URL parameters. It returns nil
// when no recognised parameter carries a value.
func ParseURLQuery(v url.Values) *InboundConfig {
	if len(v) == 0 {
		return nil
	}
	get := func(keys ...string) string {
		for _, k := range keys {
			if s := strings.TrimSpace(v.Get(k)); s != "" {
				return s
			}
		}
		return ""
	}

	cfg := &InboundConfig{
		Source:    SourceURL,
		Recipient: get("recipient"),
		Query:     get("q", "search"),
		Topic:     get("cluster", "topic"),
		Area:      get("sub_cluster", "subcluster", "area"),
		Category:  get("category"),
		Providers: parseProviders(get("provider")),
		Price: PriceRange{
			Min: parseAmount(get("price_min", "min", "priceMin", "minPrice")),
			Max: parseAmount(get("price_max", "max", "priceMax", "maxPrice")),
		},
		Fallback: get("fallback"),
	}
	// explicit bounds win over the named budget
	if b, ok := budgets[get("budget")]; ok {
		if !cfg.Price.Min.Valid {
			cfg.Price.Min = b.Min
		}
		if !cfg.Price.Max.Valid {
			cfg.Price.Max = b.Max
		}
	}

	if !cfg.hasFilters() && cfg.Fallback == "" {
		return nil
	}
	return cfg
}

// ParseEmbed reads the pre-filter from the embedding page's data attributes
// (hub, hubRecipient, hubSearch, ...). hub=true alone is enough to count as
// configured.
func ParseEmbed(data map[string]string) *InboundConfig {
	if len(data) == 0 {
		return nil
	}
	get := func(k string) string { return strings.TrimSpace(data[k]) }

	cfg := &InboundConfig{
		Source:    SourceEmbed,
		Recipient: get("hubRecipient"),
		Query:     get("hubSearch"),
		Topic:     get("hubCluster"),
		Area:      get("hubSubCluster"),
		Category:  get("hubCategory"),
		Price: PriceRange{
			Min: parseAmount(get("hubPriceMin")),
			Max: parseAmount(get("hubPriceMax")),
		},
		Fallback: get("hubFallback"),
	}
	hub := get("hub")
	if hub != "true" && hub != "1" && !cfg.hasFilters() && cfg.Fallback == "" {
		return nil
	}
	return cfg
}

// ResolveInbound picks the configuration to apply. The URL wins and is
// applied on its own; the embed configuration is used only without one.
func ResolveInbound(fromURL, fromEmbed *InboundConfig) *InboundConfig {
	if fromURL != nil {
		return fromURL
	}
	return fromEmbed
}

func (c *InboundConfig) hasFilters() bool {
	return c.Recipient != "" || c.Query != "" || c.Topic != "" || c.Area != "" ||
		c.Category != "" || len(c.Providers) > 0 || c.Price.Active()
}

func parseProviders(s string) []gift.Provider {
	var out []gift.Provider
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, gift.Provider(p))
		}
	}
	return out
}

func parseAmount(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func nullDecimal(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}
