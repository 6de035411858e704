package gift

import (
	"github.com/shopspring/decimal"
)

// Provider is the marketplace an item is sold on, derived from its URL.
type Provider string

const (
	ProviderEbay    Provider = "ebay"
	ProviderEtsy    Provider = "etsy"
	ProviderOther   Provider = "other"
	ProviderUnknown Provider = "unknown"
)

// AllProviders lists the marketplaces a visitor can filter on.
var AllProviders = []Provider{ProviderEbay, ProviderEtsy}

// Label returns the display name of a selectable provider.
func (p Provider) Label() string {
	switch p {
	case ProviderEbay:
		return "eBay"
	case ProviderEtsy:
		return "Etsy"
	default:
		return ""
	}
}

// RawRecord is one row of the scored-items view joined to its item detail, as
// returned by the data store. Detail is nil when a lenient join found no
// detail row.
type RawRecord struct {
	GiftItemID RawValue   `json:"gift_item_id"`
	Recipient  string     `json:"recipient"`
	Cluster    string     `json:"cluster"`
	SubCluster string     `json:"sub_cluster"`
	Category   string     `json:"category"`
	Score      RawValue   `json:"current_score"`
	CreatedAt  string     `json:"created_at"`
	Detail     *RawDetail `json:"gift_items"`
}

// RawDetail is the item-detail relation of a RawRecord.
type RawDetail struct {
	ID            RawValue `json:"id"`
	Title         string   `json:"title"`
	LocalTitle    string   `json:"local_title"`
	URL           string   `json:"url"`
	ImageURL      string   `json:"image_url"`
	Images        RawValue `json:"images"`
	Price         RawValue `json:"price"`
	PriceAmount   RawValue `json:"price_amount"`
	PriceCurrency string   `json:"price_currency"`
	Category      string   `json:"category"`
	Description   string   `json:"description"`
}

// Item is a normalized product record ready for rendering.
type Item struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	LocalTitle    string              `json:"localTitle,omitempty"`
	DisplayTitle  string              `json:"displayTitle"`
	URL           string              `json:"url,omitempty"`
	ShopURL       string              `json:"shopUrl,omitempty"`
	ImageURL      string              `json:"imageUrl,omitempty"`
	Images        []string            `json:"images"`
	PriceText     string              `json:"price,omitempty"`
	PriceAmount   *float64            `json:"priceAmount,omitempty"`
	PriceCurrency string              `json:"priceCurrency,omitempty"`
	Price         decimal.NullDecimal `json:"normalizedPrice"`
	DisplayPrice  string              `json:"displayPrice"`
	Provider      Provider            `json:"provider"`
	Score         float64             `json:"score"`
	CreatedAt     string              `json:"createdAt,omitempty"`
	Description   string              `json:"description,omitempty"`
	Recipient     string              `json:"recipient,omitempty"`
	Topic         string              `json:"topic,omitempty"`
	Area          string              `json:"area,omitempty"`
	Category      string              `json:"category,omitempty"`
}

// Key is the identity used for deduplication: the item id, or the URL when
// the store did not send one.
func (i Item) Key() string {
	if i.ID != "" {
		return i.ID
	}
	return "url:" + i.URL
}
