package gift

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Drop reasons reported by Normalize.
const (
	DropMissingDetail   = "missing_detail"
	DropMissingIdentity = "missing_url_and_id"
)

const (
	untitledItem  = "Untitled Item"
	viewPriceText = "View price"
)

var (
	priceNumberRe = regexp.MustCompile(`[0-9]+(\.[0-9]+)?`)
	ebayHostRe    = regexp.MustCompile(`(?i)ebay\.(com|ca|co\.uk)`)
	etsyHostRe    = regexp.MustCompile(`(?i)etsy\.com`)
	ebayPipeURLRe = regexp.MustCompile(`/itm/v1(?:%7C|%7c|\|)(\d+)(?:%7C|%7c|\|)(\d+)(\?.*)?$`)
	encodedPipeRe = regexp.MustCompile(`(?i)%7C`)
)

// Outcome is the result of normalizing one raw record: either a valid Item or
// a drop decision. ImagesMalformed is set when the image field could not be
// parsed and was treated as empty.
type Outcome struct {
	Item            Item
	Dropped         bool
	Reason          string
	ImagesMalformed bool
}

// Normalize turns a raw record into an Item. It never returns a partially
// parsed item: records without detail, or without both URL and id, are dropped.
func Normalize(r RawRecord) Outcome {
	d := r.Detail
	if d == nil {
		return Outcome{Dropped: true, Reason: DropMissingDetail}
	}

	id := r.GiftItemID.String()
	if id == "" {
		id = d.ID.String()
	}
	rawURL := strings.TrimSpace(d.URL)
	if id == "" && rawURL == "" {
		return Outcome{Dropped: true, Reason: DropMissingIdentity}
	}

	images, ok := ParseImages(d.Images)
	if len(images) == 0 && strings.TrimSpace(d.ImageURL) != "" {
		images = []string{strings.TrimSpace(d.ImageURL)}
	}
	imageURL := strings.TrimSpace(d.ImageURL)
	if imageURL == "" && len(images) > 0 {
		imageURL = images[0]
	}

	score, _ := r.Score.Float()
	item := Item{
		ID:            id,
		Title:         d.Title,
		LocalTitle:    d.LocalTitle,
		DisplayTitle:  displayTitle(d),
		URL:           rawURL,
		ShopURL:       SanitizeShopURL(rawURL),
		ImageURL:      imageURL,
		Images:        images,
		PriceText:     priceText(d.Price),
		PriceCurrency: strings.ToUpper(strings.TrimSpace(d.PriceCurrency)),
		Price:         NormalizePrice(d.Price, d.PriceAmount),
		Provider:      ProviderOf(rawURL),
		Score:         score,
		CreatedAt:     r.CreatedAt,
		Description:   d.Description,
		Recipient:     r.Recipient,
		Topic:         r.Cluster,
		Area:          r.SubCluster,
		Category:      firstNonEmpty(r.Category, d.Category),
	}
	if amount, ok := d.PriceAmount.Float(); ok {
		item.PriceAmount = &amount
	}
	item.DisplayPrice = DisplayPrice(item.PriceText, item.PriceAmount, item.PriceCurrency)

	return Outcome{Item: item, ImagesMalformed: !ok}
}

// ParseImages reads the image collection of a record. Text is parsed as a JSON
// array; on failure single quotes are swapped for double quotes and parsed
// once more; on a second failure the collection is empty and ok is false.
func ParseImages(v RawValue) (images []string, ok bool) {
	switch v.Kind {
	case KindList:
		return compact(v.List), true
	case KindText:
		s := strings.TrimSpace(v.Text)
		if s == "" {
			return []string{}, true
		}
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err == nil {
			return compact(out), true
		}
		if err := json.Unmarshal([]byte(strings.ReplaceAll(s, "'", `"`)), &out); err == nil {
			return compact(out), true
		}
		return []string{}, false
	default:
		return []string{}, true
	}
}

// NormalizePrice extracts a numeric price: the first decimal or integer
// substring of the human price string, else the numeric amount field.
func NormalizePrice(price, amount RawValue) decimal.NullDecimal {
	switch price.Kind {
	case KindNumber:
		return decimal.NewNullDecimal(decimal.NewFromFloat(price.Number))
	case KindText:
		if m := priceNumberRe.FindString(price.Text); m != "" {
			if d, err := decimal.NewFromString(m); err == nil {
				return decimal.NewNullDecimal(d)
			}
		}
	}
	if f, ok := amount.Float(); ok {
		return decimal.NewNullDecimal(decimal.NewFromFloat(f))
	}
	return decimal.NullDecimal{}
}

// ProviderOf derives the marketplace tag from an item URL.
func ProviderOf(rawURL string) Provider {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ProviderUnknown
	}
	target := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		target = u.Host
	}
	switch {
	case ebayHostRe.MatchString(target):
		return ProviderEbay
	case etsyHostRe.MatchString(target):
		return ProviderEtsy
	default:
		return ProviderOther
	}
}

// SanitizeShopURL rewrites eBay item links whose path carries pipe-separated
// ids (which browsers encode to %7C) into the plain /itm/ID?var=VAR form.
func SanitizeShopURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if strings.Contains(rawURL, "ebay.com/itm/") {
		if m := ebayPipeURLRe.FindStringSubmatch(rawURL); m != nil {
			out := "https://www.ebay.com/itm/" + m[1] + "?var=" + m[2]
			if m[3] != "" {
				out += strings.Replace(m[3], "?", "&", 1)
			}
			return out
		}
	}
	if strings.Contains(rawURL, "ebay.com") && encodedPipeRe.MatchString(rawURL) {
		return encodedPipeRe.ReplaceAllString(rawURL, "|")
	}
	return rawURL
}

// DisplayPrice picks the price shown on a card: the human string unless it is
// empty or "0", then the formatted amount, then a call to action.
func DisplayPrice(text string, amount *float64, currencyCode string) string {
	if text != "" && text != "0" {
		return text
	}
	if amount != nil && *amount > 0 && currencyCode != "" {
		if unit, err := currency.ParseISO(currencyCode); err == nil {
			p := message.NewPrinter(language.English)
			return p.Sprint(currency.Symbol(unit.Amount(*amount)))
		}
	}
	return viewPriceText
}

func priceText(v RawValue) string {
	switch v.Kind {
	case KindText:
		return strings.TrimSpace(v.Text)
	case KindNumber:
		if v.Number == 0 {
			return ""
		}
		return v.String()
	default:
		return ""
	}
}

func displayTitle(d *RawDetail) string {
	if t := firstNonEmpty(d.LocalTitle, d.Title); t != "" {
		return t
	}
	return untitledItem
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
