package browse

import (
	"errors"
	"strings"
)

// ErrFeatureDisabled is returned by operations of a feature the session's
// variant does not offer.
var ErrFeatureDisabled = errors.New("feature disabled for this variant")

// Features selects the optional parts of the engine.
type Features struct {
	Name           string
	PageSize       int
	PriceFilter    bool
	ProviderFilter bool
	Suggestions    bool
	InboundConfig  bool
}

var (
	// BasicFeatures is the plain page: facets, search and pagination only.
	BasicFeatures = Features{Name: "basic", PageSize: 24}

	// ExtendedFeatures adds price and marketplace filters, search suggestions
	// and URL/embed pre-filtering.
	ExtendedFeatures = Features{
		Name:           "extended",
		PageSize:       100,
		PriceFilter:    true,
		ProviderFilter: true,
		Suggestions:    true,
		InboundConfig:  true,
	}
)

// FeaturesFor returns the preset named by variant, defaulting to extended.
func FeaturesFor(variant string) Features {
	if strings.EqualFold(strings.TrimSpace(variant), BasicFeatures.Name) {
		return BasicFeatures
	}
	return ExtendedFeatures
}

// WithPageSize overrides the preset page size when size is positive.
func (f Features) WithPageSize(size int) Features {
	if size > 0 {
		f.PageSize = size
	}
	return f
}
