package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog keys used in the catalogs file
const (
	CatalogJustKampers = "justkampers"
	CatalogHeritage    = "heritage"
)

// ConsentSpec describes how to dismiss a cookie overlay
type ConsentSpec struct {
	Selectors []string      `yaml:"selectors"`
	Keywords  []string      `yaml:"keywords"`
	Wait      time.Duration `yaml:"wait"`
	Settle    time.Duration `yaml:"settle"`
}

// CatalogSpec holds the locators and timings for one catalog.
// Every locator list is tried in order.
type CatalogSpec struct {
	Name      string `yaml:"name"`
	SearchURL string `yaml:"search_url"` // {query} is replaced by the escaped identifier

	Consent ConsentSpec `yaml:"consent"`

	ResultsSelector string        `yaml:"results_selector"`
	ResultsWait     time.Duration `yaml:"results_wait"`
	SettleDelay     time.Duration `yaml:"settle_delay"`
	ProductSettle   time.Duration `yaml:"product_settle"`

	CandidateSelectors  []string `yaml:"candidate_selectors"`
	IdentifierSelectors []string `yaml:"identifier_selectors"`
	TitleSelectors      []string `yaml:"title_selectors"`
	PriceSelectors      []string `yaml:"price_selectors"`
	LinkSelectors       []string `yaml:"link_selectors"`

	AmountAttribute    string   `yaml:"amount_attribute"`
	ParentAttribute    string   `yaml:"parent_attribute"`
	FallbackAttributes []string `yaml:"fallback_attributes"`
}

// Catalogs maps catalog keys to their specs
type Catalogs map[string]CatalogSpec

// DefaultCatalogs returns the built-in definitions of both catalogs
func DefaultCatalogs() Catalogs {
	return Catalogs{
		CatalogJustKampers: {
			Name:      "JustKampers",
			SearchURL: "https://www.justkampers.com/catalogsearch/result/?q={query}",
			Consent: ConsentSpec{
				Keywords: []string{"Accept", "ACCEPT", "accept"},
				Wait:     3 * time.Second,
				Settle:   time.Second,
			},
			SettleDelay:   5 * time.Second,
			ProductSettle: 2 * time.Second,
			CandidateSelectors: []string{
				"div.product-item",
				"li.product-item",
			},
			IdentifierSelectors: []string{"div.amlabel-text"},
			PriceSelectors: []string{
				"span.price",
				"span[data-price-type='finalPrice']",
				"div.price-box span.price",
				"span.price-wrapper span.price",
			},
			LinkSelectors:      []string{"a.product-item-photo", "a.product-item-link"},
			AmountAttribute:    "data-price-amount",
			FallbackAttributes: []string{"data-price-amount", "content", "innerText"},
		},
		CatalogHeritage: {
			Name:      "Heritage Parts Centre",
			SearchURL: "https://www.heritagepartscentre.com/uk/catalogsearch/result/?q={query}",
			Consent: ConsentSpec{
				Selectors: []string{"#CybotCookiebotDialogBodyLevelButtonAccept"},
				Keywords:  []string{"OK", "Accept"},
				Wait:      3 * time.Second,
				Settle:    time.Second,
			},
			ResultsSelector: ".products-grid",
			ResultsWait:     10 * time.Second,
			SettleDelay:     2 * time.Second,
			ProductSettle:   2 * time.Second,
			CandidateSelectors: []string{
				"div.product-item-info",
				"li.product-item",
				"article.product-item-info",
			},
			IdentifierSelectors: []string{
				"div.product__sku mark",
				"div.product-item-sku",
				"span.sku",
				"div.sku",
				"span[itemprop='sku']",
			},
			TitleSelectors: []string{"a.product-item-link", "h2.product-name"},
			PriceSelectors: []string{
				"span.price-wrapper[data-price-including-tax] span.price",
				"span[itemprop='lowPrice']",
				"span.price:not(:empty)",
				"span[data-price-type='finalPrice'] span.price",
				"div.price-box span[data-price-amount]",
				"span.price-wrapper span.price",
				"div.price-final_price span.price",
				"span.regular-price span.price",
			},
			LinkSelectors:      []string{"a.product-item-link"},
			AmountAttribute:    "data-price-amount",
			ParentAttribute:    "data-price-including-tax",
			FallbackAttributes: []string{"data-price-amount", "content", "innerText"},
		},
	}
}

// LoadCatalogs returns the default catalogs, overridden per key by the
// YAML file at path. An empty path returns the defaults.
func LoadCatalogs(path string) (Catalogs, error) {
	catalogs := DefaultCatalogs()
	if path == "" {
		return catalogs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogs file: %w", err)
	}

	var overrides Catalogs
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse catalogs file: %w", err)
	}

	for key, override := range overrides {
		base, known := catalogs[key]
		if !known {
			return nil, fmt.Errorf("unknown catalog %q in %s", key, path)
		}
		catalogs[key] = merge(base, override)
	}
	return catalogs, nil
}

// merge overlays the non-zero fields of o on base
func merge(base, o CatalogSpec) CatalogSpec {
	if o.Name != "" {
		base.Name = o.Name
	}
	if o.SearchURL != "" {
		base.SearchURL = o.SearchURL
	}
	if len(o.Consent.Selectors) > 0 {
		base.Consent.Selectors = o.Consent.Selectors
	}
	if len(o.Consent.Keywords) > 0 {
		base.Consent.Keywords = o.Consent.Keywords
	}
	if o.Consent.Wait > 0 {
		base.Consent.Wait = o.Consent.Wait
	}
	if o.Consent.Settle > 0 {
		base.Consent.Settle = o.Consent.Settle
	}
	if o.ResultsSelector != "" {
		base.ResultsSelector = o.ResultsSelector
	}
	if o.ResultsWait > 0 {
		base.ResultsWait = o.ResultsWait
	}
	if o.SettleDelay > 0 {
		base.SettleDelay = o.SettleDelay
	}
	if o.ProductSettle > 0 {
		base.ProductSettle = o.ProductSettle
	}
	if len(o.CandidateSelectors) > 0 {
		base.CandidateSelectors = o.CandidateSelectors
	}
	if len(o.IdentifierSelectors) > 0 {
		base.IdentifierSelectors = o.IdentifierSelectors
	}
	if len(o.TitleSelectors) > 0 {
		base.TitleSelectors = o.TitleSelectors
	}
	if len(o.PriceSelectors) > 0 {
		base.PriceSelectors = o.PriceSelectors
	}
	if len(o.LinkSelectors) > 0 {
		base.LinkSelectors = o.LinkSelectors
	}
	if o.AmountAttribute != "" {
		base.AmountAttribute = o.AmountAttribute
	}
	if o.ParentAttribute != "" {
		base.ParentAttribute = o.ParentAttribute
	}
	if len(o.FallbackAttributes) > 0 {
		base.FallbackAttributes = o.FallbackAttributes
	}
	return base
}

// WithoutDelays returns a copy with every wait and settle delay zeroed.
// Used for the static driver, where nothing renders client-side.
func (c Catalogs) WithoutDelays() Catalogs {
	out := make(Catalogs, len(c))
	for key, spec := range c {
		spec.Consent.Wait = 0
		spec.Consent.Settle = 0
		spec.ResultsWait = 0
		spec.SettleDelay = 0
		spec.ProductSettle = 0
		out[key] = spec
	}
	return out
}
