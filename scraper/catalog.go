package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"partsync/config"
)

// Match is a priced product found on a catalog
type Match struct {
	Price decimal.Decimal
	URL   string
}

// clickTimeout bounds a single consent click
const clickTimeout = 3 * time.Second

// priceStrategy tries one way of reading a price inside scope
type priceStrategy func(scope Scope) (decimal.Decimal, bool)

// Catalog runs searches against one catalog site
type Catalog struct {
	spec     config.CatalogSpec
	detector *BotDetector
}

// NewCatalog creates a query engine for spec
func NewCatalog(spec config.CatalogSpec) *Catalog {
	return &Catalog{spec: spec, detector: NewBotDetector()}
}

// Name returns the catalog display name
func (c *Catalog) Name() string {
	return c.spec.Name
}

// SearchURL builds the search page address for identifier
func (c *Catalog) SearchURL(identifier string) string {
	return strings.ReplaceAll(c.spec.SearchURL, "{query}", url.QueryEscape(identifier))
}

// Search looks identifier up and returns the price of the first listing
// whose label matches it. The page is left on the last document visited.
func (c *Catalog) Search(ctx context.Context, page Page, identifier string) (Match, error) {
	searchURL := c.SearchURL(identifier)
	logger := log.With().Str("catalog", c.spec.Name).Str("identifier", identifier).Logger()
	logger.Info().Str("url", searchURL).Msg("Searching catalog")

	if err := c.load(ctx, page, searchURL); err != nil {
		return Match{}, err
	}

	if c.dismissConsent(ctx, page) {
		logger.Debug().Msg("Dismissed cookie consent")
	}

	if c.spec.ResultsSelector != "" && !page.WaitFor(ctx, c.spec.ResultsSelector, c.spec.ResultsWait) {
		return Match{}, fmt.Errorf("%w: no results for %s on %s", ErrNoMatchFound, identifier, c.spec.Name)
	}

	if err := sleep(ctx, c.spec.SettleDelay); err != nil {
		return Match{}, fmt.Errorf("%w: %w", ErrTransientPageFailure, err)
	}

	candidates := c.candidates(page)
	if len(candidates) == 0 {
		return Match{}, fmt.Errorf("%w: no products listed for %s on %s", ErrNoMatchFound, identifier, c.spec.Name)
	}
	logger.Debug().Int("candidates", len(candidates)).Msg("Found products")

	candidate, ok := c.match(candidates, identifier)
	if !ok {
		return Match{}, fmt.Errorf("%w: %s among %d products on %s", ErrNoMatchFound, identifier, len(candidates), c.spec.Name)
	}

	// resolved before any navigation, which invalidates live elements
	productURL, hasProduct := c.productLink(page, candidate)
	resultURL := searchURL
	if hasProduct {
		resultURL = productURL
	}

	for _, strategy := range c.listingStrategies() {
		if price, ok := strategy(candidate); ok {
			logger.Info().Str("price", price.StringFixed(2)).Msg("Found price in listing")
			return Match{Price: price, URL: resultURL}, nil
		}
	}

	if !hasProduct {
		return Match{}, fmt.Errorf("%w: %s on %s has no product link", ErrPriceUnextractable, identifier, c.spec.Name)
	}

	logger.Debug().Str("url", productURL).Msg("No price in listing, opening product page")
	if err := c.load(ctx, page, productURL); err != nil {
		return Match{}, err
	}
	if err := sleep(ctx, c.spec.ProductSettle); err != nil {
		return Match{}, fmt.Errorf("%w: %w", ErrTransientPageFailure, err)
	}

	if price, ok := c.visibleText(page); ok {
		logger.Info().Str("price", price.StringFixed(2)).Msg("Found price on product page")
		return Match{Price: price, URL: productURL}, nil
	}

	return Match{}, fmt.Errorf("%w: %s on %s", ErrPriceUnextractable, identifier, c.spec.Name)
}

// load navigates and rejects bot walls
func (c *Catalog) load(ctx context.Context, page Page, target string) error {
	if err := page.Navigate(ctx, target); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransientPageFailure, target, err)
	}

	if blocked, reason, _ := c.detector.DetectBotWall(page.BodyText(), page.Title()); blocked {
		return fmt.Errorf("%w: bot wall on %s: %s", ErrTransientPageFailure, target, reason)
	}
	return nil
}

// dismissConsent clicks the cookie consent button if one shows up within
// the consent wait. Returns false when there was nothing to dismiss.
func (c *Catalog) dismissConsent(ctx context.Context, page Page) bool {
	consent := c.spec.Consent
	wait := consent.Wait

	for _, selector := range consent.Selectors {
		if !page.WaitFor(ctx, selector, wait) {
			// the wait is shared, later locators only get a single check
			wait = 0
			continue
		}
		if button, ok := page.Find(selector); ok && button.Click(ctx, clickTimeout) == nil {
			_ = sleep(ctx, consent.Settle)
			return true
		}
	}

	if len(consent.Keywords) == 0 || !page.WaitFor(ctx, "button", wait) {
		return false
	}

	for _, button := range page.FindAll("button") {
		if !c.isConsentButton(button) {
			continue
		}
		if button.Click(ctx, clickTimeout) == nil {
			_ = sleep(ctx, consent.Settle)
			return true
		}
	}
	return false
}

func (c *Catalog) isConsentButton(button Element) bool {
	text := button.Text()
	class, _ := button.Attribute("class")
	id, _ := button.Attribute("id")

	for _, keyword := range c.spec.Consent.Keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(class), "accept") || strings.Contains(strings.ToLower(id), "accept")
}

// candidates returns the listings found by the first locator that finds any
func (c *Catalog) candidates(page Page) []Element {
	for _, selector := range c.spec.CandidateSelectors {
		if found := page.FindAll(selector); len(found) > 0 {
			return found
		}
	}
	return nil
}

// match returns the first candidate labelled with identifier
func (c *Catalog) match(candidates []Element, identifier string) (Element, bool) {
	var found Element
	duplicates := 0

	for _, candidate := range candidates {
		if !SameIdentifier(c.label(candidate, identifier), identifier) {
			continue
		}
		if found == nil {
			found = candidate
			continue
		}
		duplicates++
	}

	if duplicates > 0 {
		log.Debug().Str("identifier", identifier).Int("ignored", duplicates).Msg("Duplicate listings, using the first")
	}
	return found, found != nil
}

// label reads the identifier a listing displays. When no label element
// exists, a title containing identifier stands in for it.
func (c *Catalog) label(candidate Element, identifier string) string {
	for _, selector := range c.spec.IdentifierSelectors {
		for _, el := range candidate.FindAll(selector) {
			if text := el.Text(); text != "" {
				return text
			}
		}
	}

	for _, selector := range c.spec.TitleSelectors {
		if title, ok := candidate.Find(selector); ok && strings.Contains(title.Text(), identifier) {
			return identifier
		}
	}
	return ""
}

// productLink resolves the listing's product page against the current page
func (c *Catalog) productLink(page Page, candidate Element) (string, bool) {
	for _, selector := range c.spec.LinkSelectors {
		link, ok := candidate.Find(selector)
		if !ok {
			continue
		}
		href, ok := link.Attribute("href")
		if !ok || strings.TrimSpace(href) == "" {
			continue
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		if base, err := url.Parse(page.URL()); err == nil {
			ref = base.ResolveReference(ref)
		}
		return ref.String(), true
	}
	return "", false
}

// listingStrategies are tried in order on the matched listing
func (c *Catalog) listingStrategies() []priceStrategy {
	return []priceStrategy{
		c.amountAttribute,
		c.visibleText,
		c.hiddenValue,
	}
}

// amountAttribute reads the pre-parsed amount a price element carries
func (c *Catalog) amountAttribute(scope Scope) (decimal.Decimal, bool) {
	if c.spec.AmountAttribute == "" {
		return decimal.Zero, false
	}
	for _, selector := range c.spec.PriceSelectors {
		el, ok := scope.Find(selector)
		if !ok {
			continue
		}
		if raw, ok := el.Attribute(c.spec.AmountAttribute); ok {
			if price, ok := positive(ParseAmount(raw)); ok {
				return price, true
			}
		}
	}
	return decimal.Zero, false
}

// visibleText parses the displayed text of price elements
func (c *Catalog) visibleText(scope Scope) (decimal.Decimal, bool) {
	for _, selector := range c.spec.PriceSelectors {
		el, ok := scope.Find(selector)
		if !ok {
			continue
		}
		if price, ok := positive(ParseMoney(el.Text())); ok {
			return price, true
		}
	}
	return decimal.Zero, false
}

// hiddenValue reads attribute values of price elements that render no text
func (c *Catalog) hiddenValue(scope Scope) (decimal.Decimal, bool) {
	for _, selector := range c.spec.PriceSelectors {
		el, ok := scope.Find(selector)
		if !ok || el.Text() != "" {
			continue
		}

		if c.spec.ParentAttribute != "" {
			if parent, ok := el.Parent(); ok {
				if raw, ok := parent.Attribute(c.spec.ParentAttribute); ok {
					if price, ok := positive(ParseMoney(raw)); ok {
						return price, true
					}
				}
			}
		}

		for _, attr := range c.spec.FallbackAttributes {
			if raw, ok := el.Attribute(attr); ok {
				if price, ok := positive(ParseMoney(raw)); ok {
					return price, true
				}
			}
		}
	}
	return decimal.Zero, false
}
