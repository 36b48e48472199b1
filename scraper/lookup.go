package scraper

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"partsync/config"
	"partsync/models"
)

// Lookup resolves item names to catalog prices. It drives a single page
// and must not be used from more than one goroutine.
type Lookup struct {
	page     Page
	catalogs map[models.Source]*Catalog
}

// NewLookup creates a lookup over page using both catalog definitions
func NewLookup(page Page, catalogs config.Catalogs) (*Lookup, error) {
	jk, ok := catalogs[config.CatalogJustKampers]
	if !ok {
		return nil, fmt.Errorf("catalog %q is not configured", config.CatalogJustKampers)
	}
	heritage, ok := catalogs[config.CatalogHeritage]
	if !ok {
		return nil, fmt.Errorf("catalog %q is not configured", config.CatalogHeritage)
	}

	return &Lookup{
		page: page,
		catalogs: map[models.Source]*Catalog{
			models.SourceJustKampers: NewCatalog(jk),
			models.SourceHeritage:    NewCatalog(heritage),
		},
	}, nil
}

// Lookup finds the current price for an item name. Failures never
// escape: they come back as an absent price with the cause in Err.
func (l *Lookup) Lookup(ctx context.Context, name string) (result models.PriceResult) {
	_, identifier := ExtractIdentifier(name)
	source := Route(identifier)
	result.Source = source

	if source == models.SourceUnknown {
		result.Err = fmt.Errorf("%w: %q", ErrIdentifierMissing, name)
		log.Warn().Str("item", name).Msg("No identifier found in item name")
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			result = models.PriceResult{
				Source: source,
				Err:    fmt.Errorf("%w: recovered: %v", ErrTransientPageFailure, r),
			}
			log.Error().Str("identifier", identifier).Interface("panic", r).Msg("Lookup panicked")
		}
	}()

	match, err := l.catalogs[source].Search(ctx, l.page, identifier)
	if err != nil {
		result.Err = err
		log.Warn().Err(err).Str("identifier", identifier).Str("source", string(source)).Msg("Price lookup failed")
		return result
	}

	result.Price = decimal.NewNullDecimal(match.Price)
	result.URL = match.URL
	return result
}
