package scraper

import (
	"strings"

	"partsync/models"
)

// Route picks the catalog for an identifier. Only an upper-case J prefix
// goes to JustKampers; lower-case identifiers are sent to Heritage.
func Route(identifier string) models.Source {
	switch {
	case identifier == "":
		return models.SourceUnknown
	case strings.HasPrefix(identifier, "J"):
		return models.SourceJustKampers
	default:
		return models.SourceHeritage
	}
}
