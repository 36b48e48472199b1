package scraper

import "errors"

// Lookup failure kinds. All of them end as an absent price for the item.
var (
	ErrIdentifierMissing    = errors.New("no identifier in item name")
	ErrNoMatchFound         = errors.New("no matching product")
	ErrPriceUnextractable   = errors.New("price could not be extracted")
	ErrTransientPageFailure = errors.New("page failure")
)

// ErrNotClickable is returned when an element is hidden or detached
var ErrNotClickable = errors.New("element is not clickable")
