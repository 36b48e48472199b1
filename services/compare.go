package services

import (
	"github.com/shopspring/decimal"

	"partsync/models"
)

// ReasonPriceNotFound is the reason recorded for every failed lookup
const ReasonPriceNotFound = "Price not found"

// changeThreshold is the smallest difference that counts as a price change
var changeThreshold = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// Classify compares a lookup result with the item's current price.
// A difference strictly greater than one penny is an update.
func Classify(item models.ItemRecord, result models.PriceResult) models.Outcome {
	outcome := models.Outcome{
		Code:     item.Code,
		Name:     item.Name,
		OldPrice: item.CurrentPrice,
		Source:   result.Source,
		URL:      result.URL,
	}

	if !result.Found() {
		outcome.Kind = models.OutcomeError
		outcome.Reason = ReasonPriceNotFound
		return outcome
	}

	newPrice := result.Price.Decimal
	diff := newPrice.Sub(item.CurrentPrice)

	outcome.NewPrice = newPrice
	outcome.Diff = diff
	if item.CurrentPrice.IsPositive() {
		outcome.DiffPct = diff.Div(item.CurrentPrice).Mul(hundred).Round(4)
	}

	if diff.Abs().GreaterThan(changeThreshold) {
		outcome.Kind = models.OutcomeUpdated
	} else {
		outcome.Kind = models.OutcomeUnchanged
	}
	return outcome
}
