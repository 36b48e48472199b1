package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source names the catalog a price came from
type Source string

const (
	SourceJustKampers Source = "JustKampers"
	SourceHeritage    Source = "Heritage Parts Centre"
	SourceUnknown     Source = "Unknown"
)

// ItemRecord is one row of the accounting export
type ItemRecord struct {
	Row          int             `json:"row"`
	Code         string          `json:"item_code"`
	Name         string          `json:"item_name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
}

// PriceResult is the outcome of a single lookup
type PriceResult struct {
	Price  decimal.NullDecimal `json:"price"`
	Source Source              `json:"source"`
	URL    string              `json:"url,omitempty"`
	Err    error               `json:"-"`
}

// Found returns true if the lookup produced a price
func (r PriceResult) Found() bool {
	return r.Price.Valid
}

// Cause returns the logged failure cause, or empty when a price was found
func (r PriceResult) Cause() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// OutcomeKind classifies an item after comparison
type OutcomeKind string

const (
	OutcomeUpdated   OutcomeKind = "updated"
	OutcomeUnchanged OutcomeKind = "unchanged"
	OutcomeError     OutcomeKind = "error"
)

// Outcome is the comparison result for one item
type Outcome struct {
	Kind     OutcomeKind     `json:"kind"`
	Code     string          `json:"item_code"`
	Name     string          `json:"item_name"`
	OldPrice decimal.Decimal `json:"old_price"`
	NewPrice decimal.Decimal `json:"new_price"`
	Diff     decimal.Decimal `json:"difference"`
	DiffPct  decimal.Decimal `json:"difference_percent"`
	Source   Source          `json:"source"`
	URL      string          `json:"url,omitempty"`
	Reason   string          `json:"error,omitempty"`
}

// Summary holds the running totals of a batch
type Summary struct {
	Total     int `json:"total_items"`
	Processed int `json:"processed_items"`
	Updated   int `json:"updates_count"`
	Unchanged int `json:"unchanged_count"`
	Errors    int `json:"errors_count"`
}

// Add counts one outcome
func (s *Summary) Add(kind OutcomeKind) {
	switch kind {
	case OutcomeUpdated:
		s.Updated++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeError:
		s.Errors++
	}
}

// BatchResult is everything a finished batch produced
type BatchResult struct {
	Summary   Summary
	Updates   []Outcome
	Errors    []Outcome
	Unchanged []Outcome
	Cancelled bool
}

// Record files an outcome under its kind and counts it
func (b *BatchResult) Record(o Outcome) {
	switch o.Kind {
	case OutcomeUpdated:
		b.Updates = append(b.Updates, o)
	case OutcomeUnchanged:
		b.Unchanged = append(b.Unchanged, o)
	default:
		b.Errors = append(b.Errors, o)
	}
	b.Summary.Add(o.Kind)
	b.Summary.Processed++
}

// RunRecord is one entry of the run ledger
type RunRecord struct {
	ID          string     `json:"id" db:"id"`
	InputFile   string     `json:"input_file" db:"input_file"`
	OutputFile  string     `json:"output_file" db:"output_file"`
	ReportFile  string     `json:"report_file" db:"report_file"`
	Status      TaskStatus `json:"status" db:"status"`
	Total       int        `json:"total_items" db:"total_items"`
	Updated     int        `json:"updates_count" db:"updates_count"`
	Unchanged   int        `json:"unchanged_count" db:"unchanged_count"`
	Errors      int        `json:"errors_count" db:"errors_count"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
