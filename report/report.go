package report

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"partsync/models"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	width      = 80
)

// Write renders the change report for a finished batch
func Write(w io.Writer, result *models.BatchResult, now time.Time) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Price Update Report - %s\n", now.Format(timeLayout))
	b.WriteString(strings.Repeat("=", width) + "\n\n")

	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "Total items processed: %d\n", result.Summary.Total)
	fmt.Fprintf(&b, "Prices updated: %d\n", len(result.Updates))
	fmt.Fprintf(&b, "Prices unchanged: %d\n", len(result.Unchanged))
	fmt.Fprintf(&b, "Errors: %d\n\n", len(result.Errors))

	if len(result.Updates) > 0 {
		b.WriteString("PRICE UPDATES:\n")
		b.WriteString(strings.Repeat("-", width) + "\n")
		for _, u := range SortUpdates(result.Updates) {
			fmt.Fprintf(&b, "\n%s: %s\n", u.Code, u.Name)
			fmt.Fprintf(&b, "  Source: %s\n", u.Source)
			fmt.Fprintf(&b, "  Old Price: £%s\n", u.OldPrice.StringFixed(2))
			fmt.Fprintf(&b, "  New Price: £%s\n", u.NewPrice.StringFixed(2))
			fmt.Fprintf(&b, "  Difference: £%s (%s%%)\n", signed(u.Diff, 2), signed(u.DiffPct, 1))
		}
	}

	if len(result.Errors) > 0 {
		b.WriteString("\n\nERRORS (prices not found):\n")
		b.WriteString(strings.Repeat("-", width) + "\n")
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "\n%s: %s\n", e.Code, e.Name)
			fmt.Fprintf(&b, "  Source: %s\n", e.Source)
			fmt.Fprintf(&b, "  Current Price: £%s\n", e.OldPrice.StringFixed(2))
			fmt.Fprintf(&b, "  Error: %s\n", e.Reason)
		}
	}

	if len(result.Unchanged) > 0 {
		b.WriteString("\n\nUNCHANGED PRICES:\n")
		b.WriteString(strings.Repeat("-", width) + "\n")
		for _, u := range result.Unchanged {
			fmt.Fprintf(&b, "%s: %s - £%s (%s)\n", u.Code, u.Name, u.OldPrice.StringFixed(2), u.Source)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFile writes the report to path
func WriteFile(path string, result *models.BatchResult, now time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(f, result, now); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// SortUpdates orders updates by descending absolute percentage change.
// Equal magnitudes keep their processing order.
func SortUpdates(updates []models.Outcome) []models.Outcome {
	sorted := slices.Clone(updates)
	slices.SortStableFunc(sorted, func(a, b models.Outcome) int {
		return b.DiffPct.Abs().Cmp(a.DiffPct.Abs())
	})
	return sorted
}

func signed(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s
}
