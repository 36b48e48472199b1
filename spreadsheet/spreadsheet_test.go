package spreadsheet

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

const export = "\ufeff*ItemCode,ItemName,SalesUnitPrice,Description\n" +
	"A1002,Rear Light Lens A1002,12.50,\"Lens, rear\"\n" +
	"J21066,Brake Caliper J21066,,Caliper\n" +
	"X1,Widget,n/a,\n"

func TestRead(t *testing.T) {
	sheet, err := Read(strings.NewReader(export))
	if err != nil {
		t.Fatal(err)
	}

	if sheet.Header[0] != "*ItemCode" {
		t.Errorf("BOM not stripped: %q", sheet.Header[0])
	}

	items := sheet.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Code != "A1002" || items[0].Name != "Rear Light Lens A1002" {
		t.Errorf("unexpected first item %+v", items[0])
	}
	if !items[0].CurrentPrice.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("expected 12.50, got %s", items[0].CurrentPrice)
	}
	if !items[1].CurrentPrice.IsZero() || !items[2].CurrentPrice.IsZero() {
		t.Error("empty and invalid prices must read as zero")
	}
	if items[2].Row != 2 {
		t.Errorf("expected row 2, got %d", items[2].Row)
	}
}

func TestReadPlainItemCode(t *testing.T) {
	sheet, err := Read(strings.NewReader("ItemCode,ItemName,SalesUnitPrice\nB1,Bolt B1,1.00\n"))
	if err != nil {
		t.Fatal(err)
	}
	if sheet.Items()[0].Code != "B1" {
		t.Errorf("unexpected code %q", sheet.Items()[0].Code)
	}
}

func TestReadMissingColumns(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"Empty file", ""},
		{"No code column", "Code,ItemName,SalesUnitPrice\n"},
		{"No name column", "ItemCode,Name,SalesUnitPrice\n"},
		{"No price column", "ItemCode,ItemName,Price\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tc.input)); !errors.Is(err, ErrMissingColumn) {
				t.Errorf("expected ErrMissingColumn, got %v", err)
			}
		})
	}
}

func TestWriteReplacesOnlySetPrices(t *testing.T) {
	sheet, err := Read(strings.NewReader(export))
	if err != nil {
		t.Fatal(err)
	}
	if err := sheet.SetPrice(0, decimal.RequireFromString("15")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := sheet.Write(&buf); err != nil {
		t.Fatal(err)
	}

	want := "*ItemCode,ItemName,SalesUnitPrice,Description\n" +
		"A1002,Rear Light Lens A1002,15.00,\"Lens, rear\"\n" +
		"J21066,Brake Caliper J21066,,Caliper\n" +
		"X1,Widget,n/a,\n"
	if buf.String() != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestSetPriceOutOfRange(t *testing.T) {
	sheet, err := Read(strings.NewReader(export))
	if err != nil {
		t.Fatal(err)
	}
	if err := sheet.SetPrice(3, decimal.NewFromInt(1)); err == nil {
		t.Error("expected error for missing row")
	}
}

func TestSetPriceShortRow(t *testing.T) {
	sheet, err := Read(strings.NewReader("ItemCode,ItemName,SalesUnitPrice\nB1,Bolt B1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if err := sheet.SetPrice(0, decimal.RequireFromString("2.5")); err != nil {
		t.Fatal(err)
	}
	if sheet.Rows[0][2] != "2.50" {
		t.Errorf("expected padded row with price, got %v", sheet.Rows[0])
	}
}

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"12.50", "12.5"},
		{" 1,079.00 ", "1079"},
		{"£3.20", "3.2"},
		{"", "0"},
		{"n/a", "0"},
	}

	for _, tc := range testCases {
		if got := ParsePrice(tc.input); !got.Equal(decimal.RequireFromString(tc.expected)) {
			t.Errorf("ParsePrice(%q) = %s; want %s", tc.input, got, tc.expected)
		}
	}
}
