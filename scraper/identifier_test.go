package scraper

import (
	"testing"
	"unicode/utf8"

	"partsync/models"
)

func TestExtractIdentifier(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		description string
		identifier  string
	}{
		{"Trailing identifier", "Rear Light Lens A1002", "Rear Light Lens", "A1002"},
		{"Trailing slash", "Gasket Set ABC/", "Gasket Set", "ABC"},
		{"Only one slash stripped", "Bracket X12//", "Bracket", "X12/"},
		{"Embedded slash kept", "Seal 113/837/311", "Seal", "113/837/311"},
		{"Tab separator", "Brake Caliper\tJ21066", "Brake Caliper", "J21066"},
		{"Non-breaking space", "Brake Caliper\u00a0J21066", "Brake Caliper", "J21066"},
		{"Ideographic space", "Rear Light Lens\u3000A1002", "Rear Light Lens", "A1002"},
		{"No whitespace", "A1002", "A1002", ""},
		{"Empty name", "", "", ""},
		{"Trailing space", "Rear Light Lens ", "Rear Light Lens", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			description, identifier := ExtractIdentifier(tc.input)
			if description != tc.description || identifier != tc.identifier {
				t.Errorf("ExtractIdentifier(%q) = (%q, %q); want (%q, %q)",
					tc.input, description, identifier, tc.description, tc.identifier)
			}
		})
	}
}

func TestRoute(t *testing.T) {
	testCases := []struct {
		identifier string
		expected   models.Source
	}{
		{"J21066", models.SourceJustKampers},
		{"JX", models.SourceJustKampers},
		{"j21066", models.SourceHeritage},
		{"A1002", models.SourceHeritage},
		{"211-611", models.SourceHeritage},
		{"", models.SourceUnknown},
	}

	for _, tc := range testCases {
		if got := Route(tc.identifier); got != tc.expected {
			t.Errorf("Route(%q) = %q; want %q", tc.identifier, got, tc.expected)
		}
	}
}

func TestRouteUsesExtractedIdentifier(t *testing.T) {
	_, identifier := ExtractIdentifier("Oil Filter ABC/")
	if identifier != "ABC" {
		t.Fatalf("expected ABC, got %q", identifier)
	}
	if got := Route(identifier); got != models.SourceHeritage {
		t.Errorf("expected Heritage, got %q", got)
	}

	_, identifier = ExtractIdentifier("Brake Caliper\u00a0J21066")
	if !utf8.ValidString(identifier) {
		t.Fatalf("identifier %q is not valid UTF-8", identifier)
	}
	if got := Route(identifier); got != models.SourceJustKampers {
		t.Errorf("expected JustKampers, got %q", got)
	}
}

func TestSameIdentifier(t *testing.T) {
	testCases := []struct {
		label      string
		identifier string
		expected   bool
	}{
		{"ABC", "ABC", true},
		{"abc", "ABC", true},
		{"A 1002", "A1002", true},
		{"113/837/311", "113837311", true},
		{"A10021", "A1002", false},
		{"", "A1002", false},
	}

	for _, tc := range testCases {
		if got := SameIdentifier(tc.label, tc.identifier); got != tc.expected {
			t.Errorf("SameIdentifier(%q, %q) = %v; want %v", tc.label, tc.identifier, got, tc.expected)
		}
	}
}
