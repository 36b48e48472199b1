package scraper

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var normalizer = strings.NewReplacer(" ", "", "/", "")

// ExtractIdentifier splits an item name on its last whitespace into a
// description and a trailing stock identifier. A name without whitespace
// has no identifier.
func ExtractIdentifier(name string) (description, identifier string) {
	i := strings.LastIndexFunc(name, unicode.IsSpace)
	if i < 0 {
		return name, ""
	}

	// the separator may be a multibyte rune such as NBSP
	_, size := utf8.DecodeRuneInString(name[i:])
	description = strings.TrimSpace(name[:i])
	identifier = strings.TrimSpace(name[i+size:])
	identifier = strings.TrimSuffix(identifier, "/")
	return description, identifier
}

// Normalize prepares an identifier for comparison against a catalog label
func Normalize(identifier string) string {
	return strings.ToUpper(normalizer.Replace(identifier))
}

// SameIdentifier reports whether a catalog label names the identifier
func SameIdentifier(label, identifier string) bool {
	if label == "" {
		return false
	}
	return Normalize(label) == Normalize(identifier)
}
