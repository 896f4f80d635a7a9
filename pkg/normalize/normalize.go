// Package normalize canonicalizes free-text contact fields into comparable
// keys. Names are lower-cased, diacritic-stripped and whitespace-collapsed;
// phone numbers become a single digit-only international form. Both sources
// of a reconciliation run are normalized the same way, so two differently
// formatted representations of the same person compare equal.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Key is a normalized (given name, family name) tuple.
type Key struct {
	Given  string
	Family string
}

// IsZero reports whether both components are empty.
func (k Key) IsZero() bool {
	return k.Given == "" && k.Family == ""
}

// stripMarks decomposes to NFD, drops combining marks, and recomposes,
// turning e.g. "Müller" into "Muller".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Name canonicalizes a free-text name: diacritics stripped, punctuation
// dropped, lower-cased, internal whitespace collapsed to single spaces.
func Name(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r) || r == '-':
			// Hyphenated double names compare equal to their spaced form.
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// NameKey canonicalizes a given/family name pair.
func NameKey(given, family string) Key {
	return Key{Given: Name(given), Family: Name(family)}
}
