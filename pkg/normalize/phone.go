package normalize

import (
	"strings"

	"github.com/AkaBlas/akadressen-utils/pkg/errors"
)

// DefaultCountryCode is the country code assumed for numbers written with a
// single leading "0" trunk prefix when no other code is configured.
const DefaultCountryCode = "49"

// Phone canonicalizes a phone number to a digit-only international form:
// all separators stripped, the "+"/"00" international prefix removed down to
// the bare country code, and a single leading "0" trunk prefix replaced by
// countryCode (falling back to DefaultCountryCode when empty). Two numbers
// denote the same line iff their canonical strings are equal.
//
// Returns a NormalizationError when the input contains no digits.
func Phone(raw, countryCode string) (string, error) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	international := strings.HasPrefix(strings.TrimSpace(raw), "+")

	digits := digitsOf(raw)
	if digits == "" {
		return "", errors.NewNormalizationError("phone", raw, "no digits")
	}

	switch {
	case international:
		return digits, nil
	case strings.HasPrefix(digits, "00"):
		// "0049..." spelling of the international prefix.
		return strings.TrimPrefix(digits, "00"), nil
	case strings.HasPrefix(digits, "0"):
		// National trunk prefix.
		return countryCode + digits[1:], nil
	default:
		// Already written without any prefix, e.g. from a chat-platform
		// export. Assume it carries its country code.
		return digits, nil
	}
}

// SamePhone reports whether two raw numbers canonicalize to the same line
// under the given default country code. Numbers that cannot be normalized
// compare unequal.
func SamePhone(a, b, countryCode string) bool {
	ca, err := Phone(a, countryCode)
	if err != nil {
		return false
	}
	cb, err := Phone(b, countryCode)
	if err != nil {
		return false
	}
	return ca == cb
}

// digitsOf strips every non-digit character.
func digitsOf(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
