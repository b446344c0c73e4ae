// Package phone canonicalizes inbound phone numbers.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultCountryCode is prepended to bare 10-digit numbers.
const DefaultCountryCode = "1"

// ErrInvalid is returned for inputs with fewer than 10 digits.
var ErrInvalid = errors.New("invalid phone number")

// Canonicalize reduces input to a +<country><digits> form.
//
// Everything except digits and '+' is dropped, then a leading '+' is
// removed. Ten digits get DefaultCountryCode. Anything longer is trusted
// to already carry its country code.
func Canonicalize(input string) (string, error) {
	var b strings.Builder
	for _, r := range input {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimPrefix(b.String(), "+")
	cleaned = strings.ReplaceAll(cleaned, "+", "")

	switch {
	case len(cleaned) == 10:
		return "+" + DefaultCountryCode + cleaned, nil
	case len(cleaned) >= 10:
		return "+" + cleaned, nil
	default:
		return "", ErrInvalid
	}
}

// Display formats a canonical number for humans, falling back to the input
// when the number cannot be parsed.
func Display(canonical string) string {
	number, err := phonenumbers.Parse(canonical, "")
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return canonical
	}
	return phonenumbers.Format(number, phonenumbers.INTERNATIONAL)
}
