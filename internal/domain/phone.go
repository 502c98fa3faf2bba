package domain

import (
	"fmt"
	"strings"
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// NormalizePhone canonicalizes a dialable phone number to +<digits> form.
// Ten-digit national numbers are assumed US and prefixed with +1. Anything
// that does not reduce to 10-15 digits is rejected.
func NormalizePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: phone is required", ErrValidation)
	}

	var digits strings.Builder
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' && i == 0:
			// leading plus is dropped and re-added below
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			// common formatting characters
		default:
			return "", fmt.Errorf("%w: phone %q contains invalid character %q", ErrValidation, raw, r)
		}
	}

	number := digits.String()
	if len(number) < minPhoneDigits || len(number) > maxPhoneDigits {
		return "", fmt.Errorf("%w: phone %q must contain %d-%d digits (got %d)",
			ErrValidation, raw, minPhoneDigits, maxPhoneDigits, len(number))
	}

	if len(number) == minPhoneDigits {
		number = "1" + number
	}

	return "+" + number, nil
}

// IsCanonicalPhone reports whether s is already in +<digits> canonical form.
func IsCanonicalPhone(s string) bool {
	normalized, err := NormalizePhone(s)
	return err == nil && normalized == s
}
