package integration

import "strings"

// localCountryCode is the phone country code stripped from
// identifications derived from phone numbers.
const localCountryCode = "57"

// placeholderIdentification is used when no identification can be
// derived from the customer record at all.
const placeholderIdentification = "3000000000"

// FallbackIdentification resolves a contact identification when the
// order supplies none explicitly: digits are extracted from the phone
// number, the local country code is dropped when the number is longer
// than ten digits, and a fixed placeholder covers the empty case.
func FallbackIdentification(explicit, phone string) string {
	if explicit != "" {
		return explicit
	}
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, localCountryCode) && len(digits) > 10 {
		digits = digits[len(localCountryCode):]
	}
	if digits == "" {
		return placeholderIdentification
	}
	return digits
}
