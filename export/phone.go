package export

import (
	"strconv"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// PhoneClassifier normalizes captured phone numbers to international
// digits and splits them into mobile and landline numbers by prefix.
type PhoneClassifier struct {
	// CountryCode is the international calling code without "+", e.g. "46".
	CountryCode string
	// MobilePrefixes are matched against the first four digits of the
	// national-format number (trunk zero included). Prefixes may be
	// shorter than four digits.
	MobilePrefixes []string
}

// Normalize strips separators and any leading country code, then
// re-prefixes the national significant number with the country code.
// Normalizing an already-normalized number is a no-op, and "" yields "".
func (c PhoneClassifier) Normalize(raw string) string {
	digits := digitsOnly(raw)
	if digits == "" {
		return ""
	}
	nsn := c.nationalSignificant(raw, digits)
	if nsn == "" {
		return ""
	}
	return c.CountryCode + nsn
}

// Classify normalizes a number and returns it in either the mobile or
// the landline position depending on its prefix. Exactly one of the two
// return values is non-empty for a non-empty input.
func (c PhoneClassifier) Classify(raw string) (mobile, landline string) {
	digits := digitsOnly(raw)
	if digits == "" {
		return "", ""
	}
	nsn := c.nationalSignificant(raw, digits)
	if nsn == "" {
		return "", ""
	}
	normalized := c.CountryCode + nsn
	if c.isMobile("0" + nsn) {
		return normalized, ""
	}
	return "", normalized
}

func (c PhoneClassifier) isMobile(national string) bool {
	window := national
	if len(window) > 4 {
		window = window[:4]
	}
	for _, prefix := range c.MobilePrefixes {
		if strings.HasPrefix(window, prefix) {
			return true
		}
	}
	return false
}

// nationalSignificant reduces a number to its national significant
// digits, without country code or trunk zero.
func (c PhoneClassifier) nationalSignificant(raw, digits string) string {
	switch {
	case strings.HasPrefix(digits, "00"+c.CountryCode):
		return strings.TrimPrefix(digits, "00"+c.CountryCode)
	case strings.HasPrefix(digits, c.CountryCode) && len(digits) > len(c.CountryCode):
		return strings.TrimPrefix(digits, c.CountryCode)
	case strings.HasPrefix(digits, "0"):
		return strings.TrimPrefix(digits, "0")
	}
	// No trunk zero and no recognisable country code, fall back to a
	// full parse the way numbers with foreign prefixes are handled.
	if cc, err := strconv.Atoi(c.CountryCode); err == nil {
		if num, err := libphonenumber.Parse(raw, libphonenumber.GetRegionCodeForCountryCode(cc)); err == nil {
			return libphonenumber.GetNationalSignificantNumber(num)
		}
	}
	return digits
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
