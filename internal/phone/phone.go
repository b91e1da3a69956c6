// Package phone validates and formats phone numbers against a regional rule.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidPhoneFormat = errors.New("invalid phone number format")

type Kind string

const (
	KindEmpty    Kind = "empty"
	KindMobile   Kind = "mobile"
	KindLandline Kind = "landline"
	KindInvalid  Kind = "invalid"
)

// Rule is a country specific numbering plan.
type Rule struct {
	CountryCode string
	MinDigits   int
	MaxDigits   int
	Mobile      *regexp.Regexp
	Landline    *regexp.Regexp
}

var (
	indiaMobile = regexp.MustCompile(`^[6-9]\d{9}$`)
	// trunk prefix 0, then an area code that never starts with 0
	indiaLandline = regexp.MustCompile(`^0[1-9]\d{8,9}$`)
)

// India returns the Indian numbering plan. An empty country code defaults to 91.
// Landlines must carry the trunk 0: a 10 digit number without it is treated
// as a would-be mobile and rejected, so 1234567890 is invalid.
func India(countryCode string) Rule {
	countryCode = strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
	if countryCode == "" {
		countryCode = "91"
	}

	return Rule{
		CountryCode: countryCode,
		MinDigits:   10,
		MaxDigits:   11,
		Mobile:      indiaMobile,
		Landline:    indiaLandline,
	}
}

// Normalize strips every non-digit character.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate classifies raw input. Empty input is not an error: the field has simply not been entered yet.
func (r Rule) Validate(raw string) (Kind, error) {
	digits := Normalize(raw)

	if digits == "" {
		return KindEmpty, nil
	}

	if len(digits) < r.MinDigits || len(digits) > r.MaxDigits {
		return KindInvalid, ErrInvalidPhoneFormat
	}

	switch {
	case r.Mobile != nil && r.Mobile.MatchString(digits):
		return KindMobile, nil
	case r.Landline != nil && r.Landline.MatchString(digits):
		return KindLandline, nil
	default:
		return KindInvalid, ErrInvalidPhoneFormat
	}
}

// Format renders mobiles as +CC-XXXXX-XXXXX. Anything else is returned unchanged.
func (r Rule) Format(raw string) string {
	kind, err := r.Validate(raw)
	if err != nil || kind != KindMobile {
		return raw
	}

	digits := Normalize(raw)
	half := len(digits) / 2

	return "+" + r.CountryCode + "-" + digits[:half] + "-" + digits[half:]
}
