package utils

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Today returns the calendar date at now in loc. A nil loc means UTC.
func Today(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(now.In(loc))
}

// ParseDate parses a YYYY-MM-DD date. The lending api sometimes appends a
// time component, which is dropped.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		s = s[:10]
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// ParseDateOr returns fallback when s is empty.
func ParseDateOr(s string, fallback civil.Date) (civil.Date, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return ParseDate(s)
}

// DecimalFromString converts string to decimal.Decimal. Blank input is zero.
func DecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// FormatMoney renders an amount with a fixed number of places and grouped
// thousands, e.g. 1234567.5 -> "1,234,567.50".
func FormatMoney(amount decimal.Decimal, places int32) string {
	text := amount.StringFixed(places)

	sign := ""
	if strings.HasPrefix(text, "-") {
		sign = "-"
		text = text[1:]
	}

	whole, frac := text, ""
	if i := strings.IndexByte(text, '.'); i >= 0 {
		whole, frac = text[:i], text[i:]
	}

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return sign + b.String() + frac
}
