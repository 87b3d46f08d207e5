// Package money represents monetary amounts as integer cents so that
// arithmetic never touches floating point.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

// Cents is a whole number of minor currency units (e.g. US cents).
type Cents int64

var ErrInvalidAmount = fmt.Errorf("invalid amount")

// ParseDecimal parses a decimal string like "100.00" or "100" into Cents.
// A leading '-' yields a negative amount. It rejects more than two
// fractional digits and non-numeric input.
func ParseDecimal(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && !hasFrac {
		return 0, ErrInvalidAmount
	}
	if whole == "" {
		whole = "0"
	}
	if hasFrac {
		if len(frac) > 2 {
			return 0, ErrInvalidAmount
		}
		for len(frac) < 2 {
			frac += "0"
		}
	} else {
		frac = "00"
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, ErrInvalidAmount
	}
	wholeVal, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	fracVal, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	total := wholeVal*100 + fracVal
	if neg {
		total = -total
	}
	return Cents(total), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String formats Cents as a decimal string with exactly two fractional digits.
func (c Cents) String() string {
	neg := c < 0
	v := int64(c)
	if neg {
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", signPrefix(neg), v/100, v%100)
}

func signPrefix(neg bool) string {
	if neg {
		return "-"
	}
	return ""
}

func (c Cents) Positive() bool { return c > 0 }

func (c Cents) Add(other Cents) Cents { return c + other }

func (c Cents) Sub(other Cents) Cents { return c - other }
