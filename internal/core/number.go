package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

var ErrInvalidNumber = errors.New("invalid number")

// ParseNumber parses a numeric field value as stored by the record store.
//
// Full-width digits are folded to ASCII, thousands separators are removed
// and surrounding blanks are ignored. An empty string is an error so that
// callers can tell "absent" from "zero".
//
// Examples:
//
//	ParseNumber("12500")   -> 12500
//	ParseNumber("1,250.5") -> 1250.5
//	ParseNumber("１２")     -> 12
func ParseNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(norm.NFKC.String(s))
	if s == "" {
		return decimal.Zero, ErrInvalidNumber
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidNumber
	}
	return d, nil
}

// Number is ParseNumber with absent or malformed values read as zero.
func Number(s string) decimal.Decimal {
	d, err := ParseNumber(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
