// Package core provides the household domain model and its parsing helpers.
//
// This file contains functions for parsing monetary amounts and counts from
// spreadsheet or form strings and for rendering fixed-precision figures.
package core

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyNumber   = errors.New("empty number")
	ErrInvalidNumber = errors.New("invalid number")
)

// ParseAmount converts a decimal string to a float64.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. When both
// appear, commas are treated as thousands separators (1,234.50). Signs are kept
// so that range checks stay with the validator.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("12,34")    -> 12.34, nil
//	ParseAmount("1,234.50") -> 1234.5, nil
func ParseAmount(s string) (float64, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

var (
	maxCount = decimal.NewFromInt(math.MaxInt)
	minCount = decimal.NewFromInt(math.MinInt)
)

// ParseCount converts a numeric string to an int, truncating any fraction
// ("2.7" -> 2) the way spreadsheet integer columns are usually read. Values
// outside the int range are rejected with ErrInvalidNumber.
func ParseCount(s string) (int, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	whole := d.Truncate(0)
	if whole.GreaterThan(maxCount) || whole.LessThan(minCount) {
		return 0, ErrInvalidNumber
	}
	return int(whole.IntPart()), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyNumber
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidNumber
	}
	return d, nil
}

// FormatFixed renders v with exactly two decimals, rounding half away from zero.
func FormatFixed(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatPercent renders a ratio as a percentage string with two decimals ("68.00%").
func FormatPercent(ratio float64) string {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return "0.00%"
	}
	return decimal.NewFromFloat(ratio).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}
