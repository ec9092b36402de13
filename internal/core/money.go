// Package core provides the calculator's domain types and arithmetic.
//
// This file contains the numeric coercion applied to every user-editable
// number and the currency formatting used for display.
package core

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usd = message.NewPrinter(language.AmericanEnglish)

// Coerce converts raw user input into a stored number.
//
// Input that does not parse as a finite real number becomes 0; anything
// else is clamped at 0 from below. The result is always finite and >= 0,
// and Coerce is idempotent on its own output.
//
// Examples:
//
//	Coerce("12.5") -> 12.5
//	Coerce("-5")   -> 0
//	Coerce("abc")  -> 0
func Coerce(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return CoerceFloat(v)
}

// CoerceFloat applies the same clamp as Coerce to an already numeric value.
func CoerceFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// RoundCents rounds half away from zero to two decimal places.
func RoundCents(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}

// FormatCurrency renders an amount as US dollars with grouping, e.g. "$3,466.40".
// Negative amounts carry a leading minus: "-$120.00".
func FormatCurrency(v float64) string {
	v = RoundCents(v)
	if v < 0 {
		return "-" + usd.Sprintf("$%.2f", -v)
	}
	return usd.Sprintf("$%.2f", v)
}
