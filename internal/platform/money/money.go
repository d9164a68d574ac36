// Package money formats and converts monetary amounts. Amounts travel
// through the service as int64 minor units of an ISO 4217 currency and
// only become display strings at the edge.
package money

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const fallbackLocale = "en"

// Scale returns the number of decimal digits used by the currency,
// e.g. 2 for GBP and 0 for JPY. Unknown codes report an error.
func Scale(code string) (int, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return 0, fmt.Errorf("money: unknown currency %q: %w", code, err)
	}
	scale, _ := currency.Cash.Rounding(unit)
	return scale, nil
}

// ToMinorUnits converts a decimal amount into minor units of the given
// currency, rounding half away from zero.
func ToMinorUnits(amount float64, code string) (int64, error) {
	scale, err := Scale(code)
	if err != nil {
		return 0, err
	}
	scaled := amount * math.Pow10(scale)
	return int64(math.Round(scaled)), nil
}

// FromMinorUnits converts minor units back into a decimal amount.
func FromMinorUnits(minor int64, code string) (float64, error) {
	scale, err := Scale(code)
	if err != nil {
		return 0, err
	}
	return float64(minor) / math.Pow10(scale), nil
}

// Format renders minor units as a locale-aware currency string, e.g.
// Format(18997, "GBP", "en-GB") == "£189.97". Unparseable locales fall
// back to English rather than failing the render.
func Format(minor int64, code, locale string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("money: unknown currency %q: %w", code, err)
	}

	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(fallbackLocale)
	}

	scale, _ := currency.Cash.Rounding(unit)
	amount := float64(minor) / math.Pow10(scale)

	printer := message.NewPrinter(tag)
	return printer.Sprint(currency.Symbol(unit.Amount(amount))), nil
}
