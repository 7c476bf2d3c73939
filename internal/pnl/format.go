package pnl

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Dash is the placeholder for effectively-zero amounts and undefined
// percentages.
const Dash = "-"

var oneHundred = decimal.NewFromInt(100)

// Formatter renders report amounts for display: nearest-integer rounding,
// thousands separators, parenthesised negatives, dash for near-zero.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter builds a formatter with English digit grouping.
func NewFormatter() *Formatter {
	return &Formatter{printer: message.NewPrinter(language.English)}
}

// Amount formats a rolled-up value. Magnitudes below Epsilon render as a
// dash; negatives render parenthesised without a minus sign.
func (f *Formatter) Amount(v decimal.Decimal) string {
	if v.Abs().LessThan(Epsilon) {
		return Dash
	}
	n := v.Round(0).IntPart()
	if n < 0 {
		return "(" + f.printer.Sprintf("%d", -n) + ")"
	}
	return f.printer.Sprintf("%d", n)
}

// Percent renders value as a share of the column's rolled-up Income total.
// A zero income total yields a dash, never a division result.
func (f *Formatter) Percent(value, income decimal.Decimal) string {
	if income.IsZero() {
		return Dash
	}
	pct := value.Mul(oneHundred).Div(income).Round(0).IntPart()
	if pct < 0 {
		return "(" + f.printer.Sprintf("%d", -pct) + "%)"
	}
	return f.printer.Sprintf("%d", pct) + "%"
}
