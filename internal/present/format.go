// Package present turns unrounded pricing breakdowns into display strings.
package present

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/noah-isme/backend-promo/internal/pricing"
)

// DefaultLocale is the storefront locale.
const DefaultLocale = "es-AR"

var half = decimal.New(5, -1)

// Display holds the formatted rows shown to shoppers.
type Display struct {
	TotalWithoutDiscount string `json:"totalWithoutDiscount"`
	HalfPriceDiscount    string `json:"halfPriceDiscount"`
	ThreeForTwoDiscount  string `json:"threeForTwoDiscount"`
	BulkDiscount         string `json:"bulkDiscount"`
	TotalDiscounts       string `json:"totalDiscounts"`
	Subtotal             string `json:"subtotal"`
	Total                string `json:"total"`
}

// Formatter rounds amounts to whole units and groups thousands for a locale.
type Formatter struct {
	locale  language.Tag
	printer *message.Printer
}

// NewFormatter builds a formatter for a BCP 47 locale; unknown or empty locales fall
// back to DefaultLocale.
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.MustParse(DefaultLocale)
	}
	return Formatter{locale: tag, printer: message.NewPrinter(tag)}
}

// Locale reports the resolved locale tag.
func (f Formatter) Locale() string {
	return f.resolved().locale.String()
}

// Round rounds half up to a whole unit.
func Round(d decimal.Decimal) int64 {
	return d.Add(half).Floor().IntPart()
}

// FormatCurrency rounds d to a whole unit and formats it with locale grouping.
func (f Formatter) FormatCurrency(d decimal.Decimal) string {
	return f.resolved().printer.Sprintf("%d", Round(d))
}

// Render formats every row of a breakdown.
func (f Formatter) Render(b pricing.Breakdown) Display {
	return Display{
		TotalWithoutDiscount: f.FormatCurrency(b.GrossTotal),
		HalfPriceDiscount:    f.FormatCurrency(b.HalfPriceDiscount),
		ThreeForTwoDiscount:  f.FormatCurrency(b.ThreeForTwoDiscount),
		BulkDiscount:         f.FormatCurrency(b.BulkDiscount),
		TotalDiscounts:       f.FormatCurrency(b.TotalDiscount),
		Subtotal:             f.FormatCurrency(b.Subtotal()),
		Total:                f.FormatCurrency(b.FinalTotal),
	}
}

func (f Formatter) resolved() Formatter {
	if f.printer == nil {
		return NewFormatter(DefaultLocale)
	}
	return f
}
