package format

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CurrencyFormatter renders amounts as whole currency units with the locale's
// digit grouping, e.g. "₹12,499".
type CurrencyFormatter struct {
	printer *message.Printer
	symbol  string
}

// NewCurrencyFormatter builds a formatter for a BCP 47 locale such as "en-IN".
func NewCurrencyFormatter(locale, symbol string) (*CurrencyFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("format: invalid locale %q: %w", locale, err)
	}
	return &CurrencyFormatter{printer: message.NewPrinter(tag), symbol: symbol}, nil
}

// Format renders amount rounded to zero fraction digits. A nil amount renders
// the same as zero.
func (f *CurrencyFormatter) Format(amount *decimal.Decimal) string {
	value := decimal.Zero
	if amount != nil {
		value = *amount
	}
	rounded := value.Round(0)
	digits := f.printer.Sprint(number.Decimal(rounded.Abs().InexactFloat64(), number.MaxFractionDigits(0)))
	if rounded.IsNegative() {
		return "-" + f.symbol + digits
	}
	return f.symbol + digits
}

// FormatValue is Format for a non-pointer amount.
func (f *CurrencyFormatter) FormatValue(amount decimal.Decimal) string {
	return f.Format(&amount)
}
