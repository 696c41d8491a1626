package advisor

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"finsight/internal/core"
)

// DefaultCurrencySymbol is used when no symbol is configured.
const DefaultCurrencySymbol = "₹"

// Currency renders amounts with a symbol and locale digit grouping.
type Currency struct {
	Symbol string
	Tag    language.Tag
}

// NewCurrency returns an English-grouped formatter for symbol.
func NewCurrency(symbol string) Currency {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	return Currency{Symbol: symbol, Tag: language.English}
}

// Format renders m as e.g. "₹24,000" or "₹1,234.50". Negative amounts get a
// leading minus before the symbol.
func (c Currency) Format(m core.Money) string {
	p := message.NewPrinter(c.Tag)
	sign := ""
	if m.IsNegative() {
		sign = "-"
		m = m.Abs()
	}
	if m.Cents%100 == 0 {
		return p.Sprintf("%s%s%d", sign, c.Symbol, m.Cents/100)
	}
	return p.Sprintf("%s%s%.2f", sign, c.Symbol, m.Units())
}
