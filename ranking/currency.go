package ranking

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Converter converts amounts into the reference currency using a fixed rate
// table, cross-rating through the reference. The table is plain
// configuration; unsupported currencies are reported, not errored.
type Converter struct {
	reference string
	// rates holds reference-currency units per one unit of each currency.
	rates map[string]decimal.Decimal
}

// NewConverter builds a Converter from a code → rate table of decimal
// strings. Unparseable entries are skipped. The reference currency always
// converts at 1.
func NewConverter(reference string, rateTable map[string]string) *Converter {
	ref := strings.ToUpper(reference)
	rates := make(map[string]decimal.Decimal, len(rateTable)+1)
	rates[ref] = decimal.NewFromInt(1)
	for code, raw := range rateTable {
		rate, err := decimal.NewFromString(raw)
		if err != nil || rate.Sign() <= 0 {
			continue
		}
		rates[strings.ToUpper(code)] = rate
	}
	return &Converter{reference: ref, rates: rates}
}

// Reference returns the reference currency code.
func (c *Converter) Reference() string { return c.reference }

// Supported reports whether the currency appears in the rate table.
func (c *Converter) Supported(code string) bool {
	_, ok := c.rates[strings.ToUpper(code)]
	return ok
}

// ToReference converts an amount from the given currency into the reference
// currency, rounded to 2 places (banker's rounding). The second return is
// false for unsupported currencies.
func (c *Converter) ToReference(amount decimal.Decimal, from string) (decimal.Decimal, bool) {
	rate, ok := c.rates[strings.ToUpper(from)]
	if !ok {
		return decimal.Zero, false
	}
	return amount.Mul(rate).RoundBank(2), true
}
