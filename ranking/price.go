// Package ranking turns raw per-source offers into a single comparable,
// deduplicated, totally ordered result set. Parsing and conversion are pure
// and deterministic; nothing in this package performs I/O or errors — offers
// that cannot be normalized are dropped.
package ranking

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// currencyTokens maps price-text indicators (symbols, codes, common
// prefixes) to ISO codes. Longest tokens are matched first so "c$" wins
// over "$".
var currencyTokens = map[string]string{
	"₹":    "INR",
	"rs.":  "INR",
	"rs":   "INR",
	"inr":  "INR",
	"us$":  "USD",
	"usd":  "USD",
	"$":    "USD",
	"€":    "EUR",
	"eur":  "EUR",
	"£":    "GBP",
	"gbp":  "GBP",
	"¥":    "JPY",
	"jpy":  "JPY",
	"aed":  "AED",
	"د.إ":  "AED",
	"c$":   "CAD",
	"cad":  "CAD",
	"a$":   "AUD",
	"aud":  "AUD",
}

// sortedTokens is currencyTokens' keys, longest first, computed once.
var sortedTokens = func() []string {
	keys := make([]string, 0, len(currencyTokens))
	for k := range currencyTokens {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

var isoCodeRe = regexp.MustCompile(`\b([a-z]{3})\b`)

// DetectCurrency resolves a currency code from the source's hint or, failing
// that, from indicators in the price text. Returns "" when unknown.
func DetectCurrency(text, hint string) string {
	if hint != "" {
		h := strings.ToLower(strings.TrimSpace(hint))
		if code, ok := currencyTokens[h]; ok {
			return code
		}
		return strings.ToUpper(h)
	}
	t := strings.ToLower(text)
	if t == "" {
		return ""
	}
	for _, token := range sortedTokens {
		if strings.Contains(t, token) {
			return currencyTokens[token]
		}
	}
	if m := isoCodeRe.FindStringSubmatch(t); m != nil {
		if code, ok := currencyTokens[m[1]]; ok {
			return code
		}
		return strings.ToUpper(m[1])
	}
	return ""
}

const (
	nbsp   = " "
	thinsp = " "
)

var numericTokenRe = regexp.MustCompile(`[0-9][0-9,.']*`)
var groupContinuationRe = regexp.MustCompile(`^\d{3}([.,]\d{1,2})?$`)
var validNumberRe = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ParseAmount extracts a numeric amount from locale-formatted price text.
// It understands Indian ("₹ 1,29,999"), US ("$1,299.99"), and European
// ("1.299,99 €", "1 299,99 €") separator conventions. The second return is
// false when no number could be found.
func ParseAmount(text string) (decimal.Decimal, bool) {
	t := stripCurrency(text)
	if t == "" {
		return decimal.Zero, false
	}

	// The last candidate is conventionally the price when a card shows
	// several figures (strike-through MRP first, sale price last).
	candidates := numberCandidates(t)
	if len(candidates) == 0 {
		return decimal.Zero, false
	}
	s := candidates[len(candidates)-1]

	decSep, thouSep := inferSeparators(s)

	work := strings.ReplaceAll(s, "'", "")
	if thouSep != "" {
		work = strings.ReplaceAll(work, thouSep, "")
	}
	if decSep != "" && decSep != "." {
		work = strings.ReplaceAll(work, decSep, ".")
	}
	work = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, work)

	// Malformed leftovers like "1.299.99": keep the last dot as decimal.
	if strings.Count(work, ".") > 1 {
		last := strings.LastIndex(work, ".")
		work = strings.ReplaceAll(work[:last], ".", "") + work[last:]
	}

	if !validNumberRe.MatchString(work) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(work)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// numberCandidates splits stripped price text into numeric candidates. A
// group one space away joins the previous candidate only when it looks like
// a thousands continuation, so "1 299,99" stays one number while two
// adjacent prices ("89,900 79,900") stay separate.
func numberCandidates(t string) []string {
	idx := numericTokenRe.FindAllStringIndex(t, -1)
	out := make([]string, 0, len(idx))
	for i := 0; i < len(idx); i++ {
		start, end := idx[i][0], idx[i][1]
		cur := t[start:end]
		for i+1 < len(idx) &&
			idx[i+1][0] == end+1 && t[end] == ' ' &&
			groupContinuationRe.MatchString(t[idx[i+1][0]:idx[i+1][1]]) {
			end = idx[i+1][1]
			cur += t[idx[i+1][0]:end]
			i++
		}
		out = append(out, cur)
	}
	return out
}

// stripCurrency removes currency tokens and stray letters, keeping digits,
// separators, and spaces.
func stripCurrency(text string) string {
	t := strings.ReplaceAll(text, nbsp, " ")
	t = strings.ReplaceAll(t, thinsp, " ")
	lower := strings.ToLower(t)
	for _, token := range sortedTokens {
		lower = strings.ReplaceAll(lower, token, " ")
	}
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.', r == '\'', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

// inferSeparators decides which of ',' and '.' is the decimal separator.
// When both appear, the later one is decimal. A lone separator is decimal
// only when exactly 1-2 digits follow it at the end; otherwise it separates
// thousands.
func inferSeparators(s string) (decSep, thouSep string) {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			return ",", "."
		}
		return ".", ","
	case lastComma >= 0:
		if isShortFraction(s[lastComma+1:]) {
			return ",", ""
		}
		return "", ","
	case lastDot >= 0:
		if isShortFraction(s[lastDot+1:]) {
			return ".", ""
		}
		return "", "."
	}
	return "", ""
}

func isShortFraction(tail string) bool {
	if len(tail) < 1 || len(tail) > 2 {
		return false
	}
	for _, r := range tail {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
