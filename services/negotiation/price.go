package negotiation

import (
	"regexp"
	"strconv"
	"strings"
)

// Providers quote prices in free text. The grammar tolerates currency markers
// before ("₹1,500", "Rs. 1500", "INR 1500") or after ("1500 rs", "1500/-",
// "1500 rupees", "1500 only") the amount, thousands separators in any
// grouping, and decimals.
var (
	prefixPriceRe = regexp.MustCompile(`(?i)(?:₹|\b(?:rs|inr)\.?)\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)
	suffixPriceRe = regexp.MustCompile(`(?i)([0-9][0-9,]*(?:\.[0-9]+)?)\s*(?:/-|rs\b|rupees?\b|only\b)`)
	barePriceRe   = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?`)
)

// ParsePrice extracts the quoted price from a provider message. Currency
// marked amounts win over bare numbers, and the last marked amount is taken
// as the provider's final word. A bare number only counts when it is the sole
// number in the message; several different bare numbers are ambiguous and
// yield no price.
func ParsePrice(text string) (float64, bool) {
	if m := prefixPriceRe.FindAllStringSubmatch(text, -1); len(m) > 0 {
		return parseAmount(m[len(m)-1][1])
	}
	if m := suffixPriceRe.FindAllStringSubmatch(text, -1); len(m) > 0 {
		return parseAmount(m[len(m)-1][1])
	}

	raw := barePriceRe.FindAllString(text, -1)
	if len(raw) == 0 {
		return 0, false
	}
	first, ok := parseAmount(raw[0])
	if !ok {
		return 0, false
	}
	for _, r := range raw[1:] {
		v, ok := parseAmount(r)
		if !ok || v != first {
			return 0, false
		}
	}
	return first, true
}

func parseAmount(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
