package billing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`₹?\s*([\d,]+\.\d{2})\s*$`),
	regexp.MustCompile(`₹?\s*([\d,]+)\s*$`),
}

// ParseAmount extracts a trailing amount from text. Patterns are tried in order
// and a pattern whose capture does not parse falls through to the next.
func ParseAmount(text string) (float64, bool) {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0, false
	}
	for _, re := range amountPatterns {
		m := re.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

// BlockAmount prefers the last parseable column, then the whole row text.
func BlockAmount(columns []string, text string) (float64, bool) {
	for i := len(columns) - 1; i >= 0; i-- {
		if v, ok := ParseAmount(columns[i]); ok {
			return v, true
		}
	}
	return ParseAmount(text)
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
