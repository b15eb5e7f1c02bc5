package nutrition

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseNumber reads user-entered numeric text leniently. A leading numeric
// prefix is accepted ("40g" is 40); text with no such prefix, NaN and
// infinities read as 0. Negative values are clamped to 0.
func ParseNumber(text string) float64 {
	m := leadingNumber.FindString(strings.TrimSpace(text))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	return v
}

// FormatNumber renders a quantity without a trailing ".0" and with at most one
// decimal place.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
