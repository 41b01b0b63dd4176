package util

import (
    "math"
    "strconv"
    "strings"
)

// ParseFloatDefault parses string to float64 or returns default if empty,
// invalid, NaN or infinite.
func ParseFloatDefault(s string, def float64) float64 {
    s = strings.TrimSpace(s)
    if s == "" {
        return def
    }
    v, err := strconv.ParseFloat(s, 64)
    if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
        return def
    }
    return v
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(s string) string {
    return strings.ToUpper(strings.TrimSpace(s))
}
