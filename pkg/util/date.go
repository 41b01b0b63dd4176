package util

import (
    "strconv"
    "time"
)

// layouts accepted for bar timestamps, tried in order after RFC3339.
var layouts = []string{
    "2006-01-02 15:04:05",
    "2006-01-02 15:04",
    "2006-01-02T15:04:05",
    "2006-01-02",
}

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    return ParseTimeIn(s, time.UTC)
}

// ParseTimeIn is ParseTime with zone-less layouts ("2006-01-02 15:04:05",
// "2006-01-02") interpreted in loc.
func ParseTimeIn(s string, loc *time.Location) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if loc == nil {
        loc = time.UTC
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    for _, l := range layouts {
        if t, err := time.ParseInLocation(l, s, loc); err == nil {
            return t, true
        }
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0).In(loc), true
    }
    return time.Time{}, false
}

// StartOfDay truncates t to midnight in t's own location.
func StartOfDay(t time.Time) time.Time {
    y, m, d := t.Date()
    return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfYear returns January 1 of t's year in t's location.
func StartOfYear(t time.Time) time.Time {
    return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}
