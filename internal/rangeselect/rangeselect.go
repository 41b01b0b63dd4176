// Package rangeselect maps display windows to a resolution and a cutoff
// and truncates bar sequences accordingly.
package rangeselect

import (
	"time"

	"AlphaChart/internal/domain/models"
	"AlphaChart/pkg/util"
)

// Resolution returns the cache a window always reads from.
func Resolution(w models.DisplayWindow) models.Resolution {
	return w.Resolution()
}

// Cutoff returns the earliest timestamp kept for w, computed from now's
// calendar day in now's location. ok is false for windows without a cutoff.
func Cutoff(w models.DisplayWindow, now time.Time) (time.Time, bool) {
	today := util.StartOfDay(now)
	switch w {
	case models.OneDay:
		return today, true
	case models.FiveDay:
		return today.AddDate(0, 0, -7), true
	case models.OneMonth:
		return today.AddDate(0, -1, 0), true
	case models.SixMonth:
		return today.AddDate(0, -6, 0), true
	case models.OneYear:
		return today.AddDate(-1, 0, 0), true
	case models.YearToDate:
		return util.StartOfYear(now), true
	default:
		return time.Time{}, false
	}
}

// Select keeps every bar at or after the window's cutoff. Order is
// preserved and the input slice is never modified.
func Select(bars []models.Bar, w models.DisplayWindow, now time.Time) []models.Bar {
	cutoff, ok := Cutoff(w, now)
	if !ok {
		out := make([]models.Bar, len(bars))
		copy(out, bars)
		return out
	}
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if !b.Time.Before(cutoff) {
			out = append(out, b)
		}
	}
	return out
}
