// Package markethours answers whether an exchange is trading at a given time.
package markethours

import (
	"time"

	"github.com/scmhub/calendar"
)

// DefaultMIC is the exchange used when none is configured.
const DefaultMIC = "xnys"

// Calendar wraps an exchange calendar. When no calendar can be loaded it
// falls back to Mon-Fri 09:30-16:00 America/New_York without holidays.
type Calendar struct {
	cal      *calendar.Calendar
	loc      *time.Location
	fallback bool
}

// New loads the calendar for mic, trying DefaultMIC before falling back.
func New(mic string) *Calendar {
	if mic == "" {
		mic = DefaultMIC
	}
	cal := calendar.GetCalendar(mic)
	if cal == nil && mic != DefaultMIC {
		cal = calendar.GetCalendar(DefaultMIC)
	}
	if cal == nil {
		return Fallback()
	}
	return &Calendar{cal: cal, loc: cal.Loc}
}

// Fallback returns the weekday-hours calendar.
func Fallback() *Calendar {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	return &Calendar{loc: loc, fallback: true}
}

// Location returns the exchange time zone.
func (c *Calendar) Location() *time.Location { return c.loc }

// IsFallback reports whether holidays are being ignored.
func (c *Calendar) IsFallback() bool { return c.fallback }

// IsTradingDay reports whether t falls on a business day.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	t = t.In(c.loc)
	if c.fallback {
		wd := t.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	return c.cal.IsBusinessDay(t)
}

// IsOpen reports whether the regular session is running at t.
func (c *Calendar) IsOpen(t time.Time) bool {
	t = t.In(c.loc)
	if !c.fallback {
		return c.cal.IsOpen(t)
	}
	if !c.IsTradingDay(t) {
		return false
	}
	mins := t.Hour()*60 + t.Minute()
	return mins >= 9*60+30 && mins < 16*60
}
