package models

import "fmt"

// Resolution is the sampling interval of a bar sequence.
type Resolution string

const (
	Intraday Resolution = "5min"
	EndOfDay Resolution = "1day"
)

// Resolutions lists every supported resolution.
var Resolutions = []Resolution{Intraday, EndOfDay}

func (r Resolution) String() string { return string(r) }

// IsValid returns true if r is a supported resolution.
func (r Resolution) IsValid() bool {
	return r == Intraday || r == EndOfDay
}

// DisplayWindow is the chart range requested by the user.
type DisplayWindow string

const (
	OneDay     DisplayWindow = "1D"
	FiveDay    DisplayWindow = "5D"
	OneMonth   DisplayWindow = "1M"
	SixMonth   DisplayWindow = "6M"
	OneYear    DisplayWindow = "1Y"
	YearToDate DisplayWindow = "YTD"
	FiveYear   DisplayWindow = "5Y"
)

// DisplayWindows lists every window in UI order.
var DisplayWindows = []DisplayWindow{OneDay, FiveDay, OneMonth, SixMonth, OneYear, YearToDate, FiveYear}

// Resolution maps the window to the cache it reads from.
func (w DisplayWindow) Resolution() Resolution {
	if w.IsIntraday() {
		return Intraday
	}
	return EndOfDay
}

// IsIntraday reports whether the window is served by intraday bars.
func (w DisplayWindow) IsIntraday() bool {
	return w == OneDay || w == FiveDay
}

// IsValid returns true if w is a supported window.
func (w DisplayWindow) IsValid() bool {
	for _, x := range DisplayWindows {
		if x == w {
			return true
		}
	}
	return false
}

// ParseDisplayWindow converts raw input into a window.
func ParseDisplayWindow(s string) (DisplayWindow, error) {
	w := DisplayWindow(s)
	if !w.IsValid() {
		return "", fmt.Errorf("unsupported display window %q", s)
	}
	return w, nil
}
