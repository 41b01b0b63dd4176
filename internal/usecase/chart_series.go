package usecase

import (
	"time"

	"AlphaChart/internal/domain/models"
	"AlphaChart/internal/indicator"
	"AlphaChart/internal/rangeselect"
)

// Compose truncates bars to window as seen at now and annotates them with
// the window's indicators.
func Compose(symbol string, window models.DisplayWindow, bars []models.Bar, now time.Time) *models.Series {
	filtered := rangeselect.Select(bars, window, now)
	k := indicator.LookbackPeriod(window)
	return &models.Series{
		Symbol:         symbol,
		Window:         window,
		Resolution:     window.Resolution(),
		Bars:           indicator.Annotate(filtered, k),
		AvgVolume:      averageVolume(filtered),
		LookbackPeriod: k,
	}
}

func averageVolume(bars []models.Bar) models.Value {
	if len(bars) == 0 {
		return models.None()
	}
	var sum float64
	for _, b := range bars {
		sum += b.Volume
	}
	return models.Some(sum / float64(len(bars)))
}
