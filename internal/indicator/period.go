package indicator

import "AlphaChart/internal/domain/models"

// LookbackPeriod returns the indicator period used for a display window.
func LookbackPeriod(w models.DisplayWindow) int {
	switch w {
	case models.OneDay, models.FiveDay:
		return 20
	case models.OneMonth:
		return 10
	case models.SixMonth, models.YearToDate:
		return 20
	case models.OneYear:
		return 50
	case models.FiveYear:
		return 200
	default:
		return 20
	}
}

// Annotate attaches overlays computed with period k to each bar.
func Annotate(bars []models.Bar, k int) []models.AnnotatedBar {
	res := Compute(models.Closes(bars), k)
	out := make([]models.AnnotatedBar, len(bars))
	for i, b := range bars {
		out[i] = models.AnnotatedBar{
			Bar:   b,
			Price: b.Close,
			IndicatorSet: models.IndicatorSet{
				SMA:  res.SMA[i],
				EMA:  res.EMA[i],
				WMA:  res.WMA[i],
				DEMA: res.DEMA[i],
				TEMA: res.TEMA[i],
			},
		}
	}
	return out
}
