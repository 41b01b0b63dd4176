// Package indicator computes moving-average overlays over close-price series.
//
// Every function here is pure: the same closes and period always produce the
// same output, and results are recomputed in full on every call.
package indicator

import (
	"AlphaChart/internal/domain/models"

	"github.com/markcheno/go-talib"
)

// Result holds five sequences aligned with the input closes.
type Result struct {
	SMA  []models.Value
	EMA  []models.Value
	WMA  []models.Value
	DEMA []models.Value
	TEMA []models.Value
}

// Compute evaluates all overlays for closes with lookback period k.
func Compute(closes []float64, k int) Result {
	n := len(closes)
	res := Result{
		SMA:  make([]models.Value, n),
		EMA:  make([]models.Value, n),
		WMA:  make([]models.Value, n),
		DEMA: make([]models.Value, n),
		TEMA: make([]models.Value, n),
	}
	if k <= 0 || n < k {
		return res
	}

	res.SMA = SMA(closes, k)
	res.WMA = WMA(closes, k)

	ema1 := EMA(closes, k)
	ema2 := chainEMA(ema1, k)
	ema3 := chainEMA(ema2, k)
	res.EMA = ema1

	for i := 0; i < n; i++ {
		if ema1[i].Valid && ema2[i].Valid {
			res.DEMA[i] = models.Some(2*ema1[i].V - ema2[i].V)
		}
		if ema1[i].Valid && ema2[i].Valid && ema3[i].Valid {
			res.TEMA[i] = models.Some(3*ema1[i].V - 3*ema2[i].V + ema3[i].V)
		}
	}
	return res
}

// SMA is the arithmetic mean of the trailing k closes.
func SMA(closes []float64, k int) []models.Value {
	if k <= 0 || len(closes) < k {
		return make([]models.Value, len(closes))
	}
	return mask(talib.Sma(closes, k), k-1)
}

// WMA weights the trailing k closes linearly, the most recent by k.
func WMA(closes []float64, k int) []models.Value {
	if k <= 0 || len(closes) < k {
		return make([]models.Value, len(closes))
	}
	return mask(talib.Wma(closes, k), k-1)
}

// EMA seeds with the SMA of the first k closes at index k-1 and smooths
// with alpha = 2/(k+1) from there on.
func EMA(closes []float64, k int) []models.Value {
	if k <= 0 || len(closes) < k {
		return make([]models.Value, len(closes))
	}
	return mask(talib.Ema(closes, k), k-1)
}

// mask marks the first `from` entries as undefined.
func mask(raw []float64, from int) []models.Value {
	out := make([]models.Value, len(raw))
	for i := from; i < len(raw); i++ {
		out[i] = models.Some(raw[i])
	}
	return out
}
