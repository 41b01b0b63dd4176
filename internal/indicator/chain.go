package indicator

import "AlphaChart/internal/domain/models"

// chainEMA smooths the output of a previous EMA pass with the same period.
//
// The pass starts at the first defined input and takes that value as its
// seed, so the chained series is defined from the same index as its input.
// Undefined inputs after the seed are read as 0.
func chainEMA(in []models.Value, k int) []models.Value {
	out := make([]models.Value, len(in))
	if k <= 0 {
		return out
	}
	alpha := 2.0 / float64(k+1)

	start := -1
	for i, v := range in {
		if v.Valid {
			start = i
			break
		}
	}
	if start < 0 {
		return out
	}

	prev := in[start].V
	out[start] = models.Some(prev)
	for i := start + 1; i < len(in); i++ {
		prev = (in[i].OrZero()-prev)*alpha + prev
		out[i] = models.Some(prev)
	}
	return out
}
