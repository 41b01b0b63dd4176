package repository

import "AlphaChart/internal/domain/models"

// DefaultLimit returns the number of bars requested per resolution.
func DefaultLimit(res models.Resolution) int {
	switch res {
	case models.Intraday:
		return 500
	case models.EndOfDay:
		return 2000
	default:
		return 500
	}
}
