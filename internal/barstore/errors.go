package barstore

import (
	"errors"
	"fmt"

	"AlphaChart/internal/domain/models"
)

var (
	// ErrStaleSymbol is returned when a fetch completes after its symbol
	// stopped being the active one. The result is discarded.
	ErrStaleSymbol = errors.New("barstore: symbol no longer active")
	// ErrSuperseded is returned when a newer fetch for the same key has
	// already been applied.
	ErrSuperseded = errors.New("barstore: superseded by newer fetch")
)

// FetchError wraps a failed fetch. The cached bars for the key are untouched.
type FetchError struct {
	Symbol     string
	Resolution models.Resolution
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", e.Symbol, e.Resolution, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsDiscarded reports whether err means the result was dropped rather
// than failed. Such errors are never shown to users.
func IsDiscarded(err error) bool {
	return errors.Is(err, ErrStaleSymbol) || errors.Is(err, ErrSuperseded)
}
