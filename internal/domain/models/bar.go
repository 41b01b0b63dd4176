package models

import (
	"encoding/json"
	"time"
)

// Bar represents one OHLCV observation for a fixed time bucket.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Price returns the close price.
func (b Bar) Price() float64 { return b.Close }

// Value is an optional indicator reading. Valid is false when there is
// not enough history to compute it.
type Value struct {
	V     float64
	Valid bool
}

// Some wraps a defined value.
func Some(v float64) Value { return Value{V: v, Valid: true} }

// None is the undefined value.
func None() Value { return Value{} }

// OrZero returns the value or 0 when undefined.
func (v Value) OrZero() float64 {
	if !v.Valid {
		return 0
	}
	return v.V
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// IndicatorSet holds the overlay readings attached to a bar.
type IndicatorSet struct {
	SMA  Value `json:"sma"`
	EMA  Value `json:"ema"`
	WMA  Value `json:"wma"`
	DEMA Value `json:"dema"`
	TEMA Value `json:"tema"`
}

// AnnotatedBar is a bar with its indicator readings.
type AnnotatedBar struct {
	Bar
	Price float64 `json:"price"`
	IndicatorSet
}

// Closes extracts close prices in order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
