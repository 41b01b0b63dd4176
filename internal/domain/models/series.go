package models

import "time"

// Series is the composed value a chart consumes.
type Series struct {
	Symbol         string         `json:"symbol"`
	Window         DisplayWindow  `json:"window"`
	Resolution     Resolution     `json:"resolution"`
	Bars           []AnnotatedBar `json:"series"`
	AvgVolume      Value          `json:"avgVolume"`
	LookbackPeriod int            `json:"lookbackPeriod"`
}

// SeriesView is the reactive state of one chart instance.
// Error is empty unless the last fetch for the active window failed.
type SeriesView struct {
	Series
	IsLoading   bool      `json:"isLoading"`
	Error       string    `json:"error,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
	MarketOpen  bool      `json:"marketOpen"`
}

// RefreshEvent describes a successful cache replacement.
type RefreshEvent struct {
	Symbol     string     `json:"symbol"`
	Resolution Resolution `json:"resolution"`
	Bars       int        `json:"bars"`
	LastBar    time.Time  `json:"last_bar"`
	FetchedAt  time.Time  `json:"fetched_at"`
}

// MarketStatus is the open/closed signal fed into schedulers.
type MarketStatus struct {
	IsMarketOpen bool      `json:"isMarketOpen"`
	Source       string    `json:"source"`
	CheckedAt    time.Time `json:"checkedAt"`
}
