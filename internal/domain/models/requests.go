package models

// Requests for the series HTTP endpoints. Defined in domain for consistency and reuse.

type SeriesRequest struct {
	Chart  string `query:"chart" json:"chart" default:"default" validate:"max=64"`
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
	Window string `query:"window" json:"window" default:"1D" validate:"oneof=1D 5D 1M 6M 1Y YTD 5Y"`
}

type RefetchRequest struct {
	Chart string `query:"chart" json:"chart" default:"default" validate:"max=64"`
}

// StreamCommand is sent by websocket clients to retarget a streamed chart.
type StreamCommand struct {
	Symbol string `json:"symbol" validate:"required,symbol"`
	Window string `json:"window" default:"1D" validate:"oneof=1D 5D 1M 6M 1Y YTD 5Y"`
	Action string `json:"action" default:"view" validate:"oneof=view refetch"`
}
