package models

// Requests for the query and admin HTTP endpoints. Defined in domain for consistency and reuse.

type ContextRequest struct {
	Query string `json:"query" validate:"required,min=2,max=2000"`
	K     int    `json:"k" default:"5" validate:"gte=1,lte=50"`
}

type QuoteRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,min=1,max=32"`
}

type HistoryRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,min=1,max=32"`
	Range    string `query:"range" json:"range" default:"1mo" validate:"oneof=1d 5d 1mo 6mo 1y"`
	Interval string `query:"interval" json:"interval" default:"1d"`
}

type BrokerRequest struct {
	Name string `query:"name" json:"name" validate:"required,min=2,max=128"`
}

type InvalidateCacheRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Kind   string `query:"kind" json:"kind" validate:"omitempty,oneof=quote index history"`
}

type InstallSnapshotRequest struct {
	Path string `json:"path" validate:"required"`
}
