package models

import "time"

// FactKind categorizes a market fact.
type FactKind string

const (
	KindQuote   FactKind = "quote"
	KindIndex   FactKind = "index"
	KindHistory FactKind = "history"
)

// MarketState describes the trading session at the time a fact was captured.
type MarketState string

const (
	MarketOpen    MarketState = "open"
	MarketClosed  MarketState = "closed"
	MarketPreOpen MarketState = "pre_open"
	MarketUnknown MarketState = "unknown"
)

// QuotePayload carries last-traded data for an instrument or index.
type QuotePayload struct {
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Open          float64 `json:"open,omitempty"`
	High          float64 `json:"high,omitempty"`
	Low           float64 `json:"low,omitempty"`
	PrevClose     float64 `json:"prev_close,omitempty"`
	Volume        int64   `json:"volume,omitempty"`
}

// Bar is a single OHLCV bar from a historical series.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// MarketFact is the normalized output of any market data source.
// Immutable once constructed; adapters never return partially-filled facts.
type MarketFact struct {
	Symbol      string        `json:"symbol"`
	Kind        FactKind      `json:"kind"`
	Quote       *QuotePayload `json:"quote,omitempty"`
	Bars        []Bar         `json:"bars,omitempty"`
	AsOf        time.Time     `json:"as_of"`
	MarketState MarketState   `json:"market_state"`
	Source      string        `json:"source"`
}

// MarketStatus is the computed session state, never fetched from upstream.
type MarketStatus struct {
	Open           bool        `json:"open"`
	State          MarketState `json:"state"`
	Now            time.Time   `json:"now"`
	NextEvent      string      `json:"next_event"` // "market_open" | "market_close"
	NextTransition time.Time   `json:"next_transition"`
}

// HistoryRange selects how far back a historical series goes.
type HistoryRange string

const (
	Range1D HistoryRange = "1d"
	Range5D HistoryRange = "5d"
	Range1M HistoryRange = "1mo"
	Range6M HistoryRange = "6mo"
	Range1Y HistoryRange = "1y"
)
