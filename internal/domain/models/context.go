package models

import "time"

// AugmentationContext is the assembled output for one query: normalized
// market facts, ranked passages and ordered compliance findings. Transient;
// shaped for the downstream answer-synthesis step.
type AugmentationContext struct {
	Query        string              `json:"query"`
	MarketFacts  []MarketFact        `json:"market_facts"`
	MarketStatus *MarketStatus       `json:"market_status,omitempty"`
	Retrieved    []RetrievalResult   `json:"retrieved"`
	Findings     []ComplianceFinding `json:"findings"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// AnalyticsEntry is one append-only audit record per BuildContext call.
type AnalyticsEntry struct {
	ID            string    `json:"id"`
	Query         string    `json:"query"`
	Timestamp     time.Time `json:"timestamp"`
	SymbolsFound  []string  `json:"symbols_found"`
	FindingsCount int       `json:"findings_count"`
	CacheHit      bool      `json:"cache_hit"`
	LatencyMs     int64     `json:"latency_ms"`
}
