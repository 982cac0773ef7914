package models

// Severity is a compliance classification tier. Lower rank is more severe.
type Severity string

const (
	SeverityIllegal    Severity = "ILLEGAL"
	SeverityHighRisk   Severity = "HIGH_RISK"
	SeverityMediumRisk Severity = "MEDIUM_RISK"
)

// Rank orders severities for presentation: ILLEGAL first.
func (s Severity) Rank() int {
	switch s {
	case SeverityIllegal:
		return 0
	case SeverityHighRisk:
		return 1
	case SeverityMediumRisk:
		return 2
	default:
		return 3
	}
}

// ComplianceFinding is one triggered pattern. A single query can carry
// several findings across tiers.
type ComplianceFinding struct {
	Pattern  string   `json:"pattern"`
	Severity Severity `json:"severity"`
	Citation string   `json:"citation"`
	Penalty  string   `json:"penalty"`
}

// BrokerValidation is the result of a registry lookup. Unmatched brokers
// yield Registered=false, never an error.
type BrokerValidation struct {
	Query          string `json:"query"`
	Registered     bool   `json:"registered"`
	RegistrationID string `json:"registration_id,omitempty"`
	MatchedName    string `json:"matched_name,omitempty"`
}

// PenaltyInfo describes statutory penalties for a violation class.
type PenaltyInfo struct {
	ViolationType string   `json:"violation_type"`
	Statute       string   `json:"statute"`
	Monetary      string   `json:"monetary"`
	Imprisonment  string   `json:"imprisonment,omitempty"`
	Notes         []string `json:"notes,omitempty"`
}
