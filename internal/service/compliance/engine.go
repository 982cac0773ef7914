package compliance

import (
	"fmt"
	"sort"
	"sync/atomic"

	"FinSage/internal/domain/models"
)

// Engine evaluates text against an immutable pattern table. Evaluation
// is a pure function of (table, text): the full table is always
// scanned and findings come back ordered by severity tier, then table
// order within a tier.
type Engine struct {
	table    atomic.Pointer[[]compiledPattern]
	registry atomic.Pointer[registry]
}

// NewEngine loads the pattern table and broker registry. Either load
// failing is fatal: a compliance engine with no rules must not serve.
func NewEngine(patternsPath, registryPath string) (*Engine, error) {
	e := &Engine{}
	if err := e.ReloadPatterns(patternsPath); err != nil {
		return nil, err
	}
	if err := e.ReloadRegistry(registryPath); err != nil {
		return nil, err
	}
	return e, nil
}

// ReloadPatterns swaps in a fresh pattern table. On failure the current
// table stays in place.
func (e *Engine) ReloadPatterns(path string) error {
	table, err := loadPatterns(path)
	if err != nil {
		return fmt.Errorf("load compliance patterns: %w", err)
	}
	e.table.Store(&table)
	return nil
}

// ReloadRegistry swaps in a fresh broker registry.
func (e *Engine) ReloadRegistry(path string) error {
	reg, err := loadRegistry(path)
	if err != nil {
		return fmt.Errorf("load broker registry: %w", err)
	}
	e.registry.Store(reg)
	return nil
}

// Evaluate scans the whole table against normalized text. A query can
// trigger several patterns; all of them are reported.
func (e *Engine) Evaluate(text string) []models.ComplianceFinding {
	table := *e.table.Load()
	normalized := normalize(text)

	type hit struct {
		order   int
		finding models.ComplianceFinding
	}
	var hits []hit
	for i, p := range table {
		if !p.re.MatchString(normalized) {
			continue
		}
		hits = append(hits, hit{order: i, finding: models.ComplianceFinding{
			Pattern:  p.Name,
			Severity: p.Severity,
			Citation: p.Citation,
			Penalty:  p.Penalty,
		}})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		ri, rj := hits[i].finding.Severity.Rank(), hits[j].finding.Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return hits[i].order < hits[j].order
	})

	out := make([]models.ComplianceFinding, len(hits))
	for i, h := range hits {
		out[i] = h.finding
	}
	return out
}

// Patterns returns the active table for the admin surface.
func (e *Engine) Patterns() []Pattern {
	table := *e.table.Load()
	out := make([]Pattern, len(table))
	for i, p := range table {
		out[i] = p.Pattern
	}
	return out
}

// ValidateBroker looks the name up in the registry snapshot. Unknown
// names are a negative result, not an error.
func (e *Engine) ValidateBroker(name string) models.BrokerValidation {
	return e.registry.Load().validate(name)
}

// PenaltyInfo returns statutory penalty details for a violation class,
// or false for an unknown class.
func (e *Engine) PenaltyInfo(violationType string) (models.PenaltyInfo, bool) {
	info, ok := penaltyTable[violationType]
	return info, ok
}

// PenaltyTypes lists the violation classes PenaltyInfo knows.
func (e *Engine) PenaltyTypes() []string {
	out := make([]string, 0, len(penaltyTable))
	for k := range penaltyTable {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var penaltyTable = map[string]models.PenaltyInfo{
	"insider_trading": {
		ViolationType: "insider_trading",
		Statute:       "SEBI Act, 1992 s.15G; SEBI (Prohibition of Insider Trading) Regulations, 2015",
		Monetary:      "Minimum INR 10 lakh, up to INR 25 crore or 3x the profit made, whichever is higher",
		Imprisonment:  "Up to 10 years under SEBI Act s.24",
		Notes:         []string{"Disgorgement of gains and market ban may be ordered in addition"},
	},
	"market_manipulation": {
		ViolationType: "market_manipulation",
		Statute:       "SEBI Act, 1992 s.15HA; SEBI (PFUTP) Regulations, 2003",
		Monetary:      "Up to INR 25 crore or 3x the profit made, whichever is higher",
		Imprisonment:  "Up to 10 years under SEBI Act s.24",
	},
	"front_running": {
		ViolationType: "front_running",
		Statute:       "SEBI (PFUTP) Regulations, 2003 reg.4(2)(q)",
		Monetary:      "Up to INR 25 crore or 3x the profit made",
		Notes:         []string{"Registered intermediaries additionally face suspension or cancellation of registration"},
	},
	"kyc_violation": {
		ViolationType: "kyc_violation",
		Statute:       "Prevention of Money Laundering Act, 2002 s.4; SEBI KRA Regulations, 2011",
		Monetary:      "Fine without statutory upper bound under PMLA",
		Imprisonment:  "3 to 7 years under PMLA s.4",
	},
}
