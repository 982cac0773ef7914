package compliance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSage/internal/domain/models"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine("", "")
	require.NoError(t, err)
	return e
}

func TestEvaluateCleanQueryHasNoFindings(t *testing.T) {
	e := newTestEngine(t)
	assert.Empty(t, e.Evaluate("What is the lock-in period for ELSS funds?"))
}

func TestEvaluateIllegalPattern(t *testing.T) {
	e := newTestEngine(t)

	findings := e.Evaluate("My friend at the company gave me an insider tip, should I buy?")
	require.NotEmpty(t, findings)
	assert.Equal(t, "insider_trading", findings[0].Pattern)
	assert.Equal(t, models.SeverityIllegal, findings[0].Severity)
	assert.NotEmpty(t, findings[0].Citation)
}

func TestEvaluateReportsEveryTriggeredPattern(t *testing.T) {
	e := newTestEngine(t)

	findings := e.Evaluate("This telegram stock tips channel promises guaranteed returns from a pump and dump play")
	require.GreaterOrEqual(t, len(findings), 3)

	names := make(map[string]models.Severity, len(findings))
	for _, f := range findings {
		names[f.Pattern] = f.Severity
	}
	assert.Contains(t, names, "market_manipulation")
	assert.Contains(t, names, "guaranteed_returns")
	assert.Contains(t, names, "unregistered_advisory")
}

func TestEvaluateOrdersBySeverityThenTableOrder(t *testing.T) {
	e := newTestEngine(t)

	findings := e.Evaluate("guaranteed returns from insider trading in penny stocks")
	require.GreaterOrEqual(t, len(findings), 3)

	for i := 1; i < len(findings); i++ {
		assert.LessOrEqual(t, findings[i-1].Severity.Rank(), findings[i].Severity.Rank())
	}
	assert.Equal(t, models.SeverityIllegal, findings[0].Severity)
}

func TestEvaluateNormalizesAccentsAndCase(t *testing.T) {
	e := newTestEngine(t)

	findings := e.Evaluate("GUARANTÉED    RETURNS scheme")
	require.NotEmpty(t, findings)
	assert.Equal(t, "guaranteed_returns", findings[0].Pattern)
}

func TestEvaluateDeterministic(t *testing.T) {
	e := newTestEngine(t)
	text := "ponzi scheme with assured profits and paid tips"

	first := e.Evaluate(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Evaluate(text))
	}
}

func TestPatternsExposesActiveTable(t *testing.T) {
	e := newTestEngine(t)

	patterns := e.Patterns()
	require.NotEmpty(t, patterns)
	names := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		names[p.Name] = true
	}
	assert.True(t, names["insider_trading"])
	assert.True(t, names["front_running"])
}

func TestReloadPatternsFromYAML(t *testing.T) {
	e := newTestEngine(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	content := []byte(`patterns:
  - name: test_rule
    expr: "forbidden phrase"
    severity: HIGH_RISK
    citation: "internal policy"
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	require.NoError(t, e.ReloadPatterns(path))

	findings := e.Evaluate("this contains the forbidden phrase somewhere")
	require.Len(t, findings, 1)
	assert.Equal(t, "test_rule", findings[0].Pattern)

	// built-in rules were replaced wholesale
	assert.Empty(t, e.Evaluate("insider trading"))
}

func TestReloadPatternsKeepsTableOnBadFile(t *testing.T) {
	e := newTestEngine(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`patterns:
  - name: broken
    expr: "([unclosed"
    severity: ILLEGAL
`), 0o644))

	require.Error(t, e.ReloadPatterns(path))
	assert.NotEmpty(t, e.Evaluate("insider trading"), "old table must survive a failed reload")
}

func TestNewEngineRejectsUnknownSeverity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`patterns:
  - name: odd
    expr: "x"
    severity: CATASTROPHIC
`), 0o644))

	_, err := NewEngine(path, "")
	require.Error(t, err)
}

func TestValidateBrokerExactAndAlias(t *testing.T) {
	e := newTestEngine(t)

	v := e.ValidateBroker("Zerodha")
	assert.True(t, v.Registered)
	assert.Equal(t, "Zerodha", v.MatchedName)
	assert.NotEmpty(t, v.RegistrationID)

	v = e.ValidateBroker("angel broking")
	assert.True(t, v.Registered)
	assert.Equal(t, "Angel One", v.MatchedName)
}

func TestValidateBrokerFuzzy(t *testing.T) {
	e := newTestEngine(t)

	v := e.ValidateBroker("the Zerodha app")
	assert.True(t, v.Registered)
	assert.Equal(t, "Zerodha", v.MatchedName)
}

func TestValidateBrokerUnknownIsNegativeNotError(t *testing.T) {
	e := newTestEngine(t)

	v := e.ValidateBroker("Totally Legit Trading Co")
	assert.False(t, v.Registered)
	assert.Empty(t, v.MatchedName)
	assert.Equal(t, "Totally Legit Trading Co", v.Query)

	v = e.ValidateBroker("")
	assert.False(t, v.Registered)
}

func TestPenaltyInfo(t *testing.T) {
	e := newTestEngine(t)

	info, ok := e.PenaltyInfo("insider_trading")
	require.True(t, ok)
	assert.Contains(t, info.Statute, "SEBI")
	assert.NotEmpty(t, info.Monetary)

	_, ok = e.PenaltyInfo("jaywalking")
	assert.False(t, ok)

	assert.Contains(t, e.PenaltyTypes(), "front_running")
}
