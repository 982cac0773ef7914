package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSage/internal/domain/models"
)

func TestExtractLongestAliasWins(t *testing.T) {
	lex := Default(nil)

	// "Bank Nifty" must not decay into a NIFTY match.
	got := lex.Extract("How is Bank Nifty doing today?")
	assert.Equal(t, []string{"BANKNIFTY"}, got)
}

func TestExtractIsCaseInsensitive(t *testing.T) {
	lex := Default(nil)

	assert.Equal(t, []string{"RELIANCE"}, lex.Extract("reliance industries results"))
	assert.Equal(t, []string{"RELIANCE"}, lex.Extract("RELIANCE INDUSTRIES results"))
	assert.Equal(t, []string{"TCS"}, lex.Extract("Should I buy Tata Consultancy Services?"))
}

func TestExtractPreservesFirstAppearanceOrder(t *testing.T) {
	lex := Default(nil)

	got := lex.Extract("Compare Infosys with TCS and then Infosys again")
	assert.Equal(t, []string{"INFY", "TCS"}, got)
}

func TestExtractWholeWordOnly(t *testing.T) {
	lex := Default(nil)

	// "itcz" and "britcoin" contain "itc" but are not mentions.
	assert.Empty(t, lex.Extract("itcz britcoin"))
	assert.Equal(t, []string{"ITC"}, lex.Extract("ITC dividend news"))
}

func TestExtractMultipleSymbols(t *testing.T) {
	lex := Default(nil)

	got := lex.Extract("Is Nifty above 25000 and what about HDFC Bank and SBI?")
	assert.Equal(t, []string{"NIFTY", "HDFCBANK", "SBIN"}, got)
}

func TestExtractDenylist(t *testing.T) {
	lex := Default([]string{"axis"})

	assert.Empty(t, lex.Extract("rotate the chart axis"))
	assert.Equal(t, []string{"AXISBANK"}, lex.Extract("axis bank quarterly results"))
}

func TestExtractDeterministic(t *testing.T) {
	lex := Default(nil)
	text := "nifty vs bank nifty vs sensex, plus Reliance and TCS"

	first := lex.Extract(text)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, lex.Extract(text))
	}
}

func TestNeedsMarketData(t *testing.T) {
	lex := Default(nil)

	assert.True(t, lex.NeedsMarketData("What is the current price of RELIANCE?"))
	assert.True(t, lex.NeedsMarketData("nifty level today"))
	assert.False(t, lex.NeedsMarketData("What is insider dealing under SEBI regulations?"))
	assert.False(t, lex.NeedsMarketData("Explain KYC requirements for a new account"))
}

func TestLoadFromYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "symbols.yaml")
	content := []byte(`symbols:
  - canonical_id: ZOMATO
    display_name: Zomato
    aliases: ["eternal"]
  - canonical_id: NIFTY
    display_name: NIFTY 50
    is_index: true
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	lex, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"ZOMATO"}, lex.Extract("order food on eternal"))
	// Override replaces the built-in set entirely.
	assert.Empty(t, lex.Extract("reliance industries"))

	sym, ok := lex.Lookup("NIFTY")
	require.True(t, ok)
	assert.True(t, sym.IsIndex)
}

func TestLoadRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbols: []\n"), 0o644))

	_, err := Load(path, nil)
	require.Error(t, err)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	lex, err := Load("", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, lex.Symbols())
}

func TestNewDeduplicatesAliases(t *testing.T) {
	lex := New([]models.Symbol{
		{CanonicalID: "ABC", DisplayName: "ABC", Aliases: []string{"abc", "ABC"}},
	}, nil)

	assert.Equal(t, []string{"ABC"}, lex.Extract("abc moved 2% today"))
}
