package compliance

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"FinSage/internal/domain/models"
)

// Pattern is one rule in the table. Expr matches against normalized
// text (lowercase, accent-free, single-spaced).
type Pattern struct {
	Name     string          `yaml:"name"`
	Expr     string          `yaml:"expr"`
	Severity models.Severity `yaml:"severity"`
	Citation string          `yaml:"citation"`
	Penalty  string          `yaml:"penalty"`
}

type compiledPattern struct {
	Pattern
	re *regexp.Regexp
}

// defaultPatterns is the built-in SEBI/RBI rule table. Order within a
// tier is the order findings are reported in.
var defaultPatterns = []Pattern{
	{
		Name:     "insider_trading",
		Expr:     `insider (trading|information|tip)|unpublished price sensitive|upsi`,
		Severity: models.SeverityIllegal,
		Citation: "SEBI (Prohibition of Insider Trading) Regulations, 2015",
		Penalty:  "Up to INR 25 crore or 3x the profit made, and imprisonment up to 10 years",
	},
	{
		Name:     "market_manipulation",
		Expr:     `pump and dump|pump-and-dump|(rig|rigging|manipulat\w*) (the )?(stock|share|market|price)|circular trading|artificial (volume|demand)`,
		Severity: models.SeverityIllegal,
		Citation: "SEBI (PFUTP) Regulations, 2003",
		Penalty:  "Up to INR 25 crore or 3x the profit made under SEBI Act s.15HA",
	},
	{
		Name:     "front_running",
		Expr:     `front run|front-running|front running|trade ahead of (client|customer) orders?`,
		Severity: models.SeverityIllegal,
		Citation: "SEBI (PFUTP) Regulations, 2003",
		Penalty:  "Disgorgement, market ban, and monetary penalty under SEBI Act s.15HA",
	},
	{
		Name:     "ponzi_scheme",
		Expr:     `ponzi|pyramid scheme|chit fund scam|money circulation scheme`,
		Severity: models.SeverityIllegal,
		Citation: "Banning of Unregulated Deposit Schemes Act, 2019",
		Penalty:  "Imprisonment up to 10 years and fine up to INR 50 crore",
	},
	{
		Name:     "guaranteed_returns",
		Expr:     `guaranteed (returns?|profits?|income)|assured (returns?|profits?)|risk[- ]?free (returns?|profits?)|double your money`,
		Severity: models.SeverityHighRisk,
		Citation: "SEBI (Investment Advisers) Regulations, 2013",
		Penalty:  "No market participant may promise returns; such schemes are presumptively fraudulent",
	},
	{
		Name:     "unregistered_advisory",
		Expr:     `(unregistered|unlicensed) (investment )?advis(er|or|ory)|paid (stock )?tips|telegram (stock )?tips`,
		Severity: models.SeverityHighRisk,
		Citation: "SEBI (Investment Advisers) Regulations, 2013",
		Penalty:  "Advisory without registration attracts penalties under SEBI Act s.15EB",
	},
	{
		Name:     "leverage_speculation",
		Expr:     `(borrow|loan) (money )?to (invest|trade)|full margin|max(imum)? leverage`,
		Severity: models.SeverityHighRisk,
		Citation: "SEBI risk disclosure framework for leveraged products",
		Penalty:  "",
	},
	{
		Name:     "kyc_evasion",
		Expr:     `(without|skip|bypass|avoid) (the )?kyc|benami account|account in (someone else|another person)'?s name`,
		Severity: models.SeverityHighRisk,
		Citation: "Prevention of Money Laundering Act, 2002; SEBI KYC Registration Agency Regulations, 2011",
		Penalty:  "Imprisonment of 3 to 7 years and fine under PMLA s.4",
	},
	{
		Name:     "intraday_speculation",
		Expr:     `intraday (tips?|calls?)|sure ?shot (tips?|calls?)|jackpot (calls?|tips?)`,
		Severity: models.SeverityMediumRisk,
		Citation: "SEBI investor advisory on unsolicited trading tips",
		Penalty:  "",
	},
	{
		Name:     "penny_stocks",
		Expr:     `penny stocks?|micro ?cap pump|operator driven`,
		Severity: models.SeverityMediumRisk,
		Citation: "SEBI surveillance measures (GSM/ASM framework)",
		Penalty:  "",
	},
	{
		Name:     "crypto_unregulated",
		Expr:     `crypto (trading|tips|investment)|bitcoin (doubling|scheme)`,
		Severity: models.SeverityMediumRisk,
		Citation: "RBI press releases on virtual currencies; no investor protection applies",
		Penalty:  "",
	},
}

type patternsFile struct {
	Patterns []Pattern `yaml:"patterns"`
}

// loadPatterns compiles the pattern table. Empty path means built-in.
func loadPatterns(path string) ([]compiledPattern, error) {
	table := defaultPatterns
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read patterns file: %w", err)
		}
		var f patternsFile
		if err := yaml.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("parse patterns file: %w", err)
		}
		if len(f.Patterns) == 0 {
			return nil, fmt.Errorf("patterns file %s has no patterns", path)
		}
		table = f.Patterns
	}

	compiled := make([]compiledPattern, 0, len(table))
	for _, p := range table {
		if p.Name == "" || p.Expr == "" {
			return nil, fmt.Errorf("pattern with empty name or expr")
		}
		if p.Severity.Rank() > models.SeverityMediumRisk.Rank() {
			return nil, fmt.Errorf("pattern %s has unknown severity %q", p.Name, p.Severity)
		}
		re, err := regexp.Compile(p.Expr)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %s: %w", p.Name, err)
		}
		compiled = append(compiled, compiledPattern{Pattern: p, re: re})
	}
	return compiled, nil
}
