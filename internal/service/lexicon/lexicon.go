package lexicon

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"FinSage/internal/domain/models"
)

// Lexicon resolves free-text mentions of instruments to canonical ids.
// Matching is case-insensitive over whole-word spans; a longer alias
// claims its span before any shorter alias can ("bank nifty" resolves
// to BANKNIFTY, not NIFTY).
type Lexicon struct {
	symbols []models.Symbol
	aliases []aliasEntry // sorted longest first
}

type aliasEntry struct {
	alias     string // normalized, lowercase
	canonical string
}

// New builds a lexicon from the given symbols, dropping any alias on
// the denylist.
func New(symbols []models.Symbol, denylist []string) *Lexicon {
	denied := make(map[string]struct{}, len(denylist))
	for _, d := range denylist {
		denied[normalizeAlias(d)] = struct{}{}
	}

	var entries []aliasEntry
	for _, s := range symbols {
		names := append([]string{s.CanonicalID, s.DisplayName}, s.Aliases...)
		seen := make(map[string]struct{}, len(names))
		for _, name := range names {
			a := normalizeAlias(name)
			if a == "" {
				continue
			}
			if _, dup := seen[a]; dup {
				continue
			}
			seen[a] = struct{}{}
			if _, skip := denied[a]; skip {
				continue
			}
			entries = append(entries, aliasEntry{alias: a, canonical: s.CanonicalID})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if len(entries[i].alias) != len(entries[j].alias) {
			return len(entries[i].alias) > len(entries[j].alias)
		}
		return entries[i].alias < entries[j].alias
	})

	return &Lexicon{symbols: symbols, aliases: entries}
}

// Default returns a lexicon over the built-in NSE symbol set.
func Default(denylist []string) *Lexicon {
	return New(defaultSymbols, denylist)
}

// lexiconFile is the YAML override format.
type lexiconFile struct {
	Symbols []models.Symbol `yaml:"symbols"`
}

// Load reads a symbol set from a YAML file. An empty path yields the
// built-in set.
func Load(path string, denylist []string) (*Lexicon, error) {
	if path == "" {
		return Default(denylist), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon file: %w", err)
	}
	var f lexiconFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon file: %w", err)
	}
	if len(f.Symbols) == 0 {
		return nil, fmt.Errorf("lexicon file %s has no symbols", path)
	}
	return New(f.Symbols, denylist), nil
}

// Symbols returns the configured symbol set.
func (l *Lexicon) Symbols() []models.Symbol { return l.symbols }

// Lookup resolves one canonical id to its symbol definition.
func (l *Lexicon) Lookup(canonicalID string) (models.Symbol, bool) {
	for _, s := range l.symbols {
		if s.CanonicalID == canonicalID {
			return s, true
		}
	}
	return models.Symbol{}, false
}

// Extract returns canonical ids mentioned in text, in order of first
// appearance, deduplicated. Deterministic for a given lexicon and text.
func (l *Lexicon) Extract(text string) []string {
	lower := strings.ToLower(text)
	claimed := make([]bool, len(lower))

	type hit struct {
		pos       int
		canonical string
	}
	var hits []hit

	for _, e := range l.aliases {
		from := 0
		for {
			i := strings.Index(lower[from:], e.alias)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(e.alias)
			from = start + 1

			if !wholeWord(lower, start, end) {
				continue
			}
			if overlaps(claimed, start, end) {
				continue
			}
			for k := start; k < end; k++ {
				claimed[k] = true
			}
			hits = append(hits, hit{pos: start, canonical: e.canonical})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	var out []string
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		if _, dup := seen[h.canonical]; dup {
			continue
		}
		seen[h.canonical] = struct{}{}
		out = append(out, h.canonical)
	}
	return out
}

// marketKeywords gate the market data fan-out: a query with none of
// these gets a context with no market facts even when it names symbols.
var marketKeywords = []string{
	"price", "quote", "rate", "value", "level",
	"market", "trading", "trade", "stock", "share",
	"nifty", "sensex", "index", "indices",
	"today", "current", "now", "latest", "live",
	"high", "low", "open", "close", "volume",
	"gain", "loss", "up", "down", "chart", "performance",
}

// NeedsMarketData reports whether text asks about live market state.
func (l *Lexicon) NeedsMarketData(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range marketKeywords {
		if containsWord(lower, kw) {
			return true
		}
	}
	return false
}

func normalizeAlias(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func wholeWord(s string, start, end int) bool {
	if start > 0 && isWordRune(rune(s[start-1])) {
		return false
	}
	if end < len(s) && isWordRune(rune(s[end])) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func overlaps(claimed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

func containsWord(s, w string) bool {
	from := 0
	for {
		i := strings.Index(s[from:], w)
		if i < 0 {
			return false
		}
		start := from + i
		if wholeWord(s, start, start+len(w)) {
			return true
		}
		from = start + 1
	}
}
