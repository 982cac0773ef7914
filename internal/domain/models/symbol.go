package models

// Symbol is a static lexicon entry mapping human text to a canonical
// instrument id. Aliases are matched case-insensitively.
type Symbol struct {
	CanonicalID string   `json:"canonical_id" yaml:"canonical_id"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Aliases     []string `json:"aliases" yaml:"aliases"`
	IsIndex     bool     `json:"is_index,omitempty" yaml:"is_index,omitempty"`
}
