package core

// match.go scores how likely a source column and a target field name refer
// to the same concept.
//
// Scoring tiers:
//   - 1.0: normalized names are equal
//   - 0.8: one normalized name contains the other
//   - 0.6: both names mention the same concept from the synonym table
//   - 0.0: otherwise

import "strings"

const (
	ScoreExact     = 1.0
	ScoreSubstring = 0.8
	ScoreSynonym   = 0.6
)

// Concept is one synonym-table entry: a canonical key and its known aliases.
type Concept struct {
	Key     string
	Aliases []string
}

// SynonymTable is an ordered, read-only list of concepts.
type SynonymTable []Concept

// DefaultSynonyms returns the built-in synonym table.
// Each call returns a fresh copy so callers cannot mutate shared state.
func DefaultSynonyms() SynonymTable {
	return SynonymTable{
		{Key: "name", Aliases: []string{"nombre", "nom", "customer", "client"}},
		{Key: "email", Aliases: []string{"correo", "mail", "e-mail"}},
		{Key: "phone", Aliases: []string{"telefono", "tel", "mobile", "cell"}},
		{Key: "date", Aliases: []string{"fecha", "dt", "time"}},
		{Key: "amount", Aliases: []string{"cantidad", "total", "price", "cost", "value"}},
		{Key: "id", Aliases: []string{"identifier", "code", "number", "num", "no"}},
	}
}

// mentions reports whether normalized s contains the concept key or an alias.
func (c Concept) mentions(s string) bool {
	if strings.Contains(s, c.Key) {
		return true
	}
	for _, a := range c.Aliases {
		if strings.Contains(s, a) {
			return true
		}
	}
	return false
}

// Matcher scores column names against field names.
type Matcher struct {
	Synonyms SynonymTable
}

// DefaultMatcher is a Matcher over DefaultSynonyms.
func DefaultMatcher() Matcher {
	return Matcher{Synonyms: DefaultSynonyms()}
}

// Score returns a confidence in [0,1] that source and target denote the same concept.
func (m Matcher) Score(source, target string) float64 {
	s := NormalizeName(source)
	t := NormalizeName(target)

	if s == t {
		return ScoreExact
	}
	if strings.Contains(s, t) || strings.Contains(t, s) {
		return ScoreSubstring
	}

	for _, c := range m.Synonyms {
		if c.mentions(s) && c.mentions(t) {
			return ScoreSynonym
		}
	}

	return 0
}

// Score scores source against target with the default synonym table.
func Score(source, target string) float64 {
	return DefaultMatcher().Score(source, target)
}

// NormalizeName lower-cases s and drops every rune outside [a-z0-9].
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
