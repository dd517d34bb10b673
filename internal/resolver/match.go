package resolver

import (
	"strings"
	"sync"

	"github.com/roach88/condscope/internal/condition"
)

// Decomposition is the parsed form of an association condition name.
//
// For the scope form (comments_published) Column holds the target scope name
// and Condition is empty.
type Decomposition struct {
	Association string
	Column      string
	Condition   string
	// Alias is set when Condition is an alias kind.
	Alias bool
}

// TargetCondition is the filter name invoked on the association's target:
// column and condition joined by "_", or the bare scope name.
func (d Decomposition) TargetCondition() string {
	if d.Condition == "" {
		return d.Column
	}
	return d.Column + "_" + d.Condition
}

// Name reassembles the full name.
func (d Decomposition) Name() string {
	return d.Association + "_" + d.TargetCondition()
}

// patternRow is one association's alternative in the pattern table.
type patternRow struct {
	association string
	prefix      string // association + "_"
	scopes      map[string]bool
}

// patternTable is the explicit table derived from association metadata.
type patternTable struct {
	fingerprint string
	rows        []patternRow
}

// PatternMatcher decomposes candidate names using a pattern table built from
// association metadata and the condition vocabulary.
//
// Matching is plain string work; no regular expressions are compiled. The
// table is cached and rebuilt when the association fingerprint changes.
type PatternMatcher struct {
	vocab     *condition.Vocabulary
	primaries map[string]bool
	aliases   map[string]bool

	mu    sync.Mutex
	table *patternTable
}

// NewPatternMatcher creates a matcher over vocab.
func NewPatternMatcher(vocab *condition.Vocabulary) *PatternMatcher {
	m := &PatternMatcher{
		vocab:     vocab,
		primaries: make(map[string]bool),
		aliases:   make(map[string]bool),
	}
	for _, name := range vocab.Primaries() {
		m.primaries[name] = true
	}
	for _, name := range vocab.Aliases() {
		m.aliases[name] = true
	}
	return m
}

// Match decomposes name against the entity's associations.
//
// Returns false when the entity satisfies name locally or when no
// alternative matches. Primary condition forms are tried for every
// association before alias forms are tried at all.
func (m *PatternMatcher) Match(name string, view AssociationView) (Decomposition, bool) {
	if view.Entity().LocallySatisfies(name) {
		return Decomposition{}, false
	}
	table := m.tableFor(view)
	if d, ok := m.matchPrimary(name, table); ok {
		return d, true
	}
	return m.matchAlias(name, table)
}

// MatchPrimary runs only the primary pass.
func (m *PatternMatcher) MatchPrimary(name string, view AssociationView) (Decomposition, bool) {
	if view.Entity().LocallySatisfies(name) {
		return Decomposition{}, false
	}
	return m.matchPrimary(name, m.tableFor(view))
}

// MatchAlias runs only the alias pass.
func (m *PatternMatcher) MatchAlias(name string, view AssociationView) (Decomposition, bool) {
	if view.Entity().LocallySatisfies(name) {
		return Decomposition{}, false
	}
	return m.matchAlias(name, m.tableFor(view))
}

func (m *PatternMatcher) matchPrimary(name string, table *patternTable) (Decomposition, bool) {
	for _, row := range table.rows {
		rest, ok := strings.CutPrefix(name, row.prefix)
		if !ok {
			continue
		}
		if column, cond, ok := splitColumnCondition(rest, m.primaries); ok {
			return Decomposition{Association: row.association, Column: column, Condition: cond}, true
		}
		if row.scopes[rest] {
			return Decomposition{Association: row.association, Column: rest}, true
		}
	}
	return Decomposition{}, false
}

func (m *PatternMatcher) matchAlias(name string, table *patternTable) (Decomposition, bool) {
	for _, row := range table.rows {
		rest, ok := strings.CutPrefix(name, row.prefix)
		if !ok {
			continue
		}
		if column, cond, ok := splitColumnCondition(rest, m.aliases); ok {
			return Decomposition{Association: row.association, Column: column, Condition: cond, Alias: true}, true
		}
	}
	return Decomposition{}, false
}

// splitColumnCondition splits rest into column_condition the way a greedy
// (\w+)_(cond1|cond2|...) group would: the column is the longest word prefix
// whose remaining suffix is a known condition.
func splitColumnCondition(rest string, conditions map[string]bool) (string, string, bool) {
	if !isWord(rest) {
		return "", "", false
	}
	for i := len(rest) - 1; i > 0; i-- {
		if rest[i] != '_' {
			continue
		}
		column, cond := rest[:i], rest[i+1:]
		if conditions[cond] {
			return column, cond, true
		}
	}
	return "", "", false
}

// isWord reports whether s is non-empty and made only of [A-Za-z0-9_].
func isWord(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			continue
		}
		return false
	}
	return true
}

// tableFor returns the cached pattern table, rebuilding it when the
// association metadata has changed.
func (m *PatternMatcher) tableFor(view AssociationView) *patternTable {
	fp := view.Fingerprint()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.table != nil && m.table.fingerprint == fp {
		return m.table
	}
	table := &patternTable{fingerprint: fp}
	for _, a := range view.Associations() {
		row := patternRow{
			association: a.Name,
			prefix:      a.Name + "_",
			scopes:      make(map[string]bool),
		}
		for _, s := range view.ScopeNames(a) {
			row.scopes[s] = true
		}
		table.rows = append(table.rows, row)
	}
	m.table = table
	return table
}
