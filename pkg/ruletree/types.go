package ruletree

import "fmt"

// Token is one opaque unit of a pattern or query.
type Token = int32

// RuleID identifies the rule a pattern was registered under.
type RuleID = int32

// Mode selects how a query is related to the registered patterns.
type Mode uint8

const (
	// ModeOccurrence matches a rule when one of its patterns occurs as a
	// contiguous run of tokens inside the query (Aho-Corasick scan).
	ModeOccurrence Mode = iota
	// ModeContainment matches a rule when the query occurs as a
	// contiguous run of tokens inside one of its patterns.
	ModeContainment
	// ModeSubsequence matches a rule when one of its patterns occurs as a
	// gapped subsequence of the query. For sorted itemsets this is
	// subset matching.
	ModeSubsequence
)

func (m Mode) String() string {
	switch m {
	case ModeOccurrence:
		return "occurrence"
	case ModeContainment:
		return "containment"
	case ModeSubsequence:
		return "subsequence"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode maps a mode name back to a Mode. The empty string selects
// ModeOccurrence.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "occurrence":
		return ModeOccurrence, nil
	case "containment":
		return ModeContainment, nil
	case "subsequence":
		return ModeSubsequence, nil
	}
	return 0, fmt.Errorf("unknown match mode %q", s)
}

// Hit is a single pattern occurrence reported by Automaton.Scan.
// Query[Start:End] spells the matched pattern.
type Hit struct {
	Rule  RuleID
	Start int
	End   int
}

// Matches is the immutable result of one query. Each rule id appears at
// most once.
type Matches struct {
	ids []RuleID
}

// Len returns the number of matched rule ids.
func (m *Matches) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ids)
}

// At returns the rule id at index i.
func (m *Matches) At(i int) (RuleID, error) {
	if i < 0 || i >= m.Len() {
		return 0, fmt.Errorf("%w: index %d, length %d", ErrOutOfRange, i, m.Len())
	}
	return m.ids[i], nil
}

// IDs returns a copy of the matched rule ids in result order.
func (m *Matches) IDs() []RuleID {
	out := make([]RuleID, m.Len())
	if m != nil {
		copy(out, m.ids)
	}
	return out
}
