package ruletree

import (
	"slices"

	"github.com/bits-and-blooms/bloom/v3"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Automaton is a compiled, immutable snapshot of a Tree. It is safe for
// concurrent use and is never affected by later inserts into the Tree
// that produced it.
type Automaton struct {
	mode Mode

	// edges of node i are edgeTok/edgeDst[edgeStart[i]:edgeStart[i+1]],
	// sorted by token
	edgeStart []int32
	edgeTok   []Token
	edgeDst   []int32

	fail  []int32
	depth []int32
	term  [][]RuleID
	out   [][]output

	order    map[RuleID]int
	patterns int

	// mode-specific indexes
	alphabet *bloom.BloomFilter
	suffixes *suffixIndex
}

// Mode returns the match mode the automaton was compiled for.
func (a *Automaton) Mode() Mode { return a.mode }

// Nodes returns the number of states, root included.
func (a *Automaton) Nodes() int { return len(a.fail) }

// Rules returns the number of distinct rule ids.
func (a *Automaton) Rules() int { return len(a.order) }

// Patterns returns the number of distinct (pattern, rule id) pairs.
func (a *Automaton) Patterns() int { return a.patterns }

// Match runs query through the automaton and returns the matched rule
// ids, each at most once.
func (a *Automaton) Match(query []Token) *Matches {
	acc := newCollector()
	switch a.mode {
	case ModeContainment:
		a.matchContainment(query, acc)
	case ModeSubsequence:
		a.matchSubsequence(query, acc)
	default:
		a.matchOccurrence(query, acc)
	}
	return &Matches{ids: acc.ids}
}

// Scan reports every pattern occurrence inside query in order of end
// position, regardless of the automaton's mode. Zero-length patterns are
// reported once, at offset 0. Scanning stops when fn returns false.
func (a *Automaton) Scan(query []Token, fn func(Hit) bool) {
	for _, id := range a.term[0] {
		if !fn(Hit{Rule: id}) {
			return
		}
	}
	state := int32(0)
	for i, tok := range query {
		state = a.step(state, tok)
		for _, o := range a.out[state] {
			if !fn(Hit{Rule: o.rule, Start: i + 1 - int(o.length), End: i + 1}) {
				return
			}
		}
	}
}

func (a *Automaton) matchOccurrence(query []Token, acc *collector) {
	acc.add(a.term[0]...)
	state := int32(0)
	for _, tok := range query {
		state = a.step(state, tok)
		for _, o := range a.out[state] {
			acc.add(o.rule)
		}
	}
}

// step follows failure links until a transition on tok exists, falling
// back to the root.
func (a *Automaton) step(state int32, tok Token) int32 {
	for {
		if next, ok := a.child(state, tok); ok {
			return next
		}
		if state == 0 {
			return 0
		}
		state = a.fail[state]
	}
}

func (a *Automaton) child(n int32, tok Token) (int32, bool) {
	lo, hi := a.edgeStart[n], a.edgeStart[n+1]
	i, ok := slices.BinarySearch(a.edgeTok[lo:hi], tok)
	if !ok {
		return 0, false
	}
	return a.edgeDst[lo+int32(i)], true
}

// collector accumulates rule ids in first-seen order.
type collector struct {
	seen sets.Set[RuleID]
	ids  []RuleID
}

func newCollector() *collector {
	return &collector{seen: sets.New[RuleID](), ids: []RuleID{}}
}

func (c *collector) add(ids ...RuleID) {
	for _, id := range ids {
		if c.seen.Has(id) {
			continue
		}
		c.seen.Insert(id)
		c.ids = append(c.ids, id)
	}
}
