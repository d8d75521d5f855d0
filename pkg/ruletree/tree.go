package ruletree

import (
	"fmt"
	"slices"
)

// node is one trie prefix. Children are arena indexes, never pointers.
type node struct {
	children map[Token]int32
	terminal []RuleID
}

// Tree is the mutable builder side of the engine. It owns the node arena
// and caches the last compiled Automaton. A Tree is single-writer; the
// snapshots it produces are safe for concurrent readers.
type Tree struct {
	nodes    []node
	mode     Mode
	maxNodes int

	// registration order of rule ids, used to order containment results
	order    map[RuleID]int
	patterns int

	stale    bool
	compiled *Automaton
}

// Option configures a Tree.
type Option func(*Tree)

// WithMode sets the match mode used by the compiled automaton.
func WithMode(m Mode) Option {
	return func(t *Tree) { t.mode = m }
}

// WithMaxNodes caps the trie size, root included. Zero means unlimited.
func WithMaxNodes(n int) Option {
	return func(t *Tree) {
		if n > 0 {
			t.maxNodes = n
		}
	}
}

// New returns an empty tree in the Building state.
func New(opts ...Option) *Tree {
	t := &Tree{
		nodes: make([]node, 1, 64),
		order: make(map[RuleID]int),
		stale: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Insert registers pattern under rule id. Inserting the same pair twice
// has no effect on later results. An empty pattern attaches id to the
// root. Insert fails only when the node limit would be exceeded, and in
// that case leaves the trie untouched.
func (t *Tree) Insert(pattern []Token, id RuleID) error {
	cur := int32(0)
	i := 0
	for ; i < len(pattern); i++ {
		next, ok := t.nodes[cur].children[pattern[i]]
		if !ok {
			break
		}
		cur = next
	}

	missing := len(pattern) - i
	if t.maxNodes > 0 && len(t.nodes)+missing > t.maxNodes {
		return fmt.Errorf("%w: need %d more nodes, have %d of %d",
			ErrResourceExhausted, missing, len(t.nodes), t.maxNodes)
	}

	for ; i < len(pattern); i++ {
		next := int32(len(t.nodes))
		t.nodes = append(t.nodes, node{})
		parent := &t.nodes[cur]
		if parent.children == nil {
			parent.children = make(map[Token]int32, 1)
		}
		parent.children[pattern[i]] = next
		cur = next
	}

	t.stale = true
	term := &t.nodes[cur]
	if slices.Contains(term.terminal, id) {
		return nil
	}
	term.terminal = append(term.terminal, id)
	t.patterns++
	if _, ok := t.order[id]; !ok {
		t.order[id] = len(t.order)
	}
	return nil
}

// Compile links the trie into an immutable Automaton. When nothing was
// inserted since the previous compile the cached snapshot is returned.
func (t *Tree) Compile() *Automaton {
	if !t.stale && t.compiled != nil {
		return t.compiled
	}
	t.compiled = compile(t.nodes, t.mode, t.order, t.patterns)
	t.stale = false
	return t.compiled
}

// Snapshot returns the last compiled automaton without compiling.
// It fails with ErrStaleAutomaton when the tree changed since then.
func (t *Tree) Snapshot() (*Automaton, error) {
	if t.stale || t.compiled == nil {
		return nil, ErrStaleAutomaton
	}
	return t.compiled, nil
}

// Match compiles the tree if needed and runs query against it.
func (t *Tree) Match(query []Token) *Matches {
	return t.Compile().Match(query)
}

// Stale reports whether the tree changed since its last compile.
func (t *Tree) Stale() bool { return t.stale }

// Mode returns the match mode.
func (t *Tree) Mode() Mode { return t.mode }

// Nodes returns the number of trie nodes, root included.
func (t *Tree) Nodes() int { return len(t.nodes) }

// Patterns returns the number of distinct (pattern, rule id) pairs.
func (t *Tree) Patterns() int { return t.patterns }

// Rules returns the number of distinct rule ids.
func (t *Tree) Rules() int { return len(t.order) }
