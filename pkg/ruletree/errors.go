package ruletree

import "errors"

var (
	// ErrOutOfRange is returned when a result element is read past its length.
	ErrOutOfRange = errors.New("ruletree: index out of range")

	// ErrResourceExhausted is returned when an insert would grow the trie
	// past its node limit. The trie is left unchanged.
	ErrResourceExhausted = errors.New("ruletree: node limit exhausted")

	// ErrStaleAutomaton is returned by Tree.Snapshot when the tree was
	// mutated since its last compile. Tree.Match compiles on demand and
	// never returns it.
	ErrStaleAutomaton = errors.New("ruletree: automaton is stale")
)
