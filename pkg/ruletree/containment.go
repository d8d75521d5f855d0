package ruletree

import (
	"encoding/binary"
	"maps"
	"slices"

	"github.com/armon/go-radix"
	"github.com/bits-and-blooms/bloom/v3"
)

const alphabetFalsePositiveRate = 1e-4

// tokenKey appends the fixed-width encoding of tok to dst.
func tokenKey(dst []byte, tok Token) []byte {
	return binary.BigEndian.AppendUint32(dst, uint32(tok))
}

// transitionKey is the radix key of the edge leaving state on tok.
func transitionKey(state int32, tok Token) string {
	var buf [8]byte
	return string(tokenKey(binary.BigEndian.AppendUint32(buf[:0], uint32(state)), tok))
}

// buildAlphabet records every token used by any pattern.
func (a *Automaton) buildAlphabet() {
	n := len(a.edgeTok)
	if n == 0 {
		n = 1
	}
	a.alphabet = bloom.NewWithEstimates(uint(n), alphabetFalsePositiveRate)
	var key [4]byte
	for _, tok := range a.edgeTok {
		a.alphabet.Add(tokenKey(key[:0], tok))
	}
}

func (a *Automaton) knownToken(tok Token) bool {
	if a.alphabet == nil {
		return true
	}
	var key [4]byte
	return a.alphabet.Test(tokenKey(key[:0], tok))
}

// suffixIndex is a generalized suffix automaton over every pattern in the
// trie. Each state is one class of substrings sharing their end positions,
// and rules[s] lists, in registration order, the rules with a pattern
// containing those substrings. It has at most twice as many states as the
// trie has nodes.
type suffixIndex struct {
	next   *radix.Tree
	rules  [][]RuleID
	states int
	edges  int
}

// samBuilder holds the mutable automaton while it is extended.
type samBuilder struct {
	length []int32
	link   []int32
	next   []map[Token]int32
}

func (b *samBuilder) newState(length, link int32) int32 {
	b.length = append(b.length, length)
	b.link = append(b.link, link)
	b.next = append(b.next, nil)
	return int32(len(b.length) - 1)
}

func (b *samBuilder) setNext(s int32, tok Token, dst int32) {
	if b.next[s] == nil {
		b.next[s] = make(map[Token]int32, 1)
	}
	b.next[s][tok] = dst
}

// extend appends tok to the string of state last and returns the state of
// the longer string.
func (b *samBuilder) extend(last int32, tok Token) int32 {
	if q, ok := b.next[last][tok]; ok {
		if b.length[last]+1 == b.length[q] {
			return q
		}
		return b.split(last, q, tok)
	}

	cur := b.newState(b.length[last]+1, 0)
	p := last
	for p != -1 {
		if _, ok := b.next[p][tok]; ok {
			break
		}
		b.setNext(p, tok, cur)
		p = b.link[p]
	}
	if p == -1 {
		return cur
	}
	q := b.next[p][tok]
	if b.length[p]+1 == b.length[q] {
		b.link[cur] = q
	} else {
		b.link[cur] = b.split(p, q, tok)
	}
	return cur
}

// split clones q into a state for the strings of length up to
// length[p]+1 and redirects p's suffix chain to the clone.
func (b *samBuilder) split(p, q int32, tok Token) int32 {
	clone := b.newState(b.length[p]+1, b.link[q])
	b.next[clone] = maps.Clone(b.next[q])
	for p != -1 {
		if dst, ok := b.next[p][tok]; !ok || dst != q {
			break
		}
		b.next[p][tok] = clone
		p = b.link[p]
	}
	b.link[q] = clone
	return clone
}

// mergeRules unions two id lists sorted by registration order. Inputs are
// never modified; x is returned as is when it already holds all of y.
func (a *Automaton) mergeRules(x, y []RuleID) []RuleID {
	if len(y) == 0 {
		return x
	}
	if len(x) == 0 {
		return y
	}
	out := make([]RuleID, 0, len(x)+len(y))
	i, j := 0, 0
	for i < len(x) && j < len(y) {
		ox, oy := a.order[x[i]], a.order[y[j]]
		switch {
		case ox < oy:
			out = append(out, x[i])
			i++
		case ox > oy:
			out = append(out, y[j])
			j++
		default:
			out = append(out, x[i])
			i++
			j++
		}
	}
	out = append(out, x[i:]...)
	out = append(out, y[j:]...)
	if len(out) == len(x) {
		return x
	}
	return out
}

// buildSuffixIndex extends the suffix automaton along the trie in BFS
// order, then lifts rule ids from trie nodes to states and up the suffix
// links. A query is contained in a pattern exactly when walking it from the
// initial state succeeds and the pattern's rule is in the reached state.
func (a *Automaton) buildSuffixIndex() {
	b := &samBuilder{}
	b.newState(0, -1)

	n := int32(len(a.fail))
	stateOf := make([]int32, n)
	queue := make([]int32, 1, n)
	for head := 0; head < len(queue); head++ {
		x := queue[head]
		for e := a.edgeStart[x]; e < a.edgeStart[x+1]; e++ {
			c := a.edgeDst[e]
			stateOf[c] = b.extend(stateOf[x], a.edgeTok[e])
			queue = append(queue, c)
		}
	}

	// rules whose patterns pass through each trie node
	below := make([][]RuleID, n)
	for i := len(queue) - 1; i >= 0; i-- {
		x := queue[i]
		if len(a.term[x]) > 0 {
			own := slices.Clone(a.term[x])
			slices.SortFunc(own, func(p, q RuleID) int { return a.order[p] - a.order[q] })
			below[x] = own
		}
		for e := a.edgeStart[x]; e < a.edgeStart[x+1]; e++ {
			below[x] = a.mergeRules(below[x], below[a.edgeDst[e]])
		}
	}

	states := len(b.length)
	rules := make([][]RuleID, states)
	for x := range n {
		s := stateOf[x]
		rules[s] = a.mergeRules(rules[s], below[x])
	}

	// longest states first, so each is final before it feeds its link
	byLength := make([][]int32, 0, n+1)
	for s := range int32(states) {
		l := b.length[s]
		for int(l) >= len(byLength) {
			byLength = append(byLength, nil)
		}
		byLength[l] = append(byLength[l], s)
	}
	for l := len(byLength) - 1; l > 0; l-- {
		for _, s := range byLength[l] {
			p := b.link[s]
			rules[p] = a.mergeRules(rules[p], rules[s])
		}
	}

	idx := &suffixIndex{next: radix.New(), rules: rules, states: states}
	for s := range int32(states) {
		for tok, dst := range b.next[s] {
			idx.next.Insert(transitionKey(s, tok), dst)
			idx.edges++
		}
	}
	a.suffixes = idx
}

func (a *Automaton) matchContainment(query []Token, acc *collector) {
	if a.suffixes == nil {
		return
	}
	s := int32(0)
	for _, tok := range query {
		if !a.knownToken(tok) {
			return
		}
		v, ok := a.suffixes.next.Get(transitionKey(s, tok))
		if !ok {
			return
		}
		s = v.(int32)
	}
	acc.add(a.suffixes.rules[s]...)
}
