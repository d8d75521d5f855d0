package ruletree

import "slices"

// matchSubsequence walks the trie depth-first, embedding each edge at the
// earliest query position after its parent's. A pattern is a gapped
// subsequence of the query iff this greedy embedding succeeds, so every
// trie node is visited at most once.
func (a *Automaton) matchSubsequence(query []Token, acc *collector) {
	acc.add(a.term[0]...)

	positions := make(map[Token][]int)
	for i, tok := range query {
		if !a.knownToken(tok) {
			continue
		}
		positions[tok] = append(positions[tok], i)
	}
	if len(positions) == 0 {
		return
	}

	type frame struct {
		node int32
		pos  int
	}
	stack := []frame{{node: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.node != 0 {
			acc.add(a.term[f.node]...)
		}

		// push in reverse so the smallest token is visited first
		for e := a.edgeStart[f.node+1] - 1; e >= a.edgeStart[f.node]; e-- {
			ps := positions[a.edgeTok[e]]
			j, _ := slices.BinarySearch(ps, f.pos)
			if j == len(ps) {
				continue
			}
			stack = append(stack, frame{node: a.edgeDst[e], pos: ps[j] + 1})
		}
	}
}
