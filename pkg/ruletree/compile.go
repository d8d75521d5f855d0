package ruletree

import (
	"maps"
	"slices"
)

// output is one entry of a node's effective output set. length is the
// length of the pattern that ends at this node via the failure chain.
type output struct {
	rule   RuleID
	length int32
}

func compile(nodes []node, mode Mode, order map[RuleID]int, patterns int) *Automaton {
	n := len(nodes)
	a := &Automaton{
		mode:      mode,
		edgeStart: make([]int32, n+1),
		fail:      make([]int32, n),
		depth:     make([]int32, n),
		term:      make([][]RuleID, n),
		out:       make([][]output, n),
		order:     maps.Clone(order),
		patterns:  patterns,
	}

	edges := 0
	for i := range nodes {
		edges += len(nodes[i].children)
	}
	a.edgeTok = make([]Token, 0, edges)
	a.edgeDst = make([]int32, 0, edges)

	// Flatten children into sorted per-node edge blocks.
	for i := range nodes {
		a.edgeStart[i] = int32(len(a.edgeTok))
		for _, tok := range slices.Sorted(maps.Keys(nodes[i].children)) {
			a.edgeTok = append(a.edgeTok, tok)
			a.edgeDst = append(a.edgeDst, nodes[i].children[tok])
		}
		if len(nodes[i].terminal) > 0 {
			a.term[i] = slices.Clone(nodes[i].terminal)
		}
	}
	a.edgeStart[n] = int32(len(a.edgeTok))

	a.link()

	switch mode {
	case ModeContainment:
		a.buildAlphabet()
		a.buildSuffixIndex()
	case ModeSubsequence:
		a.buildAlphabet()
	}
	return a
}

// link computes failure links and effective outputs breadth-first, so a
// node's failure target is always finished before the node itself.
// Zero-length patterns live on the root and are reported once per scan,
// so they are not propagated into the outputs of other nodes.
func (a *Automaton) link() {
	queue := make([]int32, 0, len(a.fail))
	for e := a.edgeStart[0]; e < a.edgeStart[1]; e++ {
		c := a.edgeDst[e]
		a.depth[c] = 1
		queue = append(queue, c)
	}

	for head := 0; head < len(queue); head++ {
		p := queue[head]

		var inherited []output
		if a.fail[p] != 0 {
			inherited = a.out[a.fail[p]]
		}
		if len(a.term[p]) == 0 {
			a.out[p] = inherited
		} else {
			own := make([]output, 0, len(a.term[p])+len(inherited))
			for _, id := range a.term[p] {
				own = append(own, output{rule: id, length: a.depth[p]})
			}
			a.out[p] = append(own, inherited...)
		}

		for e := a.edgeStart[p]; e < a.edgeStart[p+1]; e++ {
			tok, c := a.edgeTok[e], a.edgeDst[e]
			a.depth[c] = a.depth[p] + 1
			f := a.fail[p]
			for {
				if next, ok := a.child(f, tok); ok {
					a.fail[c] = next
					break
				}
				if f == 0 {
					a.fail[c] = 0
					break
				}
				f = a.fail[f]
			}
			queue = append(queue, c)
		}
	}
}
