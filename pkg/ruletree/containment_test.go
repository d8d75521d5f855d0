package ruletree

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainment_IndexGrowsLinearly(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for _, n := range []int{1000, 4000, 8000} {
		periodic := make([]Token, n)
		random := make([]Token, n)
		for i := range periodic {
			periodic[i] = Token(i % 7)
			random[i] = Token(rng.IntN(3))
		}
		for name, pattern := range map[string][]Token{"periodic": periodic, "random": random} {
			tree := New(WithMode(ModeContainment))
			require.NoError(t, tree.Insert(pattern, 1))
			auto := tree.Compile()

			idx := auto.suffixes
			assert.LessOrEqual(t, idx.states, 2*auto.Nodes(), "%s n=%d states", name, n)
			assert.LessOrEqual(t, idx.edges, 3*auto.Nodes(), "%s n=%d edges", name, n)

			assert.Equal(t, []RuleID{1}, auto.Match(pattern[n/3:n/2]).IDs(), "%s n=%d", name, n)
			assert.Equal(t, []RuleID{1}, auto.Match(nil).IDs())
		}
	}
}

func TestContainment_IndexBoundedByTrie(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	tree := New(WithMode(ModeContainment))
	for i := 0; i < 200; i++ {
		require.NoError(t, tree.Insert(randomSeq(rng, 40, 4), RuleID(i%17)))
	}
	auto := tree.Compile()
	assert.LessOrEqual(t, auto.suffixes.states, 2*auto.Nodes())
}

func TestContainment_LongPatternsAgreeWithBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 34))
	for round := 0; round < 20; round++ {
		tree := New(WithMode(ModeContainment))
		var rules []registered
		for i := 0; i < 1+rng.IntN(8); i++ {
			r := registered{pattern: randomSeq(rng, 30, 3), id: RuleID(rng.IntN(6))}
			rules = append(rules, r)
			require.NoError(t, tree.Insert(r.pattern, r.id))
		}
		auto := tree.Compile()
		for q := 0; q < 30; q++ {
			query := randomSeq(rng, 6, 3)
			assert.ElementsMatch(t, bruteForce(ModeContainment, rules, query), auto.Match(query).IDs(),
				"round %d query %v", round, query)
		}
	}
}

func TestContainment_ZeroLengthPattern(t *testing.T) {
	tree := New(WithMode(ModeContainment))
	require.NoError(t, tree.Insert(nil, 5))
	require.NoError(t, tree.Insert([]Token{1, 2}, 6))

	assert.Equal(t, []RuleID{5, 6}, tree.Match(nil).IDs())
	assert.Equal(t, []RuleID{6}, tree.Match([]Token{2}).IDs())
}
