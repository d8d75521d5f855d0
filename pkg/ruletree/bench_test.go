package ruletree

import (
	"math/rand/v2"
	"testing"
)

func benchTree(b *testing.B, mode Mode) *Automaton {
	b.Helper()
	rng := rand.New(rand.NewPCG(7, 7))
	tree := New(WithMode(mode))
	for i := 0; i < 2000; i++ {
		seq := make([]Token, 2+rng.IntN(6))
		for j := range seq {
			seq[j] = Token(rng.IntN(512))
		}
		if err := tree.Insert(seq, RuleID(i)); err != nil {
			b.Fatal(err)
		}
	}
	return tree.Compile()
}

func benchQuery(n int) []Token {
	rng := rand.New(rand.NewPCG(9, 9))
	q := make([]Token, n)
	for i := range q {
		q[i] = Token(rng.IntN(512))
	}
	return q
}

func BenchmarkCompile(b *testing.B) {
	rng := rand.New(rand.NewPCG(7, 7))
	tree := New()
	for i := 0; i < 2000; i++ {
		seq := make([]Token, 2+rng.IntN(6))
		for j := range seq {
			seq[j] = Token(rng.IntN(512))
		}
		_ = tree.Insert(seq, RuleID(i))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.stale = true
		tree.Compile()
	}
}

func BenchmarkMatch_Occurrence(b *testing.B) {
	auto := benchTree(b, ModeOccurrence)
	q := benchQuery(4096)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		auto.Match(q)
	}
}

func BenchmarkMatch_Containment(b *testing.B) {
	auto := benchTree(b, ModeContainment)
	q := benchQuery(2)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		auto.Match(q)
	}
}

func BenchmarkMatch_Subsequence(b *testing.B) {
	auto := benchTree(b, ModeSubsequence)
	q := benchQuery(256)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		auto.Match(q)
	}
}
