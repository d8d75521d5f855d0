package binding

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruletree/pkg/ruletree"
)

func newTestRegistry() *Registry {
	return NewRegistry(WithLogger(zerolog.Nop()))
}

// readAll drains a result through the element accessor, the way a
// foreign caller would.
func readAll(t *testing.T, r *Registry, h MatchesHandle) []ruletree.RuleID {
	t.Helper()
	n, err := r.MatchesLen(h)
	require.NoError(t, err)
	ids := make([]ruletree.RuleID, 0, n)
	for i := 0; i < n; i++ {
		id, err := r.MatchesElement(h, i)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestRegistry_Lifecycle(t *testing.T) {
	r := newTestRegistry()
	tree := r.NewTree(ruletree.WithMode(ruletree.ModeContainment))
	require.NoError(t, r.Insert(tree, []ruletree.Token{1, 2, 3, 4}, 1))
	require.NoError(t, r.Insert(tree, []ruletree.Token{2, 3, 4}, 2))

	m, err := r.Query(tree, []ruletree.Token{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []ruletree.RuleID{1, 2}, readAll(t, r, m))

	trees, results := r.Len()
	assert.Equal(t, 1, trees)
	assert.Equal(t, 1, results)

	require.NoError(t, r.DeleteMatches(m))
	require.NoError(t, r.DeleteTree(tree))

	trees, results = r.Len()
	assert.Zero(t, trees)
	assert.Zero(t, results)
}

func TestRegistry_Scenarios(t *testing.T) {
	r := newTestRegistry()
	tree := r.NewTree(ruletree.WithMode(ruletree.ModeContainment))
	require.NoError(t, r.Insert(tree, []ruletree.Token{1, 2, 3, 4}, 1))
	require.NoError(t, r.Insert(tree, []ruletree.Token{2, 3, 4}, 2))

	tests := []struct {
		name  string
		query []ruletree.Token
		want  []ruletree.RuleID
	}{
		{name: "A", query: []ruletree.Token{2, 3}, want: []ruletree.RuleID{1, 2}},
		{name: "B", query: []ruletree.Token{3, 4}, want: []ruletree.RuleID{1, 2}},
		{name: "C", query: []ruletree.Token{1, 2, 3}, want: []ruletree.RuleID{1}},
		{name: "D", query: []ruletree.Token{9}, want: []ruletree.RuleID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := r.Query(tree, tt.query)
			require.NoError(t, err)
			defer func() { require.NoError(t, r.DeleteMatches(m)) }()
			assert.Equal(t, tt.want, readAll(t, r, m))
		})
	}
}

func TestRegistry_ElementOutOfRange(t *testing.T) {
	r := newTestRegistry()
	tree := r.NewTree()
	require.NoError(t, r.Insert(tree, []ruletree.Token{5}, 5))

	m, err := r.Query(tree, []ruletree.Token{5})
	require.NoError(t, err)

	n, err := r.MatchesLen(m)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = r.MatchesElement(m, n)
	assert.ErrorIs(t, err, ruletree.ErrOutOfRange)
	assert.NotErrorIs(t, err, ErrInvalidHandle)
}

func TestRegistry_EmptyTreeQuery(t *testing.T) {
	r := newTestRegistry()
	tree := r.NewTree()

	m, err := r.Query(tree, []ruletree.Token{1, 2, 3})
	require.NoError(t, err)
	n, err := r.MatchesLen(m)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegistry_InvalidHandles(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Query(0, nil)
	assert.ErrorIs(t, err, ErrInvalidHandle, "zero handle")
	assert.ErrorIs(t, r.Insert(TreeHandle(12345), nil, 1), ErrInvalidHandle, "never issued")
	_, err = r.MatchesLen(MatchesHandle(7))
	assert.ErrorIs(t, err, ErrInvalidHandle)

	tree := r.NewTree()
	m, err := r.Query(tree, nil)
	require.NoError(t, err)

	require.NoError(t, r.DeleteTree(tree))
	assert.ErrorIs(t, r.DeleteTree(tree), ErrInvalidHandle, "double delete")
	assert.ErrorIs(t, r.Insert(tree, []ruletree.Token{1}, 1), ErrInvalidHandle, "use after delete")

	// results outlive the tree that produced them
	n, err := r.MatchesLen(m)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, r.DeleteMatches(m))
	_, err = r.MatchesElement(m, 0)
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.ErrorIs(t, r.DeleteMatches(m), ErrInvalidHandle)
}

func TestRegistry_ReusedSlotRejectsOldHandle(t *testing.T) {
	r := newTestRegistry()
	old := r.NewTree()
	require.NoError(t, r.DeleteTree(old))

	fresh := r.NewTree()
	assert.NotEqual(t, old, fresh)
	assert.Equal(t, uint32(old), uint32(fresh), "slot is reused")

	assert.ErrorIs(t, r.Insert(old, []ruletree.Token{1}, 1), ErrInvalidHandle)
	assert.NoError(t, r.Insert(fresh, []ruletree.Token{1}, 1))
}

func TestRegistry_ResourceExhausted(t *testing.T) {
	r := newTestRegistry()
	tree := r.NewTree(ruletree.WithMaxNodes(2))
	require.NoError(t, r.Insert(tree, []ruletree.Token{1}, 1))

	err := r.Insert(tree, []ruletree.Token{2}, 2)
	assert.ErrorIs(t, err, ruletree.ErrResourceExhausted)

	m, err := r.Query(tree, []ruletree.Token{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []ruletree.RuleID{1}, readAll(t, r, m))
}

func TestRegistry_InsertAfterQueryRecompiles(t *testing.T) {
	r := newTestRegistry()
	tree := r.NewTree()
	require.NoError(t, r.Insert(tree, []ruletree.Token{1}, 1))

	first, err := r.Query(tree, []ruletree.Token{1, 2})
	require.NoError(t, err)
	require.NoError(t, r.Insert(tree, []ruletree.Token{2}, 2))
	second, err := r.Query(tree, []ruletree.Token{1, 2})
	require.NoError(t, err)

	assert.Equal(t, []ruletree.RuleID{1}, readAll(t, r, first), "earlier result is immutable")
	assert.Equal(t, []ruletree.RuleID{1, 2}, readAll(t, r, second))
}

func TestRegistry_ConcurrentQueries(t *testing.T) {
	r := newTestRegistry()
	tree := r.NewTree()
	require.NoError(t, r.Insert(tree, []ruletree.Token{1, 2}, 1))
	require.NoError(t, r.Insert(tree, []ruletree.Token{2}, 2))

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := r.Query(tree, []ruletree.Token{1, 2})
			if err != nil {
				errs <- err
				return
			}
			n, err := r.MatchesLen(m)
			if err != nil {
				errs <- err
				return
			}
			if n != 2 {
				errs <- fmt.Errorf("got %d matches, want 2", n)
				return
			}
			errs <- r.DeleteMatches(m)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	_, results := r.Len()
	assert.Zero(t, results)
}

func TestHandleEncoding(t *testing.T) {
	h := makeHandle(0, 0)
	assert.NotZero(t, h)

	index, gen, ok := splitHandle(makeHandle(41, 3))
	require.True(t, ok)
	assert.Equal(t, uint32(41), index)
	assert.Equal(t, uint32(3), gen)

	_, _, ok = splitHandle(3 << 32)
	assert.False(t, ok)
}
