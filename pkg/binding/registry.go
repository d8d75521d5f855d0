// Package binding exposes the rule-tree engine through opaque,
// generation-checked handles: create and destroy trees, insert patterns,
// run queries and read their results back one element at a time.
//
// Handles stay detectable after release. A destroyed handle, or one whose
// slot has since been reused, fails with ErrInvalidHandle instead of
// reaching another object.
package binding

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ruletree/internal/metrics"
	"ruletree/pkg/ruletree"
)

// ErrInvalidHandle is returned for zero, unknown or released handles.
var ErrInvalidHandle = errors.New("binding: invalid handle")

// TreeHandle identifies a tree owned by a Registry.
type TreeHandle uint64

// MatchesHandle identifies a query result owned by a Registry.
type MatchesHandle uint64

type treeEntry struct {
	mu   sync.Mutex
	tree *ruletree.Tree
}

// Registry owns every tree and result created through it.
type Registry struct {
	mu      sync.RWMutex
	trees   table[*treeEntry]
	matches table[*ruletree.Matches]
	logger  zerolog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{logger: log.Logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewTree creates an empty tree and returns its handle.
func (r *Registry) NewTree(opts ...ruletree.Option) TreeHandle {
	tree := ruletree.New(opts...)
	r.mu.Lock()
	h := r.trees.put(&treeEntry{tree: tree})
	r.mu.Unlock()

	metrics.TreesLive.Inc()
	r.logger.Debug().Uint64("tree", h).Str("mode", tree.Mode().String()).Msg("tree created")
	return TreeHandle(h)
}

// DeleteTree releases a tree and all of its nodes.
func (r *Registry) DeleteTree(h TreeHandle) error {
	r.mu.Lock()
	_, ok := r.trees.remove(uint64(h))
	r.mu.Unlock()
	if !ok {
		return r.invalid("tree", uint64(h))
	}
	metrics.TreesLive.Dec()
	r.logger.Debug().Uint64("tree", uint64(h)).Msg("tree deleted")
	return nil
}

// Insert registers pattern under id in the tree.
func (r *Registry) Insert(h TreeHandle, pattern []ruletree.Token, id ruletree.RuleID) error {
	e, err := r.tree(h)
	if err != nil {
		return err
	}

	e.mu.Lock()
	err = e.tree.Insert(pattern, id)
	e.mu.Unlock()
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypeResourceExhausted).Inc()
		return fmt.Errorf("insert into tree %#x: %w", uint64(h), err)
	}
	metrics.InsertsTotal.Inc()
	return nil
}

// Query matches tokens against the tree, compiling it first when it
// changed since the last query, and returns a handle to the result.
func (r *Registry) Query(h TreeHandle, tokens []ruletree.Token) (MatchesHandle, error) {
	e, err := r.tree(h)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	stale := e.tree.Stale()
	done := metrics.ObserveCompile(stale)
	auto := e.tree.Compile()
	done()
	e.mu.Unlock()

	done = metrics.ObserveQuery(auto.Mode().String())
	m := auto.Match(tokens)
	done()
	metrics.MatchesTotal.Add(float64(m.Len()))

	r.mu.Lock()
	mh := r.matches.put(m)
	r.mu.Unlock()
	metrics.ResultsLive.Inc()
	return MatchesHandle(mh), nil
}

// MatchesLen returns the number of rule ids in a result.
func (r *Registry) MatchesLen(h MatchesHandle) (int, error) {
	m, err := r.result(h)
	if err != nil {
		return 0, err
	}
	return m.Len(), nil
}

// MatchesElement returns the rule id at index i of a result.
func (r *Registry) MatchesElement(h MatchesHandle, i int) (ruletree.RuleID, error) {
	m, err := r.result(h)
	if err != nil {
		return 0, err
	}
	id, err := m.At(i)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypeOutOfRange).Inc()
		return 0, fmt.Errorf("matches %#x: %w", uint64(h), err)
	}
	return id, nil
}

// DeleteMatches releases a result.
func (r *Registry) DeleteMatches(h MatchesHandle) error {
	r.mu.Lock()
	_, ok := r.matches.remove(uint64(h))
	r.mu.Unlock()
	if !ok {
		return r.invalid("matches", uint64(h))
	}
	metrics.ResultsLive.Dec()
	return nil
}

// Len returns the number of live trees and results.
func (r *Registry) Len() (trees, results int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trees.live, r.matches.live
}

func (r *Registry) tree(h TreeHandle) (*treeEntry, error) {
	r.mu.RLock()
	e, ok := r.trees.get(uint64(h))
	r.mu.RUnlock()
	if !ok {
		return nil, r.invalid("tree", uint64(h))
	}
	return e, nil
}

func (r *Registry) result(h MatchesHandle) (*ruletree.Matches, error) {
	r.mu.RLock()
	m, ok := r.matches.get(uint64(h))
	r.mu.RUnlock()
	if !ok {
		return nil, r.invalid("matches", uint64(h))
	}
	return m, nil
}

func (r *Registry) invalid(kind string, h uint64) error {
	metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypeInvalidHandle).Inc()
	r.logger.Warn().Str("kind", kind).Uint64("handle", h).Msg("invalid handle")
	return fmt.Errorf("%w: %s %#x", ErrInvalidHandle, kind, h)
}
