package ruleset

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// APIVersion is the only manifest version understood by this package.
	APIVersion = "ruletree.io/v1"
	// Kind is the manifest kind of a rule set.
	Kind = "RuleSet"
)

// RuleSet is a named collection of rules, written as a YAML or JSON
// manifest in the usual apiVersion/kind/metadata/spec layout.
type RuleSet struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec RuleSetSpec `json:"spec"`
}

type RuleSetSpec struct {
	// Mode is the match mode: occurrence (default), containment or
	// subsequence.
	Mode string `json:"mode,omitempty"`
	// MaxNodes caps the trie size. Zero means unlimited.
	MaxNodes int    `json:"maxNodes,omitempty"`
	Rules    []Rule `json:"rules"`
}

// Rule is one rule id and the token patterns registered under it.
type Rule struct {
	ID       int32     `json:"id"`
	Name     string    `json:"name,omitempty"`
	Patterns [][]int32 `json:"patterns"`
}

// Patterns returns the total number of patterns across all rules.
func (rs *RuleSet) Patterns() int {
	n := 0
	for _, r := range rs.Spec.Rules {
		n += len(r.Patterns)
	}
	return n
}
