package ruleset

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"

	"ruletree/pkg/ruletree"
)

const decodeBufferSize = 4096

// Load decodes and validates a YAML or JSON rule set manifest.
func Load(r io.Reader) (*RuleSet, error) {
	var rs RuleSet
	if err := utilyaml.NewYAMLOrJSONDecoder(r, decodeBufferSize).Decode(&rs); err != nil {
		return nil, fmt.Errorf("failed to decode rule set: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule set %q: %w", rs.Name, err)
	}
	return &rs, nil
}

// LoadBytes is Load over an in-memory manifest.
func LoadBytes(data []byte) (*RuleSet, error) {
	return Load(bytes.NewReader(data))
}

// LoadFile reads a rule set manifest from path.
func LoadFile(path string) (*RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule set %s: %w", path, err)
	}
	defer f.Close()

	rs, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Validate reports every structural problem in the manifest at once.
func (rs *RuleSet) Validate() error {
	var errs field.ErrorList

	if rs.APIVersion != APIVersion {
		errs = append(errs, field.NotSupported(field.NewPath("apiVersion"), rs.APIVersion, []string{APIVersion}))
	}
	if rs.Kind != Kind {
		errs = append(errs, field.NotSupported(field.NewPath("kind"), rs.Kind, []string{Kind}))
	}

	namePath := field.NewPath("metadata", "name")
	if rs.Name == "" {
		errs = append(errs, field.Required(namePath, "rule set must be named"))
	} else {
		for _, msg := range validation.IsDNS1123Subdomain(rs.Name) {
			errs = append(errs, field.Invalid(namePath, rs.Name, msg))
		}
	}

	spec := field.NewPath("spec")
	if _, err := ruletree.ParseMode(rs.Spec.Mode); err != nil {
		errs = append(errs, field.NotSupported(spec.Child("mode"), rs.Spec.Mode,
			[]string{"occurrence", "containment", "subsequence"}))
	}
	if rs.Spec.MaxNodes < 0 {
		errs = append(errs, field.Invalid(spec.Child("maxNodes"), rs.Spec.MaxNodes, "must be non-negative"))
	}

	seen := sets.New[int32]()
	for i, r := range rs.Spec.Rules {
		rulePath := spec.Child("rules").Index(i)
		if seen.Has(r.ID) {
			errs = append(errs, field.Duplicate(rulePath.Child("id"), r.ID))
		}
		seen.Insert(r.ID)
		if len(r.Patterns) == 0 {
			errs = append(errs, field.Required(rulePath.Child("patterns"), "rule needs at least one pattern"))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs.ToAggregate()
}

// Build inserts every pattern of the rule set into a new tree.
func Build(rs *RuleSet) (*ruletree.Tree, error) {
	mode, err := ruletree.ParseMode(rs.Spec.Mode)
	if err != nil {
		return nil, err
	}
	tree := ruletree.New(ruletree.WithMode(mode), ruletree.WithMaxNodes(rs.Spec.MaxNodes))
	for _, r := range rs.Spec.Rules {
		for j, p := range r.Patterns {
			if err := tree.Insert(p, r.ID); err != nil {
				return nil, fmt.Errorf("rule %d pattern %d: %w", r.ID, j, err)
			}
		}
	}
	return tree, nil
}

// Compile builds the rule set and returns its compiled automaton.
func Compile(rs *RuleSet) (*ruletree.Automaton, error) {
	tree, err := Build(rs)
	if err != nil {
		return nil, err
	}
	return tree.Compile(), nil
}
