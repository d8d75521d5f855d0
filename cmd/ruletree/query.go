package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ruletree/pkg/binding"
	"ruletree/pkg/ruleset"
	"ruletree/pkg/ruletree"
)

var (
	queryRulesPath string
	queryInserts   []string
	queryMode      string
)

var queryCmd = &cobra.Command{
	Use:   "query [TOKENS]",
	Short: "Match one token sequence against a set of rules",
	Long: `Build a tree from a rule set file and/or --insert patterns, run one
query and print the matching rule ids.

  ruletree query --mode containment --insert 1,2,3,4:1 --insert 2,3,4:2 2,3`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryRulesPath, "rules", "", "Rule set manifest to load")
	queryCmd.Flags().StringArrayVar(&queryInserts, "insert", nil, "Extra pattern as TOKENS:ID (repeatable)")
	queryCmd.Flags().StringVar(&queryMode, "mode", "", "Match mode, overrides the rule set: occurrence, containment, subsequence")
}

func runQuery(cmd *cobra.Command, args []string) error {
	var query []ruletree.Token
	if len(args) == 1 {
		var err error
		if query, err = parseTokens(args[0]); err != nil {
			return err
		}
	}

	var rs *ruleset.RuleSet
	modeName := queryMode
	maxNodes := 0
	if queryRulesPath != "" {
		var err error
		if rs, err = ruleset.LoadFile(queryRulesPath); err != nil {
			return err
		}
		if modeName == "" {
			modeName = rs.Spec.Mode
		}
		maxNodes = rs.Spec.MaxNodes
	}
	mode, err := ruletree.ParseMode(modeName)
	if err != nil {
		return err
	}

	reg := binding.NewRegistry(binding.WithLogger(zerolog.Nop()))
	tree := reg.NewTree(ruletree.WithMode(mode), ruletree.WithMaxNodes(maxNodes))
	defer releaseTree(reg, tree)

	if rs != nil {
		for _, r := range rs.Spec.Rules {
			for _, p := range r.Patterns {
				if err := reg.Insert(tree, p, r.ID); err != nil {
					return fmt.Errorf("rule %d: %w", r.ID, err)
				}
			}
		}
	}
	for _, s := range queryInserts {
		pattern, id, err := parseInsert(s)
		if err != nil {
			return err
		}
		if err := reg.Insert(tree, pattern, id); err != nil {
			return err
		}
	}

	m, err := reg.Query(tree, query)
	if err != nil {
		return err
	}
	defer releaseMatches(reg, m)

	n, err := reg.MatchesLen(m)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d matches\n", n)
	for i := 0; i < n; i++ {
		id, err := reg.MatchesElement(m, i)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, id)
	}
	return nil
}

// releaseTree and releaseMatches free handles on the way out of a command.
// A failure here cannot change the printed result, so it is only logged.
func releaseTree(reg *binding.Registry, h binding.TreeHandle) {
	if err := reg.DeleteTree(h); err != nil {
		log.Debug().Err(err).Msg("Failed to release tree")
	}
}

func releaseMatches(reg *binding.Registry, h binding.MatchesHandle) {
	if err := reg.DeleteMatches(h); err != nil {
		log.Debug().Err(err).Msg("Failed to release matches")
	}
}
