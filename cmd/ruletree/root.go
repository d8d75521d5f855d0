package main

import (
	"github.com/spf13/cobra"

	"ruletree/internal/logging"
)

var (
	verbose  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "ruletree",
	Short: "Multi-pattern matching over integer token sequences",
	Long: `ruletree compiles rule sets of integer token patterns into an
Aho-Corasick automaton and reports which rules match a query.

Rules can be queried once from the command line or served over HTTP with
hot reload of the rule set file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := logging.Setup(cmd.ErrOrStderr(), logLevel, verbose)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
