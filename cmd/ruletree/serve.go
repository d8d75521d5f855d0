package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"ruletree/internal/api"
	"ruletree/internal/config"
	"ruletree/internal/logging"
	"ruletree/internal/metrics"
	"ruletree/internal/source"
	"ruletree/pkg/ruleset"
	"ruletree/pkg/ruletree"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the match API for a rule set",
	Long: `Load a rule set, compile it and answer POST /api/match requests.
With --watch the rule set is recompiled whenever the file changes; queries
keep using the previous automaton until the new one is ready.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	config.Default().BindFlags(serveCmd.Flags())
}

// resolveConfig loads the config file and applies the flags that were set
// explicitly on top of it.
func resolveConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	overlay := pflag.NewFlagSet("overlay", pflag.ContinueOnError)
	cfg.BindFlags(overlay)
	var setErr error
	flags.Visit(func(f *pflag.Flag) {
		if overlay.Lookup(f.Name) == nil || setErr != nil {
			return
		}
		setErr = overlay.Set(f.Name, f.Value.String())
	})
	if setErr != nil {
		return nil, setErr
	}
	return cfg, cfg.Validate()
}

// loadRuleSet reads and compiles the rule set named by cfg, applying the
// config's mode and node limit overrides.
func loadRuleSet(cfg *config.Config) (*ruleset.RuleSet, *ruletree.Automaton, error) {
	rs, err := ruleset.LoadFile(cfg.RulesPath)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypeRulesLoad).Inc()
		return nil, nil, err
	}
	if cfg.Mode != "" {
		if _, err := ruletree.ParseMode(cfg.Mode); err != nil {
			return nil, nil, err
		}
		rs.Spec.Mode = cfg.Mode
	}
	if cfg.MaxNodes > 0 {
		rs.Spec.MaxNodes = cfg.MaxNodes
	}

	done := metrics.ObserveCompile(true)
	auto, err := ruleset.Compile(rs)
	done()
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypeRulesLoad).Inc()
		return nil, nil, fmt.Errorf("compile rule set %q: %w", rs.Name, err)
	}
	metrics.SetRuleSet(auto.Rules(), auto.Patterns(), auto.Nodes())
	return rs, auto, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd.Flags())
	if err != nil {
		return err
	}
	if configPath != "" {
		level := cfg.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		if _, err := logging.Setup(cmd.ErrOrStderr(), level, cfg.Verbose || verbose); err != nil {
			return err
		}
	}

	srv := api.NewServer(cfg.ListenAddr, cfg.Verbose || verbose)
	reload := func() error {
		rs, auto, err := loadRuleSet(cfg)
		if err != nil {
			return err
		}
		srv.Update(rs.Name, auto)
		log.Info().
			Str("ruleset", rs.Name).
			Str("mode", auto.Mode().String()).
			Int("rules", auto.Rules()).
			Int("patterns", auto.Patterns()).
			Int("nodes", auto.Nodes()).
			Msg("Rule set loaded")
		return nil
	}
	if err := reload(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return metrics.StartMetricsServer(ctx, cfg.MetricsAddr) })
	}
	if cfg.Watch {
		w := source.NewWatcher(cfg.RulesPath, cfg.DebounceInterval)
		g.Go(func() error { return w.Run(ctx, reload) })
	}
	return g.Wait()
}
