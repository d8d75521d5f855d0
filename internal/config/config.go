package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr       string        `yaml:"listen"`
	MetricsAddr      string        `yaml:"metrics"`
	RulesPath        string        `yaml:"rules"`
	Mode             string        `yaml:"mode"`
	Watch            bool          `yaml:"watch"`
	DebounceInterval time.Duration `yaml:"debounce"`
	MaxNodes         int           `yaml:"maxNodes"`
	LogLevel         string        `yaml:"logLevel"`
	Verbose          bool          `yaml:"verbose"`
}

func Default() *Config {
	return &Config{
		ListenAddr:       ":8080",
		MetricsAddr:      ":9090",
		DebounceInterval: 200 * time.Millisecond,
		LogLevel:         "info",
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// BindFlags registers flags that override fields of cfg.
func (cfg *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Match API listen address")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Metrics HTTP server address")
	fs.StringVar(&cfg.RulesPath, "rules", cfg.RulesPath, "Rule set manifest (YAML or JSON)")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Override the rule set match mode: occurrence, containment, subsequence")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "Reload the rule set when the file changes")
	fs.DurationVar(&cfg.DebounceInterval, "debounce", cfg.DebounceInterval, "Delay before reloading after a change")
	fs.IntVar(&cfg.MaxNodes, "max-nodes", cfg.MaxNodes, "Override the rule set node limit (0 keeps the manifest value)")
}

// Validate checks the fields needed to serve.
func (cfg *Config) Validate() error {
	if cfg.RulesPath == "" {
		return fmt.Errorf("rules path is required")
	}
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if cfg.DebounceInterval < 0 {
		return fmt.Errorf("debounce interval must be non-negative, got %v", cfg.DebounceInterval)
	}
	if cfg.MaxNodes < 0 {
		return fmt.Errorf("max nodes must be non-negative, got %d", cfg.MaxNodes)
	}
	return nil
}
