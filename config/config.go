// Package config provides YAML configuration parsing for bdixprobe.
//
// A config file is optional: every option has a default and the CLI flags
// override whatever the file says. Example:
//
//	timeout: 5s
//	concurrency: 32
//	probe: http
//	catalog: bdix.txt
//	output: working_sites.txt
//	history: bdixprobe.db
//	port: 8080
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Parse when the file leaves an option unset.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultConcurrency = 32
	DefaultPort        = 8080
)

// Probe types understood by the probe option.
const (
	ProbeHTTP = "http"
	ProbeTCP  = "tcp"
)

// Config is the root configuration for bdixprobe.
type Config struct {
	// Timeout is the per-probe time budget.
	// Accepts duration strings like "5s", "1500ms". Defaults to 5s.
	Timeout Duration `yaml:"timeout"`

	// Concurrency bounds simultaneous in-flight probes. Defaults to 32.
	Concurrency int `yaml:"concurrency"`

	// HardCancel makes an interrupt abandon in-flight probes instead of
	// letting them finish. Defaults to false.
	HardCancel bool `yaml:"hard_cancel"`

	// Probe selects the check type: "http" (default) or "tcp".
	Probe string `yaml:"probe"`

	// Catalog is a path to the server list. Empty means the embedded list.
	Catalog string `yaml:"catalog"`

	// CatalogURL overrides where the fetch command downloads the list from.
	CatalogURL string `yaml:"catalog_url"`

	// Output is the export path for working servers. Empty means a
	// timestamped working_sites_*.txt in the working directory.
	Output string `yaml:"output"`

	// History is a SQLite database path for run history. Empty disables
	// persistence.
	History string `yaml:"history"`

	// Port is the HTTP port for serve mode. Defaults to 8080.
	Port int `yaml:"port"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns a Config with every option at its default.
func Default() *Config {
	return &Config{
		Timeout:     Duration(DefaultTimeout),
		Concurrency: DefaultConcurrency,
		Probe:       ProbeHTTP,
		Port:        DefaultPort,
	}
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults for unset options,
// and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = Duration(DefaultTimeout)
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Probe == "" {
		c.Probe = ProbeHTTP
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
}

// Validate rejects configurations that must never reach a run: a
// non-positive time budget, a concurrency below one, an unknown probe type,
// or an out-of-range port.
func (c *Config) Validate() error {
	if c.Timeout.Duration() <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout.Duration())
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Probe != ProbeHTTP && c.Probe != ProbeTCP {
		return fmt.Errorf("probe must be %q or %q, got %q", ProbeHTTP, ProbeTCP, c.Probe)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}
