// Package config: packaging-host configuration loader.
//
// This file provides configuration loading for a long-running packaging
// host (one process serving multiple chains) from a YAML file with
// environment variable substitution. cmd/safelens does not read it; the
// CLI takes its settings from Config and flags.

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// ==============================================================================
// Host Configuration Structures
// ==============================================================================

// HostConfig holds everything a packaging host needs beyond a single
// invocation's env vars: one RPC endpoint per supported chain prefix
// (see pkg/chainreg), the descriptor index path, and its own metrics and
// logging settings.
type HostConfig struct {
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`

	Chains     map[string]ChainEndpoint `yaml:"chains"`
	Descriptor DescriptorSettings       `yaml:"descriptor"`
	Monitoring MonitoringSettings       `yaml:"monitoring"`
	RPC        RPCSettings              `yaml:"rpc"`
}

// ChainEndpoint is one chain prefix's RPC configuration (see
// pkg/chainreg.Entry.Prefix for the key space this is indexed by).
type ChainEndpoint struct {
	URL            string   `yaml:"url"`
	TraceURL       string   `yaml:"trace_url"`
	SupportsTrace  bool     `yaml:"supports_trace"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

// DescriptorSettings configures the generic ERC-7730-style interpreter
// fallback's descriptor table.
type DescriptorSettings struct {
	IndexPath       string   `yaml:"index_path"`
	ReloadInterval  Duration `yaml:"reload_interval"`
	FailOpenOnError bool     `yaml:"fail_open_on_error"`
}

// RPCSettings are cross-chain defaults applied when a ChainEndpoint leaves
// a field unset.
type RPCSettings struct {
	DefaultTimeout Duration `yaml:"default_timeout"`
	MaxRetries     int      `yaml:"max_retries"`
	MaxConnections int      `yaml:"max_connections"`
}

// MonitoringSettings configures the host's metrics and log output.
type MonitoringSettings struct {
	Metrics MetricsSettings `yaml:"metrics"`
	Logging LoggingSettings `yaml:"logging"`
}

// MetricsSettings configures the /metrics listener pkg/obsmetrics serves.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingSettings configures the host's log output.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ==============================================================================
// Duration Type for YAML Parsing
// ==============================================================================

// Duration wraps time.Duration for YAML unmarshaling from strings like
// "30s" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
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

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ==============================================================================
// Configuration Loading
// ==============================================================================

// LoadHostConfig loads host configuration from a YAML file. Environment
// variables in the form ${VAR_NAME} or ${VAR_NAME:-default} are
// substituted into the file content before parsing.
func LoadHostConfig(path string) (*HostConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))

	var cfg HostConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadHostConfigWithDefaults loads config and fills in defaults for any
// zero-valued field a caller's YAML left unset.
func LoadHostConfigWithDefaults(path string) (*HostConfig, error) {
	cfg, err := LoadHostConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *HostConfig) applyDefaults() {
	if c.RPC.DefaultTimeout == 0 {
		c.RPC.DefaultTimeout = Duration(30 * time.Second)
	}
	if c.RPC.MaxRetries == 0 {
		c.RPC.MaxRetries = 3
	}
	if c.RPC.MaxConnections == 0 {
		c.RPC.MaxConnections = 10
	}

	for prefix, ep := range c.Chains {
		if ep.RequestTimeout == 0 {
			ep.RequestTimeout = c.RPC.DefaultTimeout
			c.Chains[prefix] = ep
		}
	}

	if c.Descriptor.ReloadInterval == 0 {
		c.Descriptor.ReloadInterval = Duration(5 * time.Minute)
	}

	if c.Monitoring.Metrics.Addr == "" {
		c.Monitoring.Metrics.Addr = "0.0.0.0:9090"
	}
	if c.Monitoring.Metrics.Path == "" {
		c.Monitoring.Metrics.Path = "/metrics"
	}
	if c.Monitoring.Logging.Level == "" {
		c.Monitoring.Logging.Level = "info"
	}
	if c.Monitoring.Logging.Format == "" {
		c.Monitoring.Logging.Format = "json"
	}
}

// ==============================================================================
// Configuration Validation
// ==============================================================================

// Validate checks the host configuration for production use: every known
// chain prefix referenced in Chains must actually be registered in
// pkg/chainreg, and each endpoint needs a non-empty URL.
func (c *HostConfig) Validate(knownPrefixes func(prefix string) bool) error {
	var errs []string

	if len(c.Chains) == 0 {
		errs = append(errs, "chains: at least one chain endpoint must be configured")
	}
	for prefix, ep := range c.Chains {
		if knownPrefixes != nil && !knownPrefixes(prefix) {
			errs = append(errs, fmt.Sprintf("chains.%s: not a recognized chain prefix", prefix))
		}
		if ep.URL == "" || isUnresolvedPlaceholder(ep.URL) {
			errs = append(errs, fmt.Sprintf("chains.%s.url is required", prefix))
		}
	}

	if c.Descriptor.IndexPath != "" && isUnresolvedPlaceholder(c.Descriptor.IndexPath) {
		errs = append(errs, "descriptor.index_path references an unset environment variable")
	}

	if len(errs) > 0 {
		return fmt.Errorf("host configuration validation failed:\n  - %s", joinLines(errs))
	}
	return nil
}

func isUnresolvedPlaceholder(s string) bool {
	return len(s) >= 2 && s[0] == '$' && s[1] == '{'
}

func joinLines(lines []string) string {
	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n  - " + l
	}
	return out
}

// ==============================================================================
// Environment Variable Substitution
// ==============================================================================

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}

		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}
