package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "host.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestSubstituteEnvVarsUsesEnvValueOverDefault(t *testing.T) {
	os.Setenv("SAFELENS_TEST_VAR", "from-env")
	defer os.Unsetenv("SAFELENS_TEST_VAR")

	got := substituteEnvVars("url: ${SAFELENS_TEST_VAR:-fallback}")
	if got != "url: from-env" {
		t.Errorf("got %q", got)
	}
}

func TestSubstituteEnvVarsFallsBackToDefault(t *testing.T) {
	os.Unsetenv("SAFELENS_TEST_VAR_UNSET")
	got := substituteEnvVars("url: ${SAFELENS_TEST_VAR_UNSET:-https://default.example}")
	if got != "url: https://default.example" {
		t.Errorf("got %q", got)
	}
}

func TestSubstituteEnvVarsNoDefaultAndUnsetYieldsEmpty(t *testing.T) {
	os.Unsetenv("SAFELENS_TEST_VAR_UNSET")
	got := substituteEnvVars("key: ${SAFELENS_TEST_VAR_UNSET}")
	if got != "key: " {
		t.Errorf("got %q", got)
	}
}

func TestLoadHostConfigParsesChainsAndDuration(t *testing.T) {
	os.Setenv("SAFELENS_ETH_RPC", "https://eth.example/rpc")
	defer os.Unsetenv("SAFELENS_ETH_RPC")

	path := writeTempConfig(t, `
environment: production
version: "1"
chains:
  eth:
    url: ${SAFELENS_ETH_RPC}
    supports_trace: true
    request_timeout: 45s
descriptor:
  index_path: /etc/safelens/descriptors.json
monitoring:
  metrics:
    enabled: true
    addr: "0.0.0.0:9090"
  logging:
    level: debug
`)

	cfg, err := LoadHostConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eth, ok := cfg.Chains["eth"]
	if !ok {
		t.Fatal("expected an eth chain entry")
	}
	if eth.URL != "https://eth.example/rpc" {
		t.Errorf("eth.URL = %q", eth.URL)
	}
	if eth.RequestTimeout.Duration() != 45*time.Second {
		t.Errorf("eth.RequestTimeout = %v, want 45s", eth.RequestTimeout.Duration())
	}
	if cfg.Monitoring.Logging.Level != "debug" {
		t.Errorf("logging level = %q", cfg.Monitoring.Logging.Level)
	}
}

func TestLoadHostConfigWithDefaultsFillsUnsetFields(t *testing.T) {
	path := writeTempConfig(t, `
chains:
  sep:
    url: https://sepolia.example/rpc
`)

	cfg, err := LoadHostConfigWithDefaults(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RPC.DefaultTimeout.Duration() != 30*time.Second {
		t.Errorf("RPC.DefaultTimeout = %v, want 30s", cfg.RPC.DefaultTimeout.Duration())
	}
	if cfg.Chains["sep"].RequestTimeout.Duration() != 30*time.Second {
		t.Errorf("sep.RequestTimeout not defaulted from RPC.DefaultTimeout: %v", cfg.Chains["sep"].RequestTimeout.Duration())
	}
	if cfg.Monitoring.Metrics.Addr != "0.0.0.0:9090" {
		t.Errorf("Metrics.Addr = %q", cfg.Monitoring.Metrics.Addr)
	}
	if cfg.Monitoring.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Monitoring.Logging.Level)
	}
}

func TestValidateRejectsUnknownChainPrefix(t *testing.T) {
	cfg := &HostConfig{Chains: map[string]ChainEndpoint{
		"not-a-chain": {URL: "https://example.com"},
	}}
	known := func(prefix string) bool { return prefix == "eth" }

	if err := cfg.Validate(known); err == nil {
		t.Fatal("expected an error for an unrecognized chain prefix")
	}
}

func TestValidateRejectsMissingURL(t *testing.T) {
	cfg := &HostConfig{Chains: map[string]ChainEndpoint{
		"eth": {URL: ""},
	}}
	known := func(prefix string) bool { return true }

	if err := cfg.Validate(known); err == nil {
		t.Fatal("expected an error for a missing chain URL")
	}
}

func TestValidateRejectsUnresolvedPlaceholder(t *testing.T) {
	cfg := &HostConfig{Chains: map[string]ChainEndpoint{
		"eth": {URL: "${SAFELENS_UNSET_RPC}"},
	}}
	known := func(prefix string) bool { return true }

	if err := cfg.Validate(known); err == nil {
		t.Fatal("expected an error when a required field never got substituted")
	}
}

func TestValidateAcceptsWellFormedHostConfig(t *testing.T) {
	cfg := &HostConfig{Chains: map[string]ChainEndpoint{
		"eth": {URL: "https://eth.example/rpc"},
	}}
	known := func(prefix string) bool { return prefix == "eth" }

	if err := cfg.Validate(known); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
