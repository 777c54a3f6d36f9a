package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "app:\n  environment: test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.App.Environment != "test" {
		t.Errorf("environment not taken from file: %q", cfg.App.Environment)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("default port mismatch: got %d", cfg.Server.Port)
	}
	if cfg.Routing.Strategy != StrategyCheapest {
		t.Errorf("default strategy mismatch: got %q", cfg.Routing.Strategy)
	}
	if cfg.Routing.ServiceFeeBps != 40 {
		t.Errorf("default service fee mismatch: got %d", cfg.Routing.ServiceFeeBps)
	}
	if cfg.Collector.RefreshInterval != 10*time.Second {
		t.Errorf("default refresh interval mismatch: got %s", cfg.Collector.RefreshInterval)
	}
	if cfg.Protocols.Bucket.ReferenceFeeBps != 5 {
		t.Errorf("default bucket reference fee mismatch: got %d", cfg.Protocols.Bucket.ReferenceFeeBps)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfigFile(t, `
app:
  environment: production
server:
  port: 8080
routing:
  strategy: highest_liquidity
  service_fee_bps: 30
collector:
  refresh_interval: 30s
  fetch_timeout: 5s
protocols:
  navi:
    reference_liquidity: 123456
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port override ignored: got %d", cfg.Server.Port)
	}
	if cfg.Routing.Strategy != StrategyHighestLiquidity {
		t.Errorf("strategy override ignored: got %q", cfg.Routing.Strategy)
	}
	if cfg.Routing.ServiceFeeBps != 30 {
		t.Errorf("service fee override ignored: got %d", cfg.Routing.ServiceFeeBps)
	}
	if cfg.Collector.RefreshInterval != 30*time.Second {
		t.Errorf("refresh interval override ignored: got %s", cfg.Collector.RefreshInterval)
	}
	if cfg.Collector.FetchTimeout != 5*time.Second {
		t.Errorf("fetch timeout override ignored: got %s", cfg.Collector.FetchTimeout)
	}
	if cfg.Protocols.Navi.ReferenceLiquidity != 123456 {
		t.Errorf("navi reference liquidity override ignored: got %d", cfg.Protocols.Navi.ReferenceLiquidity)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: -1\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for negative port")
	}
	if !strings.Contains(err.Error(), "server.port") {
		t.Errorf("error should mention the offending key, got: %v", err)
	}
}

func validConfig() Config {
	return Config{
		App:    AppConfig{Environment: "test"},
		Server: ServerConfig{Port: 3000},
		Sui: SuiConfig{
			RPCURL:         "https://fullnode.testnet.sui.io:443",
			RequestTimeout: 10 * time.Second,
		},
		Routing: RoutingConfig{Strategy: StrategyCheapest, ServiceFeeBps: 30},
		Collector: CollectorConfig{
			Asset:           "0x2::sui::SUI",
			RefreshInterval: 10 * time.Second,
			FetchTimeout:    5 * time.Second,
		},
		Database: DatabaseConfig{
			Path:         "data/test.db",
			MaxOpenConns: 4,
		},
		Logging: LoggingConfig{
			Level:            "info",
			Encoding:         "console",
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		},
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty environment", func(c *Config) { c.App.Environment = "" }, "app.environment"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"empty rpc url", func(c *Config) { c.Sui.RPCURL = "" }, "sui.rpc_url"},
		{"service fee too high", func(c *Config) { c.Routing.ServiceFeeBps = 10_001 }, "routing.service_fee_bps"},
		{"empty asset", func(c *Config) { c.Collector.Asset = "" }, "collector.asset"},
		{"fetch timeout above interval", func(c *Config) { c.Collector.FetchTimeout = time.Minute }, "collector.fetch_timeout"},
		{"missing database path", func(c *Config) { c.Database.Path = ""; c.Database.InMemory = false }, "database.path"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error should mention %q, got: %v", tc.want, err)
			}
		})
	}
}

func TestValidateInMemoryDatabaseAllowsEmptyPath(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Path = ""
	cfg.Database.InMemory = true

	if err := cfg.Validate(); err != nil {
		t.Fatalf("in-memory database should not require a path: %v", err)
	}
}
