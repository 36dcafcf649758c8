package config

import (
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "valkey", Addrs: []string{"localhost:6379"}},
	}
}

func TestValidate_InvalidQuotaAction(t *testing.T) {
	cfg := validConfig()
	cfg.Enrichment.Yelp = ProviderConfig{
		APIKey: "test-key",
		Quota:  QuotaConfig{DailyLimit: 5000, Action: "invalid_action"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid quota action")
	}

	expected := `enrichment.yelp.quota.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidQuotaActions(t *testing.T) {
	for _, action := range []string{"", "warn", "reject"} {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Enrichment.Google.Quota.Action = action
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }},
		{"missing addrs", func(c *Config) { c.Database.Addrs = nil }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "memcached" }},
		{"unknown provider", func(c *Config) { c.Enrichment.Provider = "foursquare" }},
		{"bad category radius", func(c *Config) {
			c.Categories = []CategoryConfig{{ID: "grocery", RadiusMiles: -1}}
		}},
		{"duplicate category", func(c *Config) {
			c.Categories = []CategoryConfig{{ID: "a", RadiusMiles: 1}, {ID: "A", RadiusMiles: 2}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCategoryTable_BuiltinWhenEmpty(t *testing.T) {
	cfg := validConfig()
	table, err := cfg.CategoryTable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rule, known := table.Resolve("hotmeals")
	if !known || rule.Radius() != 25 {
		t.Errorf("expected builtin hotmeals rule, got known=%v radius=%v", known, rule.Radius())
	}
}

func TestCategoryTable_FromConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Categories = []CategoryConfig{
		{ID: "default", RadiusMiles: 7},
		{ID: " Bakery ", Label: "Bakeries", RadiusMiles: 3, NamePatterns: []string{"Bakery"}, Exclusions: []string{"Dollar"}},
	}
	table, err := cfg.CategoryTable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rule, known := table.Resolve("bakery")
	if !known {
		t.Fatal("expected bakery to be known")
	}
	if rule.Radius() != 3 || len(rule.Exclusions()) != 1 {
		t.Errorf("unexpected rule: radius=%v exclusions=%v", rule.Radius(), rule.Exclusions())
	}

	fallback, known := table.Resolve("hotmeals")
	if known {
		t.Error("builtin categories must not leak into a configured table")
	}
	if fallback.Radius() != 7 {
		t.Errorf("expected configured default radius 7, got %v", fallback.Radius())
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != "valkey" {
		t.Errorf("expected driver valkey, got %q", cfg.Database.Driver)
	}
	if cfg.Catalog.MaxBatchSize != 500 {
		t.Errorf("expected MaxBatchSize=500, got %d", cfg.Catalog.MaxBatchSize)
	}
	if cfg.Enrichment.PoolSize != 8 || cfg.Enrichment.MaxEnriched != 20 {
		t.Errorf("unexpected enrichment defaults: %+v", cfg.Enrichment)
	}
	if cfg.Enrichment.Yelp.TimeoutSec != 10 || cfg.Enrichment.Google.TimeoutSec != 10 {
		t.Error("expected provider timeouts of 10s")
	}
	if cfg.Logging.MaxSizeMB != 0 {
		t.Error("rotation defaults apply only with a log file")
	}
	if cfg.Search.FuzzyMinScore != 0 {
		t.Error("fuzzy score default applies only with fuzzy enabled")
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database:   DatabaseConfig{Driver: "redis", ReadinessTimeout: 15},
		Logging:    LoggingConfig{File: "/var/log/ebt.log", MaxSizeMB: 10},
		Search:     SearchConfig{Fuzzy: true, FuzzyMinScore: 5},
		Enrichment: EnrichmentConfig{PoolSize: 2},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected driver redis, got %q", cfg.Database.Driver)
	}
	if cfg.Logging.MaxSizeMB != 10 || cfg.Logging.MaxBackups != 5 {
		t.Errorf("unexpected rotation settings: %+v", cfg.Logging)
	}
	if cfg.Search.FuzzyMinScore != 5 {
		t.Errorf("expected FuzzyMinScore=5, got %d", cfg.Search.FuzzyMinScore)
	}
	if cfg.Enrichment.PoolSize != 2 {
		t.Errorf("expected PoolSize=2, got %d", cfg.Enrichment.PoolSize)
	}
}

func TestEnrichmentActive(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EnrichmentConfig
		wantKey string
		wantOK  bool
	}{
		{"disabled", EnrichmentConfig{Yelp: ProviderConfig{APIKey: "y"}}, "", false},
		{"yelp with key", EnrichmentConfig{Provider: "yelp", Yelp: ProviderConfig{APIKey: "y"}}, "y", true},
		{"yelp without key", EnrichmentConfig{Provider: "yelp", Google: ProviderConfig{APIKey: "g"}}, "", false},
		{"google with key", EnrichmentConfig{Provider: "google", Google: ProviderConfig{APIKey: "g"}}, "g", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := tt.cfg.Active()
			if ok != tt.wantOK || p.APIKey != tt.wantKey {
				t.Errorf("Active() = (%q, %v), want (%q, %v)", p.APIKey, ok, tt.wantKey, tt.wantOK)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("EBT_TEST_KEY", "secret")

	got := string(expandEnvVars([]byte("a: ${EBT_TEST_KEY}\nb: ${EBT_TEST_MISSING:-fallback}\nc: ${EBT_TEST_MISSING}")))
	want := "a: secret\nb: fallback\nc: "
	if got != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestLoad_Local(t *testing.T) {
	t.Setenv("EBT_HTTP_PORT", "9090")

	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port from env 9090, got %d", cfg.HTTP.Port)
	}
	if _, err := cfg.CategoryTable(); err != nil {
		t.Errorf("local categories invalid: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("does-not-exist"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
