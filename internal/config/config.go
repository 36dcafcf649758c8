package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/ebtlocator/internal/domain/category"
)

// Config holds the ebtlocator API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
	Search     SearchConfig     `yaml:"search"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Popularity PopularityConfig `yaml:"popularity"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Categories []CategoryConfig `yaml:"categories"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File       string `yaml:"file"`  // optional rotating file sink next to stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds ranking pipeline settings.
type SearchConfig struct {
	Fuzzy         bool `yaml:"fuzzy"`           // subsequence matching on top of substring
	FuzzyMinScore int  `yaml:"fuzzy_min_score"` // minimum sahilm/fuzzy score
	Partitions    int  `yaml:"partitions"`      // concurrent filter partitions; <=1 is sequential
}

// CatalogConfig holds store write settings.
type CatalogConfig struct {
	MaxBatchSize int `yaml:"max_batch_size"`
}

// PopularityConfig holds click counter settings.
type PopularityConfig struct {
	TTLDays int `yaml:"ttl_days"` // 0 keeps counters forever
}

// EnrichmentConfig holds third-party place data settings.
type EnrichmentConfig struct {
	Provider        string         `yaml:"provider"` // yelp, google, or empty to disable
	PoolSize        int            `yaml:"pool_size"`
	MaxEnriched     int            `yaml:"max_enriched"`
	MemoryTTLSec    int            `yaml:"memory_ttl_sec"`
	CacheTTLHours   int            `yaml:"cache_ttl_hours"`
	NegativeTTLMins int            `yaml:"negative_ttl_mins"`
	Yelp            ProviderConfig `yaml:"yelp"`
	Google          ProviderConfig `yaml:"google"`
}

// Active returns the selected provider's settings. ok is false when no
// provider is selected or the selected one has no API key.
func (e EnrichmentConfig) Active() (ProviderConfig, bool) {
	var p ProviderConfig
	switch e.Provider {
	case "yelp":
		p = e.Yelp
	case "google":
		p = e.Google
	default:
		return ProviderConfig{}, false
	}
	return p, p.APIKey != ""
}

// QuotaConfig holds provider call limits.
type QuotaConfig struct {
	DailyLimit   int64  `yaml:"daily_limit"`   // 0 = unlimited
	MonthlyLimit int64  `yaml:"monthly_limit"` // 0 = unlimited
	Action       string `yaml:"action"`        // "reject" | "warn" (default)
}

// ProviderConfig holds one place data provider's settings.
type ProviderConfig struct {
	APIKey     string      `yaml:"api_key"`
	BaseURL    string      `yaml:"base_url"`
	TimeoutSec int         `yaml:"timeout_sec"`
	Quota      QuotaConfig `yaml:"quota"`
}

// CategoryConfig is one entry of the category table.
type CategoryConfig struct {
	ID           string   `yaml:"id"`
	Label        string   `yaml:"label"`
	RadiusMiles  float64  `yaml:"radius_miles"`
	Exclusions   []string `yaml:"exclusions"`
	StoreTypes   []string `yaml:"store_types"`
	NamePatterns []string `yaml:"name_patterns"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Logging.File != "" {
		if c.Logging.MaxSizeMB <= 0 {
			c.Logging.MaxSizeMB = 100
		}
		if c.Logging.MaxBackups <= 0 {
			c.Logging.MaxBackups = 5
		}
		if c.Logging.MaxAgeDays <= 0 {
			c.Logging.MaxAgeDays = 28
		}
	}
	if c.Search.Fuzzy && c.Search.FuzzyMinScore <= 0 {
		c.Search.FuzzyMinScore = 1
	}
	if c.Catalog.MaxBatchSize <= 0 {
		c.Catalog.MaxBatchSize = 500
	}
	e := &c.Enrichment
	if e.PoolSize <= 0 {
		e.PoolSize = 8
	}
	if e.MaxEnriched <= 0 {
		e.MaxEnriched = 20
	}
	if e.MemoryTTLSec <= 0 {
		e.MemoryTTLSec = 300
	}
	if e.CacheTTLHours <= 0 {
		e.CacheTTLHours = 24
	}
	if e.NegativeTTLMins <= 0 {
		e.NegativeTTLMins = 60
	}
	for _, p := range []*ProviderConfig{&e.Yelp, &e.Google} {
		if p.TimeoutSec <= 0 {
			p.TimeoutSec = 10
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	switch c.Enrichment.Provider {
	case "", "yelp", "google":
	default:
		return fmt.Errorf("enrichment.provider must be \"yelp\", \"google\" or empty, got %q", c.Enrichment.Provider)
	}
	for name, p := range map[string]ProviderConfig{"yelp": c.Enrichment.Yelp, "google": c.Enrichment.Google} {
		switch p.Quota.Action {
		case "", "warn", "reject":
			// ok
		default:
			return fmt.Errorf(
				"enrichment.%s.quota.action must be \"warn\" or \"reject\", got %q",
				name, p.Quota.Action,
			)
		}
	}
	if _, err := c.CategoryTable(); err != nil {
		return err
	}
	return nil
}

// CategoryTable builds the category table. No configured categories means the
// built-in table.
func (c *Config) CategoryTable() (category.Table, error) {
	if len(c.Categories) == 0 {
		return category.Builtin(), nil
	}
	rules := make([]category.Rule, 0, len(c.Categories))
	for i, cc := range c.Categories {
		r, err := category.NewRule(
			cc.ID, cc.Label, cc.RadiusMiles,
			cc.Exclusions, cc.StoreTypes, cc.NamePatterns,
		)
		if err != nil {
			return category.Table{}, fmt.Errorf("categories[%d]: %w", i, err)
		}
		rules = append(rules, r)
	}
	t, err := category.NewTable(rules)
	if err != nil {
		return category.Table{}, fmt.Errorf("categories: %w", err)
	}
	return t, nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
