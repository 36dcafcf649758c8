package locator

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures Rank and the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	categories    []Category
	fuzzyMinScore int // 0 disables fuzzy matching
	partitions    int
	maxBatchSize  int
	generateIDs   bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func newConfig(opts []Option) *clientConfig {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	return cfg
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithCategories replaces the built-in category table.
func WithCategories(categories ...Category) Option {
	return optionFunc(func(c *clientConfig) {
		c.categories = append([]Category(nil), categories...)
	})
}

// WithFuzzy enables subsequence matching of the free-text query.
// Matches scoring below minScore are rejected; substring matches always pass.
func WithFuzzy(minScore int) Option {
	return optionFunc(func(c *clientConfig) {
		c.fuzzyMinScore = max(minScore, 1)
	})
}

// WithPartitions filters candidates in n concurrent partitions.
// Results are identical to the sequential run.
func WithPartitions(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.partitions = n
	})
}

// WithMaxBatchSize sets the maximum number of stores per batch upsert.
// Default: 500.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = size
	})
}

// WithGeneratedIDs assigns a random id to batch items that have none.
func WithGeneratedIDs() Option {
	return optionFunc(func(c *clientConfig) {
		c.generateIDs = true
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
