package spectradex

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	path         string
	maxOpenConns int
	busyTimeout  time.Duration

	driver        string // "valkey" or "redis"; empty disables the dataset cache
	addrs         []string
	password      string
	cacheTTL      time.Duration
	noCompression bool

	pageSize      int
	parallelism   int
	maxIterations int
	threshold     float64
	metric        Metric
	cursor        CursorStrategy

	binLow, binHigh int
	resolution      float64

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDatabase sets the registry database file. Required.
func WithDatabase(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.path = path
	})
}

// WithConnections sets the connection pool size and how long a writer waits on a
// locked database.
func WithConnections(maxOpen int, busyTimeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxOpenConns = maxOpen
		c.busyTimeout = busyTimeout
	})
}

// WithValkey caches histogram datasets in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis caches histogram datasets in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithCacheTTL sets the dataset cache expiry. Zero keeps entries until invalidated.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithoutCompression stores cached datasets uncompressed.
func WithoutCompression() Option {
	return optionFunc(func(c *clientConfig) {
		c.noCompression = true
	})
}

// WithPageSize sets how many particles a disk cursor reads per page.
// Default: 512.
func WithPageSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.pageSize = n
	})
}

// WithParallelism caps concurrent divisions in a batch. Default: 4.
func WithParallelism(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.parallelism = n
	})
}

// WithClusteringDefaults sets what Cluster uses when a call leaves them unset.
// Defaults: 50 iterations, threshold 0.01, squared Euclidean distance.
func WithClusteringDefaults(maxIterations int, threshold float64, metric Metric) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxIterations = maxIterations
		c.threshold = threshold
		c.metric = metric
	})
}

// WithDefaultCursor selects how collections are materialized unless a call
// overrides it. Default: CursorDisk.
func WithDefaultCursor(s CursorStrategy) Option {
	return optionFunc(func(c *clientConfig) {
		c.cursor = s
	})
}

// WithBinning sets the histogram bin range and bucket width.
// Defaults: bins -300..300, resolution 0.01.
func WithBinning(low, high int, resolution float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.binLow, c.binHigh = low, high
		c.resolution = resolution
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
