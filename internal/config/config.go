package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the spectradex service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Histogram  HistogramConfig  `yaml:"histogram"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"` // empty = auth disabled
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds registry database settings.
type DatabaseConfig struct {
	Path          string `yaml:"path"`
	MaxOpenConns  int    `yaml:"max_open_conns"`
	BusyTimeoutMs int    `yaml:"busy_timeout_ms"`
}

// CacheConfig holds histogram dataset cache settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 = no expiry
	Compression      *bool    `yaml:"compression"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Compress reports whether payloads are zstd-compressed (default: true).
func (c CacheConfig) Compress() bool {
	return c.Compression == nil || *c.Compression
}

// ClusteringConfig holds division defaults.
type ClusteringConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	Threshold     float64 `yaml:"threshold"`
	Metric        string  `yaml:"metric"` // euclidean_squared, city_block, dot_product
	Cursor        string  `yaml:"cursor"` // disk, memory
	PageSize      int     `yaml:"page_size"`
	Parallelism   int     `yaml:"parallelism"` // concurrent divisions in a batch
}

// HistogramConfig holds default binning for summarization.
type HistogramConfig struct {
	BinLow     int     `yaml:"bin_low"`
	BinHigh    int     `yaml:"bin_high"`
	Resolution float64 `yaml:"resolution"`
}

// EnvDir overrides where Load looks for <env>.yaml.
const EnvDir = "SPECTRADEX_CONFIG_DIR"

// Load reads config/<env>.yaml, expands ${VAR} references, applies defaults and
// validates the result. Unknown keys are rejected.
func Load(env string) (Config, error) {
	path, err := locate(env)
	if err != nil {
		return Config{}, err
	}
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	raw, err = expandEnvVars(raw)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// GetEnv returns the environment name from SPECTRADEX_ENV or ENV, "local" when
// neither is set.
func GetEnv() string {
	for _, key := range []string{"SPECTRADEX_ENV", "ENV"} {
		if env := os.Getenv(key); env != "" {
			return env
		}
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300 // clustering requests stream whole collections
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/spectradex.db"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 4
	}
	if c.Database.BusyTimeoutMs <= 0 {
		c.Database.BusyTimeoutMs = 5000
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "valkey"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Clustering.MaxIterations <= 0 {
		c.Clustering.MaxIterations = 50
	}
	if c.Clustering.Threshold <= 0 {
		c.Clustering.Threshold = 0.01
	}
	if c.Clustering.Metric == "" {
		c.Clustering.Metric = "euclidean_squared"
	}
	if c.Clustering.Cursor == "" {
		c.Clustering.Cursor = "disk"
	}
	if c.Clustering.PageSize <= 0 {
		c.Clustering.PageSize = 512
	}
	if c.Clustering.Parallelism <= 0 {
		c.Clustering.Parallelism = 4
	}
	if c.Histogram.BinLow == 0 && c.Histogram.BinHigh == 0 {
		c.Histogram.BinLow, c.Histogram.BinHigh = -300, 300
	}
	if c.Histogram.Resolution <= 0 {
		c.Histogram.Resolution = 0.01
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Cache.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("cache.driver must be \"valkey\" or \"redis\", got %q", c.Cache.Driver)
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when cache is enabled")
	}
	if c.Cache.TTLSec < 0 {
		return fmt.Errorf("cache.ttl_sec must not be negative, got %d", c.Cache.TTLSec)
	}
	switch c.Clustering.Metric {
	case "euclidean_squared", "city_block", "dot_product":
	default:
		return fmt.Errorf("clustering.metric %q is not supported", c.Clustering.Metric)
	}
	switch c.Clustering.Cursor {
	case "disk", "memory":
	default:
		return fmt.Errorf("clustering.cursor must be \"disk\" or \"memory\", got %q", c.Clustering.Cursor)
	}
	if c.Histogram.BinHigh < c.Histogram.BinLow {
		return fmt.Errorf("histogram.bin_high (%d) must not be below bin_low (%d)", c.Histogram.BinHigh, c.Histogram.BinLow)
	}
	return nil
}

// locate returns the first existing <env>.yaml among $SPECTRADEX_CONFIG_DIR,
// ./config and the config directory of the source tree.
func locate(env string) (string, error) {
	if env == "" || strings.ContainsAny(env, `/\`) {
		return "", fmt.Errorf("invalid environment name %q", env)
	}
	name := env + ".yaml"

	var dirs []string
	if dir := os.Getenv(EnvDir); dir != "" {
		dirs = append(dirs, dir)
	}
	dirs = append(dirs, "config")
	if _, src, _, ok := runtime.Caller(0); ok {
		dirs = append(dirs, filepath.Join(filepath.Dir(src), "..", "..", "config"))
	}

	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("config %s not found in %s", name, strings.Join(dirs, ", "))
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// expandEnvVars substitutes ${VAR}, ${VAR:-default} and ${VAR:?message}. The
// last form fails when VAR is unset or empty.
func expandEnvVars(data []byte) ([]byte, error) {
	var missing []string
	out := envRef.ReplaceAllFunc(data, func(match []byte) []byte {
		m := envRef.FindSubmatch(match)
		val := os.Getenv(string(m[1]))
		if val != "" {
			return []byte(val)
		}
		switch string(m[2]) {
		case ":-":
			return m[3]
		case ":?":
			missing = append(missing, fmt.Sprintf("%s: %s", m[1], m[3]))
		}
		return nil
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("required variables unset: %s", strings.Join(missing, "; "))
	}
	return out, nil
}
