package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_CacheEnabledWithoutAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing cache addrs")
	}

	cfg.Cache.Addrs = []string{"localhost:6379"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Driver = "memcached"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	expected := `cache.driver must be "valkey" or "redis", got "memcached"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_Clustering(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"metric", func(c *Config) { c.Clustering.Metric = "hamming" }},
		{"cursor", func(c *Config) { c.Clustering.Cursor = "tape" }},
		{"bins", func(c *Config) { c.Histogram.BinLow, c.Histogram.BinHigh = 10, -10 }},
		{"ttl", func(c *Config) { c.Cache.TTLSec = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 300 {
		t.Errorf("expected WriteTimeoutSec=300, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Path != "data/spectradex.db" {
		t.Errorf("expected default database path, got %q", cfg.Database.Path)
	}
	if cfg.Database.MaxOpenConns != 4 || cfg.Database.BusyTimeoutMs != 5000 {
		t.Errorf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Cache.Driver != "valkey" || cfg.Cache.ReadinessTimeout != 10 {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if !cfg.Cache.Compress() {
		t.Error("expected compression on by default")
	}
	if cfg.Clustering.MaxIterations != 50 || cfg.Clustering.Threshold != 0.01 {
		t.Errorf("unexpected clustering defaults: %+v", cfg.Clustering)
	}
	if cfg.Clustering.Metric != "euclidean_squared" || cfg.Clustering.Cursor != "disk" {
		t.Errorf("unexpected clustering defaults: %+v", cfg.Clustering)
	}
	if cfg.Histogram.BinLow != -300 || cfg.Histogram.BinHigh != 300 || cfg.Histogram.Resolution != 0.01 {
		t.Errorf("unexpected histogram defaults: %+v", cfg.Histogram)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	off := false
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Cache:      CacheConfig{Driver: "redis", Compression: &off},
		Clustering: ClusteringConfig{MaxIterations: 7, Metric: "city_block", Cursor: "memory"},
		Histogram:  HistogramConfig{BinLow: 0, BinHigh: 100, Resolution: 0.5},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Cache.Driver != "redis" || cfg.Cache.Compress() {
		t.Errorf("cache overridden: %+v", cfg.Cache)
	}
	if cfg.Clustering.MaxIterations != 7 || cfg.Clustering.Metric != "city_block" || cfg.Clustering.Cursor != "memory" {
		t.Errorf("clustering overridden: %+v", cfg.Clustering)
	}
	if cfg.Histogram.BinLow != 0 || cfg.Histogram.BinHigh != 100 || cfg.Histogram.Resolution != 0.5 {
		t.Errorf("histogram overridden: %+v", cfg.Histogram)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SPECTRADEX_TEST_PORT", "9090")
	t.Setenv("SPECTRADEX_EMPTY", "")

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"set", "port: ${SPECTRADEX_TEST_PORT}", "port: 9090", false},
		{"default", "path: ${SPECTRADEX_UNSET_VAR:-data/x.db}", "path: data/x.db", false},
		{"empty uses default", "path: ${SPECTRADEX_EMPTY:-fallback}", "path: fallback", false},
		{"unset without default", "key: ${SPECTRADEX_UNSET_VAR}", "key: ", false},
		{"required present", "port: ${SPECTRADEX_TEST_PORT:?port needed}", "port: 9090", false},
		{"required missing", "key: ${SPECTRADEX_UNSET_VAR:?key needed}", "", true},
		{"not a reference", "cost: $5 {x}", "cost: $5 {x}", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars([]byte(tt.in))
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "key needed") {
					t.Fatalf("expected required-variable error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func writeConfig(t *testing.T, dir, env, body string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, env+".yaml"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, filepath.Join(dir, "config"), "unit", "http:\n  port: 8181\nclustering:\n  max_iterations: 12\n")
	t.Chdir(dir)

	cfg, err := Load("unit")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 8181 || cfg.Clustering.MaxIterations != 12 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Clustering.Threshold != 0.01 {
		t.Errorf("defaults not applied: %+v", cfg.Clustering)
	}
}

func TestLoad_EnvDirWins(t *testing.T) {
	work := t.TempDir()
	writeConfig(t, filepath.Join(work, "config"), "unit", "http:\n  port: 8181\n")
	override := filepath.Join(t.TempDir(), "etc")
	writeConfig(t, override, "unit", "http:\n  port: 9191\n")
	t.Chdir(work)
	t.Setenv(EnvDir, override)

	cfg, err := Load("unit")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9191 {
		t.Errorf("port = %d, want 9191", cfg.HTTP.Port)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  string
		body string
	}{
		{"missing file", "absent", ""},
		{"path traversal", "../unit", ""},
		{"unknown key", "unit", "http:\n  port: 8181\n  prot: 1\n"},
		{"required variable", "unit", "http:\n  port: ${SPECTRADEX_UNSET_PORT:?port}\n"},
		{"invalid", "unit", "http:\n  port: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.body != "" {
				writeConfig(t, dir, tt.env, tt.body)
			}
			t.Chdir(t.TempDir())
			t.Setenv(EnvDir, dir)

			if _, err := Load(tt.env); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SPECTRADEX_ENV", "")
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("GetEnv() = %q, want local", got)
	}
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("GetEnv() = %q, want prod", got)
	}
	t.Setenv("SPECTRADEX_ENV", "test")
	if got := GetEnv(); got != "test" {
		t.Errorf("GetEnv() = %q, want test", got)
	}
}
