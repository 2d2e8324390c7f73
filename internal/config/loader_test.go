package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
)

const validConfigYAML = `
server:
  port: 9090
log:
  level: debug
  format: console
pubchem:
  base_url: "http://pubchem.local/rest"
uniprot:
  base_url: "http://uniprot.local"
resolver:
  debounce: 150ms
  max_suggestions: 4
cache:
  backend: redis
  ttl: 10m
redis:
  addr: "redis:6379"
analysis:
  scorer: http
  endpoint: "http://scorer.local/predict"
kafka:
  enabled: true
  brokers: ["kafka:9092"]
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, logging.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "http://pubchem.local/rest", cfg.PubChem.BaseURL)
	assert.Equal(t, 150*time.Millisecond, cfg.Resolver.Debounce)
	assert.Equal(t, 4, cfg.Resolver.MaxSuggestions)
	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, ScorerHTTP, cfg.Analysis.Scorer)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)

	// Unset fields receive defaults.
	assert.Equal(t, DefaultRequestTimeout, cfg.Resolver.RequestTimeout)
	assert.Equal(t, DefaultStubDelay, cfg.Analysis.StubDelay)
	assert.Equal(t, DefaultKafkaTopic, cfg.Kafka.Topic)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidConfig(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "cache:\n  backend: memcached\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.backend")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("DTISCOPE_RESOLVER_DEBOUNCE", "500ms")
	t.Setenv("DTISCOPE_SERVER_PORT", "7070")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.Resolver.Debounce)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadFromEnv_DefaultsOnly(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultDebounce, cfg.Resolver.Debounce)
	assert.Equal(t, DefaultMaxSuggestions, cfg.Resolver.MaxSuggestions)
	assert.Equal(t, DefaultPubChemBaseURL, cfg.PubChem.BaseURL)
	assert.Equal(t, DefaultUniProtBaseURL, cfg.UniProt.BaseURL)
	assert.Equal(t, ScorerStub, cfg.Analysis.Scorer)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("DTISCOPE_CACHE_BACKEND", "none")
	t.Setenv("DTISCOPE_ANALYSIS_STUB_DELAY", "10ms")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, CacheBackendNone, cfg.Cache.Backend)
	assert.Equal(t, 10*time.Millisecond, cfg.Analysis.StubDelay)
}

func TestConfigKeys_IncludesNestedLeaves(t *testing.T) {
	keys := configKeys(reflect.TypeOf(Config{}), "")
	assert.Contains(t, keys, "resolver.debounce")
	assert.Contains(t, keys, "log.level")
	assert.Contains(t, keys, "kafka.brokers")
	assert.NotContains(t, keys, "resolver")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad base url", func(c *Config) { c.UniProt.BaseURL = "::" }, "uniprot.base_url"},
		{"http scorer without endpoint", func(c *Config) { c.Analysis.Scorer = ScorerHTTP }, "analysis.endpoint"},
		{"unknown scorer", func(c *Config) { c.Analysis.Scorer = "gnn" }, "analysis.scorer"},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }, "kafka.brokers"},
		{"negative debounce", func(c *Config) { c.Resolver.Debounce = -time.Second }, "resolver.debounce"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefault()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	assert.NoError(t, NewDefault().Validate())
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{Resolver: ResolverConfig{Debounce: time.Second}}
	ApplyDefaults(cfg)
	assert.Equal(t, time.Second, cfg.Resolver.Debounce)
	assert.Equal(t, DefaultMaxSuggestions, cfg.Resolver.MaxSuggestions)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)

	ApplyDefaults(nil)
}

func TestServerConfig_Addr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", ServerConfig{Host: "127.0.0.1", Port: 8080}.Addr())
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yaml")) })
}

//Personal.AI order the ending
