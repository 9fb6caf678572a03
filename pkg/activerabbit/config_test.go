package activerabbit

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_InitDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.InitDefaults())

	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, 30*time.Second, cfg.RetryMaxDelay)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 1000, cfg.MaxQueueSize)
	assert.Equal(t, 5*time.Second, cfg.FlushInterval)
	assert.Equal(t, DefaultSensitiveFields(), cfg.ScrubFields)
	assert.Equal(t, 5*time.Minute, cfg.DedupeWindow)
	assert.Equal(t, 300*time.Second, cfg.ReportDedupeWindow)

	if host, err := os.Hostname(); err == nil {
		assert.Equal(t, host, cfg.ServerName)
	}
}

func TestConfig_InitDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{
		Endpoint:           "https://collector.internal:8443",
		Environment:        "staging",
		ServerName:         "web-1",
		ConnectTimeout:     time.Second,
		MaxRetries:         -1,
		BatchSize:          2,
		ScrubFields:        []string{},
		DedupeWindow:       -1,
		ReportDedupeWindow: time.Second,
	}
	require.NoError(t, cfg.InitDefaults())

	assert.Equal(t, "https://collector.internal:8443", cfg.Endpoint)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "web-1", cfg.ServerName)
	assert.Equal(t, time.Second, cfg.ConnectTimeout)
	assert.Equal(t, -1, cfg.MaxRetries, "the no-retries sentinel must survive defaulting")
	assert.Equal(t, 2, cfg.BatchSize)
	assert.Equal(t, time.Duration(-1), cfg.DedupeWindow)
	assert.Equal(t, time.Second, cfg.ReportDedupeWindow)

	// An explicitly empty scrub list is a choice, not an omission.
	assert.NotNil(t, cfg.ScrubFields)
	assert.Empty(t, cfg.ScrubFields)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults pass", mutate: func(*Config) {}},
		{name: "bad endpoint", mutate: func(c *Config) { c.Endpoint = "not-a-url" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.ConnectTimeout = -time.Second }, wantErr: true},
		{name: "negative batch size", mutate: func(c *Config) { c.BatchSize = -1 }, wantErr: true},
		{name: "negative retries disable retrying", mutate: func(c *Config) { c.MaxRetries = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{APIKey: "ar_test"}
			require.NoError(t, cfg.InitDefaults())
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	raw := `
api_key: ar_test_key
project_id: checkout
endpoint: https://collector.internal:8443
environment: staging
release: 1.4.2
connect_timeout: 2s
flush_interval: 250ms
dedupe_window: 1m
max_retries: 5
disable_compression: true
scrub_fields:
  - password
  - session
ignore_exceptions:
  - fs.PathError
  - pattern: "(?i)timeout"
ignore_user_agents:
  - Googlebot
ignore_not_found: true
`
	path := filepath.Join(t.TempDir(), "activerabbit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ar_test_key", cfg.APIKey)
	assert.Equal(t, "checkout", cfg.ProjectID)
	assert.Equal(t, "https://collector.internal:8443", cfg.Endpoint)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "1.4.2", cfg.Release)
	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.FlushInterval)
	assert.Equal(t, time.Minute, cfg.DedupeWindow)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.True(t, cfg.DisableCompression)
	assert.Equal(t, []string{"password", "session"}, cfg.ScrubFields)
	assert.Equal(t, []string{"Googlebot"}, cfg.IgnoreUserAgents)
	assert.True(t, cfg.IgnoreNotFound)

	require.Len(t, cfg.IgnoreExceptions, 2)
	assert.True(t, cfg.IgnoreExceptions[0].Matches("fs.PathError"))
	assert.False(t, cfg.IgnoreExceptions[0].Matches("net.OpError"))
	assert.True(t, cfg.IgnoreExceptions[1].Matches("http.TimeoutError"))
	assert.False(t, cfg.IgnoreExceptions[1].Matches("fs.PathError"))
}

func TestLoadConfig_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activerabbit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connect_timeout: fast\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect_timeout")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestIgnoreRule_Matches(t *testing.T) {
	tests := []struct {
		name  string
		rule  IgnoreRule
		class string
		want  bool
	}{
		{"exact hit", IgnoreExact("fs.PathError"), "fs.PathError", true},
		{"exact miss", IgnoreExact("fs.PathError"), "net.OpError", false},
		{"pattern hit", IgnorePattern(regexp.MustCompile(`(?i)notfound`)), "store.NotFoundError", true},
		{"pattern miss", IgnorePattern(regexp.MustCompile(`(?i)notfound`)), "net.OpError", false},
		{"zero rule matches nothing", IgnoreRule{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Matches(tt.class))
		})
	}
}
