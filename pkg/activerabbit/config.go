package activerabbit

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Version is reported to the collector in the User-Agent header and the
// connection test payload.
const Version = "0.3.0"

// DefaultEndpoint is the hosted collector. Self-hosted deployments override
// it via Config.Endpoint.
const DefaultEndpoint = "https://api.activerabbit.ai"

// ErrNotConfigured is returned by operations that need a working transport
// when the client is disabled or missing credentials.
var ErrNotConfigured = errors.New("activerabbit: client not configured")

// ExceptionTransformFunc inspects or rewrites an exception record before it
// is queued for delivery. Returning nil vetoes the record.
type ExceptionTransformFunc func(*ExceptionRecord) *ExceptionRecord

// EventTransformFunc is the event counterpart of ExceptionTransformFunc.
type EventTransformFunc func(*EventRecord) *EventRecord

// Config carries everything the client needs. It is read by every component
// and treated as immutable once the client is constructed; build a new
// client to reconfigure.
//
// The zero value plus an APIKey is a working production setup: defaults are
// filled in by InitDefaults, and boolean knobs are phrased so that false is
// the recommended setting.
type Config struct {
	// APIKey authenticates against the collector. Tracking calls are
	// silent no-ops while it is empty.
	APIKey string `yaml:"api_key"`

	// ProjectID routes records to a project when one key serves several.
	ProjectID string `yaml:"project_id"`

	// Endpoint is the collector base URL. Defaults to DefaultEndpoint.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`

	// Disabled turns the whole client into a no-op regardless of
	// credentials. Useful for development and test environments.
	Disabled bool `yaml:"disabled"`

	// Deployment metadata stamped onto every record.
	Environment string `yaml:"environment"`
	Release     string `yaml:"release"`
	ServerName  string `yaml:"server_name"`

	// Transport tuning. ConnectTimeout bounds dialing, ReadTimeout the
	// whole request. MaxRetries of zero selects the default of 3 retries
	// after the initial attempt; a negative value disables retries, so
	// every request gets exactly one attempt.
	ConnectTimeout     time.Duration `yaml:"connect_timeout" validate:"gte=0"`
	ReadTimeout        time.Duration `yaml:"read_timeout" validate:"gte=0"`
	MaxRetries         int           `yaml:"max_retries"`
	RetryBaseDelay     time.Duration `yaml:"retry_base_delay" validate:"gte=0"`
	RetryMaxDelay      time.Duration `yaml:"retry_max_delay" validate:"gte=0"`
	DisableCompression bool          `yaml:"disable_compression"`

	// Queue shape. BatchSize triggers a synchronous flush when the buffer
	// reaches it; MaxQueueSize is the hard bound beyond which new records
	// are dropped; FlushInterval drives the background timer.
	BatchSize     int           `yaml:"batch_size" validate:"gte=0"`
	MaxQueueSize  int           `yaml:"max_queue_size" validate:"gte=0"`
	FlushInterval time.Duration `yaml:"flush_interval" validate:"gte=0"`

	// Scrubbing. ScrubFields defaults to DefaultSensitiveFields when nil;
	// an explicitly empty list disables key-based redaction but keeps the
	// pattern passes.
	DisableScrubbing bool     `yaml:"disable_scrubbing"`
	ScrubFields      []string `yaml:"scrub_fields"`

	// Ignore policy for exceptions.
	IgnoreExceptions []IgnoreRule `yaml:"ignore_exceptions"`
	IgnoreUserAgents []string     `yaml:"ignore_user_agents"`
	IgnoreNotFound   bool         `yaml:"ignore_not_found"`

	// Deduplication windows. DedupeWindow suppresses repeated tracker
	// calls for the same signature; ReportDedupeWindow is the independent
	// window applied at the reporting layer. Zero selects the default for
	// each; a negative value disables that window.
	DedupeWindow       time.Duration `yaml:"dedupe_window"`
	ReportDedupeWindow time.Duration `yaml:"report_dedupe_window"`

	// Before-send hooks, code-only. Run after enrichment and scrubbing;
	// returning nil drops the record.
	BeforeSendException ExceptionTransformFunc `yaml:"-"`
	BeforeSendEvent     EventTransformFunc     `yaml:"-"`
}

// InitDefaults fills zero values with production defaults. It is called by
// New; callers only need it when inspecting an incomplete Config directly.
func (c *Config) InitDefaults() error {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.ServerName == "" {
		host, err := os.Hostname()
		if err == nil {
			c.ServerName = host
		}
	}

	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = time.Second
	}
	if c.RetryMaxDelay == 0 {
		c.RetryMaxDelay = 30 * time.Second
	}

	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.MaxQueueSize == 0 {
		c.MaxQueueSize = 1000
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = 5 * time.Second
	}

	if c.ScrubFields == nil {
		c.ScrubFields = DefaultSensitiveFields()
	}

	if c.DedupeWindow == 0 {
		c.DedupeWindow = 5 * time.Minute
	}
	if c.ReportDedupeWindow == 0 {
		c.ReportDedupeWindow = 300 * time.Second
	}

	return nil
}

var configValidator = validator.New()

// Validate checks field constraints after defaults are applied.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("activerabbit: invalid config: %w", err)
	}
	return nil
}

// ready reports whether the client has what it needs to perform I/O.
func (c *Config) ready() bool {
	return !c.Disabled && c.APIKey != "" && c.Endpoint != ""
}

// LoadConfig reads a YAML config file. Defaults are not applied; pass the
// result to New, which applies them.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("activerabbit: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("activerabbit: parse config: %w", err)
	}
	return cfg, nil
}

// UnmarshalYAML accepts human-readable durations ("5s", "2m") for the
// time.Duration fields, which plain YAML decoding into int64 cannot.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		APIKey             string       `yaml:"api_key"`
		ProjectID          string       `yaml:"project_id"`
		Endpoint           string       `yaml:"endpoint"`
		Disabled           bool         `yaml:"disabled"`
		Environment        string       `yaml:"environment"`
		Release            string       `yaml:"release"`
		ServerName         string       `yaml:"server_name"`
		ConnectTimeout     string       `yaml:"connect_timeout"`
		ReadTimeout        string       `yaml:"read_timeout"`
		MaxRetries         int          `yaml:"max_retries"`
		RetryBaseDelay     string       `yaml:"retry_base_delay"`
		RetryMaxDelay      string       `yaml:"retry_max_delay"`
		DisableCompression bool         `yaml:"disable_compression"`
		BatchSize          int          `yaml:"batch_size"`
		MaxQueueSize       int          `yaml:"max_queue_size"`
		FlushInterval      string       `yaml:"flush_interval"`
		DisableScrubbing   bool         `yaml:"disable_scrubbing"`
		ScrubFields        []string     `yaml:"scrub_fields"`
		IgnoreExceptions   []IgnoreRule `yaml:"ignore_exceptions"`
		IgnoreUserAgents   []string     `yaml:"ignore_user_agents"`
		IgnoreNotFound     bool         `yaml:"ignore_not_found"`
		DedupeWindow       string       `yaml:"dedupe_window"`
		ReportDedupeWindow string       `yaml:"report_dedupe_window"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	durations := []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &c.ConnectTimeout},
		{"read_timeout", raw.ReadTimeout, &c.ReadTimeout},
		{"retry_base_delay", raw.RetryBaseDelay, &c.RetryBaseDelay},
		{"retry_max_delay", raw.RetryMaxDelay, &c.RetryMaxDelay},
		{"flush_interval", raw.FlushInterval, &c.FlushInterval},
		{"dedupe_window", raw.DedupeWindow, &c.DedupeWindow},
		{"report_dedupe_window", raw.ReportDedupeWindow, &c.ReportDedupeWindow},
	}
	for _, d := range durations {
		if d.src == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.src)
		if err != nil {
			return fmt.Errorf("activerabbit: %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	c.APIKey = raw.APIKey
	c.ProjectID = raw.ProjectID
	c.Endpoint = raw.Endpoint
	c.Disabled = raw.Disabled
	c.Environment = raw.Environment
	c.Release = raw.Release
	c.ServerName = raw.ServerName
	c.MaxRetries = raw.MaxRetries
	c.DisableCompression = raw.DisableCompression
	c.BatchSize = raw.BatchSize
	c.MaxQueueSize = raw.MaxQueueSize
	c.DisableScrubbing = raw.DisableScrubbing
	c.ScrubFields = raw.ScrubFields
	c.IgnoreExceptions = raw.IgnoreExceptions
	c.IgnoreUserAgents = raw.IgnoreUserAgents
	c.IgnoreNotFound = raw.IgnoreNotFound
	return nil
}

// IgnoreRule matches exception class names either exactly or against a
// regular expression. Construct with IgnoreExact or IgnorePattern.
type IgnoreRule struct {
	exact   string
	pattern *regexp.Regexp
}

// IgnoreExact ignores exceptions whose class name equals class.
func IgnoreExact(class string) IgnoreRule {
	return IgnoreRule{exact: class}
}

// IgnorePattern ignores exceptions whose class name matches re.
func IgnorePattern(re *regexp.Regexp) IgnoreRule {
	return IgnoreRule{pattern: re}
}

// Matches reports whether the rule applies to the given class name.
func (r IgnoreRule) Matches(class string) bool {
	if r.pattern != nil {
		return r.pattern.MatchString(class)
	}
	return r.exact != "" && r.exact == class
}

// UnmarshalYAML accepts either a plain string (exact match) or a mapping
// with an "exact" or "pattern" key.
func (r *IgnoreRule) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*r = IgnoreExact(value.Value)
		return nil
	case yaml.MappingNode:
		var raw struct {
			Exact   string `yaml:"exact"`
			Pattern string `yaml:"pattern"`
		}
		if err := value.Decode(&raw); err != nil {
			return err
		}
		if raw.Pattern != "" {
			re, err := regexp.Compile(raw.Pattern)
			if err != nil {
				return fmt.Errorf("activerabbit: ignore pattern %q: %w", raw.Pattern, err)
			}
			*r = IgnorePattern(re)
			return nil
		}
		*r = IgnoreExact(raw.Exact)
		return nil
	default:
		return fmt.Errorf("activerabbit: ignore rule must be a string or mapping, got %v", value.Kind)
	}
}
