package goRecovery

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

const (
	defaultMinPasswordLength = 6
	defaultRequestTimeout    = 15 * time.Second
	defaultVerifyPath        = "/api/forgot-password/verify"
	defaultResetPath         = "/api/forgot-password/reset"
	defaultGeneratedLength   = 12
	maxGeneratedLength       = 128
)

// Config holds everything a Flow needs. It is plain data so hosts can fill it
// from any configuration source; the CLIs decode it with koanf using the
// mapstructure tags below.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Locale    Locale          `mapstructure:"locale"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the authentication backend.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// VerifyPath and ResetPath are joined onto BaseURL.
	VerifyPath string `mapstructure:"verify_path"`
	ResetPath  string `mapstructure:"reset_path"`
	// RequestTimeout bounds each backend call; expiry is reported as
	// KindNetworkUnavailable.
	RequestTimeout time.Duration     `mapstructure:"request_timeout"`
	UserAgent      string            `mapstructure:"user_agent"`
	Headers        map[string]string `mapstructure:"headers"`
}

/*
====================================
POLICY CONFIG
====================================
*/

// PolicyConfig holds the local pre-flight checks applied before a reset is sent.
type PolicyConfig struct {
	MinLength int `mapstructure:"min_length"`
}

// GeneratorConfig controls GeneratePassword defaults.
type GeneratorConfig struct {
	Length int `mapstructure:"length"`
}

/*
====================================
AUDIT / METRICS / LOG CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	EnableLatencyHistograms bool `mapstructure:"enable_latency_histograms"`
}

// LogConfig is consumed by the CLIs when building their zap logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfig returns a Config with every default applied. BaseURL is left
// empty and must be provided by the host.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			VerifyPath:     defaultVerifyPath,
			ResetPath:      defaultResetPath,
			RequestTimeout: defaultRequestTimeout,
			UserAgent:      "goRecovery/1",
		},
		Policy: PolicyConfig{
			MinLength: defaultMinPasswordLength,
		},
		Generator: GeneratorConfig{
			Length: defaultGeneratedLength,
		},
		Locale: LocaleEnglish,
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 64,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.API.Headers != nil {
		out.API.Headers = make(map[string]string, len(cfg.API.Headers))
		for k, v := range cfg.API.Headers {
			out.API.Headers[k] = v
		}
	}
	return out
}

// applyDefaults fills zero values left by partial configuration sources.
func (c *Config) applyDefaults() {
	def := defaultConfig()
	if c.API.VerifyPath == "" {
		c.API.VerifyPath = def.API.VerifyPath
	}
	if c.API.ResetPath == "" {
		c.API.ResetPath = def.API.ResetPath
	}
	if c.API.RequestTimeout == 0 {
		c.API.RequestTimeout = def.API.RequestTimeout
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = def.API.UserAgent
	}
	if c.Policy.MinLength == 0 {
		c.Policy.MinLength = def.Policy.MinLength
	}
	if c.Generator.Length == 0 {
		c.Generator.Length = def.Generator.Length
	}
	if c.Locale == "" {
		c.Locale = def.Locale
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = def.Audit.BufferSize
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("api.base_url must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("api.base_url scheme must be http or https")
	}
	if !strings.HasPrefix(c.API.VerifyPath, "/") || !strings.HasPrefix(c.API.ResetPath, "/") {
		return errors.New("api paths must start with /")
	}
	if c.API.RequestTimeout < 0 {
		return errors.New("api.request_timeout must not be negative")
	}
	if c.Policy.MinLength < 1 {
		return errors.New("policy.min_length must be >= 1")
	}
	if c.Generator.Length < c.Policy.MinLength || c.Generator.Length > maxGeneratedLength {
		return errors.New("generator.length must be between policy.min_length and 128")
	}
	if _, ok := messageCatalog[c.Locale]; !ok {
		return errors.New("locale must be en or fr")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 1 {
		return errors.New("audit.buffer_size must be >= 1 when audit is enabled")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.New("log.level must be one of debug, info, warn, error")
	}
	return nil
}
