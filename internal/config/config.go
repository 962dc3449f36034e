package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vertextoedge/reliable-downloader/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. RDL_POLICY_RETRY_COUNT
const EnvPrefix = "RDL"

// Config represents the entire application configuration
type Config struct {
	Download DownloadConfig `mapstructure:"download"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Progress ProgressConfig `mapstructure:"progress"`
}

// DownloadConfig describes what to download
type DownloadConfig struct {
	URL           string `mapstructure:"url"`
	LocalPath     string `mapstructure:"local_path"`
	ReferencePath string `mapstructure:"reference_path"`
	Probe         bool   `mapstructure:"probe"`
}

// PolicyConfig contains resilience policy settings
type PolicyConfig struct {
	RetryCount      int `mapstructure:"retry_count"`
	TimeoutSeconds  int `mapstructure:"timeout_seconds"`
	BufferSizeBytes int `mapstructure:"buffer_size_bytes"`
}

// HTTPConfig contains HTTP client settings
type HTTPConfig struct {
	ResponseHeaderTimeout string `mapstructure:"response_header_timeout"`
	SkipTLSVerify         bool   `mapstructure:"skip_tls_verify"`
	UserAgent             string `mapstructure:"user_agent"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"` // optional extra output
}

// DatabaseConfig contains download journal settings
type DatabaseConfig struct {
	Path      string `mapstructure:"path"` // empty disables the journal
	Retention string `mapstructure:"retention"`
}

// ProgressConfig contains progress logging settings
type ProgressConfig struct {
	LogInterval string `mapstructure:"log_interval"`
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"url":       "download.url",
	"output":    "download.local_path",
	"reference": "download.reference_path",
}

// RegisterFlags adds the configuration flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("url", "", "remote URL to download")
	fs.String("output", "", "local destination path")
	fs.String("reference", "", "trusted local artifact with the expected size and hash")
}

// Load loads configuration from the config file (optional), then the
// environment, then flags (optional). Later sources win.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	defaults := domain.DefaultPolicyConfig()

	v.SetDefault("download.url", "")
	v.SetDefault("download.local_path", "")
	v.SetDefault("download.reference_path", "")
	v.SetDefault("download.probe", false)
	v.SetDefault("policy.retry_count", defaults.RetryCount)
	v.SetDefault("policy.timeout_seconds", defaults.TimeoutSeconds)
	v.SetDefault("policy.buffer_size_bytes", defaults.BufferSizeBytes)
	v.SetDefault("http.response_header_timeout", "30s")
	v.SetDefault("http.skip_tls_verify", false)
	v.SetDefault("http.user_agent", "reliable-downloader")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("database.path", "")
	v.SetDefault("database.retention", "720h")
	v.SetDefault("progress.log_interval", "1s")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate download target
	if err := c.Target().Validate(); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	if err := c.PolicyConfig().Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	// Validate durations
	if _, err := time.ParseDuration(c.HTTP.ResponseHeaderTimeout); err != nil {
		return fmt.Errorf("invalid http.response_header_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Database.Retention); err != nil {
		return fmt.Errorf("invalid database.retention: %w", err)
	}
	if _, err := time.ParseDuration(c.Progress.LogInterval); err != nil {
		return fmt.Errorf("invalid progress.log_interval: %w", err)
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// Target returns the configured download target
func (c *Config) Target() domain.DownloadTarget {
	return domain.DownloadTarget{
		URL:       c.Download.URL,
		LocalPath: c.Download.LocalPath,
	}
}

// PolicyConfig returns the resilience policy configuration
func (c *Config) PolicyConfig() domain.PolicyConfig {
	return domain.PolicyConfig{
		RetryCount:      c.Policy.RetryCount,
		TimeoutSeconds:  c.Policy.TimeoutSeconds,
		BufferSizeBytes: c.Policy.BufferSizeBytes,
	}
}

// GetResponseHeaderTimeout returns the response header timeout as time.Duration
func (c *HTTPConfig) GetResponseHeaderTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ResponseHeaderTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetRetention returns how long journal rows are kept
func (c *DatabaseConfig) GetRetention() time.Duration {
	d, _ := time.ParseDuration(c.Retention)
	if d == 0 {
		return 30 * 24 * time.Hour
	}
	return d
}

// GetLogInterval returns the minimum time between progress log lines
func (c *ProgressConfig) GetLogInterval() time.Duration {
	d, _ := time.ParseDuration(c.LogInterval)
	if d == 0 {
		return time.Second
	}
	return d
}
