// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MINISPIDER_SPIDER_MAX_DEPTH=3.
const EnvPrefix = "MINISPIDER"

// ErrMissingKey reports a required key absent from every configuration source.
var ErrMissingKey = errors.New("missing required config key")

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Spider  SpiderConfig  `mapstructure:"spider"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SpiderConfig governs the crawl itself.
type SpiderConfig struct {
	URLListFile     string `mapstructure:"url_list_file"`
	OutputDirectory string `mapstructure:"output_directory"`
	MaxDepth        int    `mapstructure:"max_depth"`
	// CrawlInterval is the per-worker pause in seconds after each expanded page.
	CrawlInterval int `mapstructure:"crawl_interval"`
	// CrawlTimeout bounds each fetch attempt, in seconds.
	CrawlTimeout int    `mapstructure:"crawl_timeout"`
	TargetURL    string `mapstructure:"target_url"`
	ThreadCount  int    `mapstructure:"thread_count"`
}

// HTTPConfig configures the HTTP client and its retry behavior.
type HTTPConfig struct {
	UserAgent    string `mapstructure:"user_agent"`
	MaxAttempts  int    `mapstructure:"max_attempts"`
	RetryDelayMs int    `mapstructure:"retry_delay_ms"`
}

// MetricsConfig controls the optional status listener. An empty address disables it.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load reads confName from confDir, applies environment overrides and defaults,
// and validates the result.
func Load(confDir, confName string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigFile(filepath.Join(confDir, confName))
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Registered so that an environment override is picked up by Unmarshal.
	v.SetDefault("spider.url_list_file", "")
	v.SetDefault("spider.output_directory", "./output")
	v.SetDefault("spider.max_depth", 1)
	v.SetDefault("spider.crawl_interval", 1)
	v.SetDefault("spider.crawl_timeout", 1)
	v.SetDefault("spider.target_url", ".*")
	v.SetDefault("spider.thread_count", 8)
	v.SetDefault("http.user_agent", "mini-spider/1.0")
	v.SetDefault("http.max_attempts", 2)
	v.SetDefault("http.retry_delay_ms", 100)
	v.SetDefault("metrics.listen_addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Spider.URLListFile) == "" {
		return fmt.Errorf("%w: spider.url_list_file", ErrMissingKey)
	}
	if strings.TrimSpace(c.Spider.OutputDirectory) == "" {
		return fmt.Errorf("%w: spider.output_directory", ErrMissingKey)
	}
	if c.Spider.MaxDepth < 0 {
		return fmt.Errorf("spider.max_depth must be >= 0")
	}
	if c.Spider.CrawlInterval < 0 {
		return fmt.Errorf("spider.crawl_interval must be >= 0")
	}
	if c.Spider.CrawlTimeout <= 0 {
		return fmt.Errorf("spider.crawl_timeout must be > 0")
	}
	if c.Spider.ThreadCount <= 0 {
		return fmt.Errorf("spider.thread_count must be > 0")
	}
	if _, err := regexp.Compile(c.Spider.TargetURL); err != nil {
		return fmt.Errorf("spider.target_url is not a valid pattern: %w", err)
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.HTTP.RetryDelayMs < 0 {
		return fmt.Errorf("http.retry_delay_ms must be >= 0")
	}
	return nil
}

// Interval is the per-worker pacing pause.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Spider.CrawlInterval) * time.Second
}

// Timeout bounds a single fetch attempt.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Spider.CrawlTimeout) * time.Second
}

// RetryDelay is the pause between fetch attempts.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.HTTP.RetryDelayMs) * time.Millisecond
}

// SeedFilePath resolves url_list_file against confDir unless it is absolute.
func (c Config) SeedFilePath(confDir string) string {
	if filepath.IsAbs(c.Spider.URLListFile) {
		return c.Spider.URLListFile
	}
	return filepath.Join(confDir, c.Spider.URLListFile)
}
