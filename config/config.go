package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Scraper    ScraperConfig    `yaml:"scraper"`
	Query      QueryConfig      `yaml:"query"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// ScraperConfig holds everything the scrape pipeline needs: the source page,
// the cadence, the browser mode and the per-step timeouts.
type ScraperConfig struct {
	Enabled         bool          `yaml:"enabled"`
	SourceURL       string        `yaml:"source_url"`
	IntervalMinutes int           `yaml:"interval_minutes"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
	Headless        *bool         `yaml:"headless"`
	ChromeBin       string        `yaml:"chrome_bin"`

	NavigationTimeoutSeconds int `yaml:"navigation_timeout_seconds"`
	SelectorTimeoutSeconds   int `yaml:"selector_timeout_seconds"`
	InterceptQuietMs         int `yaml:"intercept_quiet_ms"`
	InterceptMaxSeconds      int `yaml:"intercept_max_seconds"`
	ScrollSettleMs           int `yaml:"scroll_settle_ms"`
	MaxScrollAttempts        int `yaml:"max_scroll_attempts"`
}

// IsHeadless reports the effective browser mode (headless unless disabled).
func (s *ScraperConfig) IsHeadless() bool {
	return s.Headless == nil || *s.Headless
}

// NavigationTimeout returns the page navigation timeout as a duration.
func (s *ScraperConfig) NavigationTimeout() time.Duration {
	return time.Duration(s.NavigationTimeoutSeconds) * time.Second
}

// SelectorTimeout returns the selector-wait timeout as a duration.
func (s *ScraperConfig) SelectorTimeout() time.Duration {
	return time.Duration(s.SelectorTimeoutSeconds) * time.Second
}

// InterceptQuiet returns the quiet period used to debounce intercepted responses.
func (s *ScraperConfig) InterceptQuiet() time.Duration {
	return time.Duration(s.InterceptQuietMs) * time.Millisecond
}

// InterceptMax returns the hard cap on the response-interception window.
func (s *ScraperConfig) InterceptMax() time.Duration {
	return time.Duration(s.InterceptMaxSeconds) * time.Second
}

// ScrollSettle returns the pause between scroll probes.
func (s *ScraperConfig) ScrollSettle() time.Duration {
	return time.Duration(s.ScrollSettleMs) * time.Millisecond
}

// AreaBounds is a rectangular search area. Static configuration, never
// mutated at runtime.
type AreaBounds struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLon float64 `yaml:"min_lon"`
	MaxLon float64 `yaml:"max_lon"`
}

// QueryConfig holds the geospatial query defaults and the named areas.
type QueryConfig struct {
	DefaultRadiusMeters float64               `yaml:"default_radius_meters"`
	MaxRadiusMeters     float64               `yaml:"max_radius_meters"`
	Areas               map[string]AreaBounds `yaml:"areas"`
}

// DatabaseConfig holds the database connection configuration. An empty DSN
// disables persistence entirely.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Scraper.IntervalMinutes <= 0 {
		cfg.Scraper.IntervalMinutes = 5
	}
	cfg.Scraper.Interval = time.Duration(cfg.Scraper.IntervalMinutes) * time.Minute

	// Cache TTL tracks the scrape cadence unless configured separately.
	if cfg.Scraper.CacheTTLSeconds <= 0 {
		cfg.Scraper.CacheTTL = cfg.Scraper.Interval
	} else {
		cfg.Scraper.CacheTTL = time.Duration(cfg.Scraper.CacheTTLSeconds) * time.Second
	}

	if cfg.Scraper.NavigationTimeoutSeconds <= 0 {
		cfg.Scraper.NavigationTimeoutSeconds = 30
	}
	if cfg.Scraper.SelectorTimeoutSeconds <= 0 {
		cfg.Scraper.SelectorTimeoutSeconds = 10
	}
	if cfg.Scraper.InterceptQuietMs <= 0 {
		cfg.Scraper.InterceptQuietMs = 2000
	}
	if cfg.Scraper.InterceptMaxSeconds <= 0 {
		cfg.Scraper.InterceptMaxSeconds = 15
	}
	if cfg.Scraper.ScrollSettleMs <= 0 {
		cfg.Scraper.ScrollSettleMs = 400
	}
	if cfg.Scraper.MaxScrollAttempts <= 0 {
		cfg.Scraper.MaxScrollAttempts = 12
	}

	if cfg.Query.DefaultRadiusMeters <= 0 {
		cfg.Query.DefaultRadiusMeters = 1000
	}
	if cfg.Query.MaxRadiusMeters <= 0 {
		cfg.Query.MaxRadiusMeters = 5000
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
