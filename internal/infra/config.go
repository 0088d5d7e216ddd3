package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"tickerboard/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	DefaultStreamURL  = "wss://stream.binance.com:9443/ws"
	DefaultCatalogURL = "https://api.coingecko.com/api/v3/coins/markets"
)

// Config holds every setting of the service.
// LoadConfig fills defaults, then lets environment variables override secrets and endpoints.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Engine struct {
		InboxSize              int             `yaml:"inbox_size"`
		PollIntervalMS         int             `yaml:"poll_interval_ms"`
		DiscontinuityThreshold decimal.Decimal `yaml:"discontinuity_threshold"`
		CorrectionThreshold    decimal.Decimal `yaml:"correction_threshold"`
		AutoSeedCount          int             `yaml:"auto_seed_count"`
		Watchlist              []WatchItem     `yaml:"watchlist"`
	} `yaml:"engine"`

	API struct {
		Stream struct {
			WSURL          string   `yaml:"ws_url"`
			InitialStreams []string `yaml:"initial_streams"`
		} `yaml:"stream"`
		Catalog struct {
			URL                string `yaml:"url"`
			TopN               int    `yaml:"top_n"`
			RefreshIntervalSec int    `yaml:"refresh_interval_sec"`
		} `yaml:"catalog"`
		Gemini struct {
			APIKey            string `yaml:"api_key"`
			Model             string `yaml:"model"`
			ReportIntervalSec int    `yaml:"report_interval_sec"` // 0 disables periodic risk reports
		} `yaml:"gemini"`
	} `yaml:"api"`

	Assets struct {
		Enabled bool   `yaml:"enabled"`
		DBPath  string `yaml:"db_path"`
		IconDir string `yaml:"icon_dir"`
		IconURL string `yaml:"icon_url"` // %s is the lowercase base symbol
	} `yaml:"assets"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`

	Metrics struct {
		ReportIntervalSec int `yaml:"report_interval_sec"`
	} `yaml:"metrics"`
}

// WatchItem is one instrument tracked from startup.
// Class takes any tag domain.ParseClass understands ("CRYPTO", "US", "HK"); empty means EQUITY.
type WatchItem struct {
	Symbol string `yaml:"symbol"`
	Class  string `yaml:"class"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	return ParseConfig(data)
}

// ParseConfig decodes YAML, applies defaults and env overrides, then validates.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "tickerboard"
	}
	if c.Engine.InboxSize == 0 {
		c.Engine.InboxSize = 1024
	}
	if c.Engine.PollIntervalMS == 0 {
		c.Engine.PollIntervalMS = 2000
	}
	if c.Engine.DiscontinuityThreshold.IsZero() {
		c.Engine.DiscontinuityThreshold = decimal.RequireFromString("0.20")
	}
	if c.Engine.CorrectionThreshold.IsZero() {
		c.Engine.CorrectionThreshold = decimal.RequireFromString("0.10")
	}
	if c.Engine.AutoSeedCount == 0 {
		c.Engine.AutoSeedCount = 3
	}
	if c.Engine.Watchlist == nil {
		for _, e := range domain.DefaultEquities {
			c.Engine.Watchlist = append(c.Engine.Watchlist, WatchItem{Symbol: e.Symbol, Class: string(e.Class)})
		}
	}
	if c.API.Stream.WSURL == "" {
		c.API.Stream.WSURL = DefaultStreamURL
	}
	if c.API.Stream.InitialStreams == nil {
		c.API.Stream.InitialStreams = []string{"btcusdt@trade", "ethusdt@trade", "solusdt@trade", "bnbusdt@trade"}
	}
	if c.API.Catalog.URL == "" {
		c.API.Catalog.URL = DefaultCatalogURL
	}
	if c.API.Catalog.TopN == 0 {
		c.API.Catalog.TopN = 50
	}
	if c.API.Catalog.RefreshIntervalSec == 0 {
		c.API.Catalog.RefreshIntervalSec = 300
	}
	if c.API.Gemini.Model == "" {
		c.API.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Assets.DBPath == "" {
		c.Assets.DBPath = "data/tickerboard.db"
	}
	if c.Assets.IconDir == "" {
		c.Assets.IconDir = "data/icons"
	}
	if c.Assets.IconURL == "" {
		c.Assets.IconURL = DefaultIconURL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
	if c.Metrics.ReportIntervalSec == 0 {
		c.Metrics.ReportIntervalSec = 60
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	// Stream
	if !hasPrefix(c.API.Stream.WSURL, "ws://") && !hasPrefix(c.API.Stream.WSURL, "wss://") {
		return &domain.ConfigError{Field: "api.stream.ws_url", Err: fmt.Errorf("not a websocket URL: %q", c.API.Stream.WSURL)}
	}

	// Catalog
	if !hasPrefix(c.API.Catalog.URL, "http://") && !hasPrefix(c.API.Catalog.URL, "https://") {
		return &domain.ConfigError{Field: "api.catalog.url", Err: fmt.Errorf("not an http URL: %q", c.API.Catalog.URL)}
	}
	if c.API.Catalog.TopN < 0 || c.API.Catalog.RefreshIntervalSec < 0 {
		return &domain.ConfigError{Field: "api.catalog", Err: errors.New("top_n and refresh_interval_sec must be positive")}
	}

	if c.API.Gemini.ReportIntervalSec < 0 {
		return &domain.ConfigError{Field: "api.gemini.report_interval_sec", Err: errors.New("must not be negative")}
	}

	// Engine
	if c.Engine.InboxSize < 0 {
		return &domain.ConfigError{Field: "engine.inbox_size", Err: errors.New("must be positive")}
	}
	if c.Engine.PollIntervalMS < 0 {
		return &domain.ConfigError{Field: "engine.poll_interval_ms", Err: errors.New("must be positive")}
	}
	if c.Engine.AutoSeedCount < 0 {
		return &domain.ConfigError{Field: "engine.auto_seed_count", Err: errors.New("must not be negative")}
	}
	for i, w := range c.Engine.Watchlist {
		if domain.CanonicalSymbol(w.Symbol) == "" {
			return &domain.ConfigError{Field: fmt.Sprintf("engine.watchlist[%d].symbol", i), Err: domain.ErrInvalidSymbol}
		}
	}
	one := decimal.NewFromInt(1)
	for field, v := range map[string]decimal.Decimal{
		"engine.discontinuity_threshold": c.Engine.DiscontinuityThreshold,
		"engine.correction_threshold":    c.Engine.CorrectionThreshold,
	} {
		if !v.IsPositive() || v.GreaterThan(one) {
			return &domain.ConfigError{Field: field, Err: fmt.Errorf("must be in (0, 1], got %s", v)}
		}
	}

	return nil
}

// PollInterval is the quote simulation cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Engine.PollIntervalMS) * time.Millisecond
}

// CatalogRefreshInterval is the snapshot refresh cadence.
func (c *Config) CatalogRefreshInterval() time.Duration {
	return time.Duration(c.API.Catalog.RefreshIntervalSec) * time.Second
}

// RiskReportInterval is how often main asks the advisor for a risk report. Zero disables it.
func (c *Config) RiskReportInterval() time.Duration {
	return time.Duration(c.API.Gemini.ReportIntervalSec) * time.Second
}

// MetricsReportInterval is how often main logs a metrics snapshot.
func (c *Config) MetricsReportInterval() time.Duration {
	return time.Duration(c.Metrics.ReportIntervalSec) * time.Second
}

func hasPrefix(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), prefix)
}

// overrideWithEnv replaces settings with environment variables when present.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("TICKER_GEMINI_KEY"); key != "" {
		cfg.API.Gemini.APIKey = key
	}
	if url := os.Getenv("TICKER_STREAM_URL"); url != "" {
		cfg.API.Stream.WSURL = url
	}
	if url := os.Getenv("TICKER_CATALOG_URL"); url != "" {
		cfg.API.Catalog.URL = url
	}
	if level := os.Getenv("TICKER_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
