// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Selection SelectionConfig `mapstructure:"selection"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Sources   []SourceConfig  `mapstructure:"sources"`
}

// SourceConfig declares one content source in the config file. It seeds
// the in-memory registry; with a database provider the sources table is
// authoritative and this list is ignored.
type SourceConfig struct {
	Name          string `mapstructure:"name"`
	URL           string `mapstructure:"url"`
	Category      string `mapstructure:"category"`
	FeedURL       string `mapstructure:"feed_url"`
	HasFeed       bool   `mapstructure:"has_feed"`
	MaxCrawlPages int    `mapstructure:"max_crawl_pages"`
	Disabled      bool   `mapstructure:"disabled"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DiscoveryConfig governs source fetching behavior.
type DiscoveryConfig struct {
	UseFeeds           bool     `mapstructure:"use_feeds"`
	FeedFreshnessDays  int      `mapstructure:"feed_freshness_days"`
	FallbackToCrawl    bool     `mapstructure:"fallback_to_crawl"`
	MaxArticlesPerFeed int      `mapstructure:"max_articles_per_feed"`
	MaxCrawlPages      int      `mapstructure:"max_crawl_pages"`
	Dedup              bool     `mapstructure:"dedup"`
	UserAgent          string   `mapstructure:"user_agent"`
	MinContentLength   int      `mapstructure:"min_content_length"`
	MaxListingLinks    int      `mapstructure:"max_listing_links"`
	ShortBodyLength    int      `mapstructure:"short_body_length"`
	MinTextBlocks      int      `mapstructure:"min_text_blocks"`
	TextBlockMinLength int      `mapstructure:"text_block_min_length"`
	MonthlyCostCeiling int      `mapstructure:"monthly_cost_ceiling"`
	TrackCostUsage     bool     `mapstructure:"track_cost_usage"`
	RelevanceKeywords  []string `mapstructure:"relevance_keywords"`
}

// SelectionConfig governs scoring thresholds and selection policy.
type SelectionConfig struct {
	MinRelevance   float64 `mapstructure:"min_relevance"`
	MaxItemsPerRun int     `mapstructure:"max_items_per_run"`
	DailyLimit     int     `mapstructure:"daily_limit"`
	Diversity      bool    `mapstructure:"diversity"`
	Tiered         bool    `mapstructure:"tiered"`
	PoolLimit      int     `mapstructure:"pool_limit"`
}

// WorkflowConfig identifies the external workflow platform.
type WorkflowConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	ServiceKey string `mapstructure:"service_key"`
	WorkflowID string `mapstructure:"workflow_id"`
}

// HTTPConfig configures outbound HTTP client retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// DBConfig controls access to the relational database. An empty provider
// selects the in-memory stores.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for run-summary notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// SchedulerConfig controls the periodic pipeline trigger.
type SchedulerConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalMinutes int  `mapstructure:"interval_minutes"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONTENTPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("discovery.use_feeds", true)
	v.SetDefault("discovery.feed_freshness_days", 7)
	v.SetDefault("discovery.fallback_to_crawl", true)
	v.SetDefault("discovery.max_articles_per_feed", 3)
	v.SetDefault("discovery.max_crawl_pages", 3)
	v.SetDefault("discovery.dedup", true)
	v.SetDefault("discovery.user_agent", "contentpipe-bot/0.1")
	v.SetDefault("discovery.min_content_length", 500)
	v.SetDefault("discovery.max_listing_links", 20)
	v.SetDefault("discovery.short_body_length", 2000)
	v.SetDefault("discovery.min_text_blocks", 3)
	v.SetDefault("discovery.text_block_min_length", 50)
	v.SetDefault("discovery.monthly_cost_ceiling", 3000)
	v.SetDefault("discovery.track_cost_usage", true)
	v.SetDefault("selection.min_relevance", 0.5)
	v.SetDefault("selection.max_items_per_run", 15)
	v.SetDefault("selection.daily_limit", 30)
	v.SetDefault("selection.diversity", true)
	v.SetDefault("selection.tiered", true)
	v.SetDefault("selection.pool_limit", 50)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 5000)
	v.SetDefault("db.provider", "memory")
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval_minutes", 60)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. Only missing
// credentials and impossible limits are fatal; everything else has defaults.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Workflow.WorkflowID == "" {
		return fmt.Errorf("workflow.workflow_id is required")
	}
	if c.Workflow.ServiceKey == "" {
		return fmt.Errorf("workflow.service_key is required")
	}
	if c.Selection.DailyLimit <= 0 {
		return fmt.Errorf("selection.daily_limit must be > 0")
	}
	if c.Selection.MinRelevance < 0 || c.Selection.MinRelevance > 1 {
		return fmt.Errorf("selection.min_relevance must be within [0,1]")
	}
	if c.DB.Provider == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required when db.provider is postgres")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name are required when pubsub is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	for i, src := range c.Sources {
		if src.Name == "" || src.URL == "" {
			return fmt.Errorf("sources[%d]: name and url are required", i)
		}
		if src.HasFeed && src.FeedURL == "" {
			return fmt.Errorf("sources[%d]: feed_url is required when has_feed is set", i)
		}
	}
	return nil
}

// HTTPTimeout converts the HTTP timeout config into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffInitial returns the initial retry backoff delay.
func (c Config) BackoffInitial() time.Duration {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the retry backoff ceiling.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}

// SchedulerInterval returns the periodic trigger interval.
func (c Config) SchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalMinutes) * time.Minute
}
