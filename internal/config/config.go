// Package config loads application configuration from config.yaml and the
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/realisrare-223/leadparser/internal/scoring"
)

// Config holds the full application configuration.
type Config struct {
	Location        LocationConfig    `yaml:"location" mapstructure:"location"`
	Niches          []string          `yaml:"niches" mapstructure:"niches"`
	HighValueNiches []string          `yaml:"high_value_niches" mapstructure:"high_value_niches"`
	Database        DatabaseConfig    `yaml:"database" mapstructure:"database"`
	Scoring         scoring.Weights   `yaml:"scoring" mapstructure:"scoring"`
	Filters         FiltersConfig     `yaml:"filters" mapstructure:"filters"`
	Enrichment      EnrichmentConfig  `yaml:"enrichment" mapstructure:"enrichment"`
	Scraping        ScrapingConfig    `yaml:"scraping" mapstructure:"scraping"`
	PitchTemplates  map[string]string `yaml:"pitch_templates" mapstructure:"pitch_templates"`
	Export          ExportConfig      `yaml:"export" mapstructure:"export"`
	Server          ServerConfig      `yaml:"server" mapstructure:"server"`
	Log             LogConfig         `yaml:"log" mapstructure:"log"`
}

// LocationConfig is the locality every search targets.
type LocationConfig struct {
	City  string `yaml:"city" mapstructure:"city"`
	State string `yaml:"state" mapstructure:"state"`
}

// Location renders the search locality as "City, ST".
func (l LocationConfig) Location() string {
	return l.City + ", " + l.State
}

// DatabaseConfig configures the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// FiltersConfig holds the post-scoring lead filters. Zero max values mean
// unbounded.
type FiltersConfig struct {
	MinReviews         int     `yaml:"min_reviews" mapstructure:"min_reviews"`
	MaxReviews         int     `yaml:"max_reviews" mapstructure:"max_reviews"`
	MinRating          float64 `yaml:"min_rating" mapstructure:"min_rating"`
	MaxRating          float64 `yaml:"max_rating" mapstructure:"max_rating"`
	ExcludeWithWebsite bool    `yaml:"exclude_with_website" mapstructure:"exclude_with_website"`
	MinLeadScore       int     `yaml:"min_lead_score" mapstructure:"min_lead_score"`
}

// EnrichmentConfig configures the phone and social lookup waterfall.
type EnrichmentConfig struct {
	Sources       []EnrichSource `yaml:"sources" mapstructure:"sources"`
	SearchBaseURL string         `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// EnrichSource is one directory site in the phone lookup waterfall, tried
// in list order.
type EnrichSource struct {
	Name    string `yaml:"name" mapstructure:"name"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
}

// ScrapingConfig paces outbound requests and points at the raw record
// input file.
type ScrapingConfig struct {
	DelayMinMS int    `yaml:"delay_min_ms" mapstructure:"delay_min_ms"`
	DelayMaxMS int    `yaml:"delay_max_ms" mapstructure:"delay_max_ms"`
	Retries    int    `yaml:"retries" mapstructure:"retries"`
	InputPath  string `yaml:"input_path" mapstructure:"input_path"`
}

// ExportConfig configures spreadsheet output.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultSources returns the stock phone lookup waterfall, used when the
// config file does not list enrichment sources.
func DefaultSources() []EnrichSource {
	return []EnrichSource{
		{Name: "yelp", BaseURL: "https://www.yelp.com", Enabled: true},
		{Name: "yellow_pages", BaseURL: "https://www.yellowpages.com", Enabled: true},
		{Name: "bbb", BaseURL: "https://www.bbb.org", Enabled: true},
		{Name: "411", BaseURL: "https://www.411.com", Enabled: true},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADPARSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("location.city", "Austin")
	v.SetDefault("location.state", "TX")
	v.SetDefault("database.path", "data/leads.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("export.output_dir", "exports")
	v.SetDefault("scraping.delay_min_ms", 2000)
	v.SetDefault("scraping.delay_max_ms", 5000)
	v.SetDefault("scraping.retries", 3)
	v.SetDefault("scraping.input_path", "data/raw_records.csv")
	v.SetDefault("enrichment.search_base_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("filters.min_lead_score", 0)
	v.SetDefault("scoring.no_reviews_score", 10)
	v.SetDefault("scoring.very_few_reviews_score", 8)
	v.SetDefault("scoring.few_reviews_score", 5)
	v.SetDefault("scoring.some_reviews_score", 3)
	v.SetDefault("scoring.many_reviews_score", 1)
	v.SetDefault("scoring.low_rating_bonus", 9)
	v.SetDefault("scoring.medium_rating_bonus", 4)
	v.SetDefault("scoring.high_value_niche_bonus", 7)
	v.SetDefault("scoring.complete_contact_bonus", 2)
	v.SetDefault("scoring.no_website_bonus", 3)
	v.SetDefault("scoring.has_facebook_bonus", 1)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if len(cfg.Enrichment.Sources) == 0 {
		cfg.Enrichment.Sources = DefaultSources()
	}

	return &cfg, nil
}

// Snapshot serializes the effective configuration for the session audit
// trail. Pitch templates are elided to keep session rows small.
func (c *Config) Snapshot() string {
	snap := *c
	snap.PitchTemplates = nil
	data, err := yaml.Marshal(&snap)
	if err != nil {
		zap.L().Warn("config snapshot failed", zap.Error(err))
		return ""
	}
	return string(data)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
