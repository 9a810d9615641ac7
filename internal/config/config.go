package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Places    PlacesConfig    `yaml:"places" mapstructure:"places"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Geo       GeoConfig       `yaml:"geo" mapstructure:"geo"`
	MLS       MLSConfig       `yaml:"mls" mapstructure:"mls"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
}

// PlacesConfig holds the places/geocoding provider settings.
type PlacesConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	BurstSize    int     `yaml:"burst_size" mapstructure:"burst_size"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ExtractConfig configures document field extraction.
type ExtractConfig struct {
	QualityThreshold       float64 `yaml:"quality_threshold" mapstructure:"quality_threshold"`
	MaxConcurrentDocuments int     `yaml:"max_concurrent_documents" mapstructure:"max_concurrent_documents"`
	DefaultConfidence      float64 `yaml:"default_confidence" mapstructure:"default_confidence"`
}

// EnrichConfig configures image enrichment.
type EnrichConfig struct {
	MaxConcurrentImages int `yaml:"max_concurrent_images" mapstructure:"max_concurrent_images"`
}

// GeoConfig configures geo intelligence lookups.
type GeoConfig struct {
	CacheTTLDays  int     `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
	POIRadiusM    float64 `yaml:"poi_radius_m" mapstructure:"poi_radius_m"`
	WaterRadiusM  float64 `yaml:"water_radius_m" mapstructure:"water_radius_m"`
	WaterAdjacentM float64 `yaml:"water_adjacent_m" mapstructure:"water_adjacent_m"`
}

// MLSConfig configures MLS field mapping.
type MLSConfig struct {
	SchemaDir        string  `yaml:"schema_dir" mapstructure:"schema_dir"`
	DefaultSystem    string  `yaml:"default_system" mapstructure:"default_system"`
	EnumAcceptScore  float64 `yaml:"enum_accept_score" mapstructure:"enum_accept_score"`
	EnumWarnScore    float64 `yaml:"enum_warn_score" mapstructure:"enum_warn_score"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LISTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("places.base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("places.rate_per_sec", 10)
	v.SetDefault("places.burst_size", 5)
	v.SetDefault("places.timeout_secs", 15)
	v.SetDefault("extract.quality_threshold", 0.5)
	v.SetDefault("extract.max_concurrent_documents", 5)
	v.SetDefault("extract.default_confidence", 0.5)
	v.SetDefault("enrich.max_concurrent_images", 5)
	v.SetDefault("geo.cache_ttl_days", 30)
	v.SetDefault("geo.poi_radius_m", 483)
	v.SetDefault("geo.water_radius_m", 500)
	v.SetDefault("geo.water_adjacent_m", 100)
	v.SetDefault("mls.schema_dir", "schemas")
	v.SetDefault("mls.default_system", "unlock_mls")
	v.SetDefault("mls.enum_accept_score", 0.6)
	v.SetDefault("mls.enum_warn_score", 0.8)

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

	return &cfg, nil
}

// Validate checks that required settings are present for the given mode.
// Mode "core" covers extraction and mapping commands; "serve" additionally
// checks the server settings; "geo" requires the places credentials.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "core":
		check(c.Store.DatabaseURL != "", "store.database_url is required")
		check(c.Anthropic.Key != "", "anthropic.key is required")
	case "geo":
		check(c.Store.DatabaseURL != "", "store.database_url is required")
		check(c.Places.Key != "", "places.key is required")
	case "serve":
		check(c.Store.DatabaseURL != "", "store.database_url is required")
		check(c.Anthropic.Key != "", "anthropic.key is required")
		check(c.Server.Port > 0, "server.port must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	check(c.Extract.QualityThreshold >= 0 && c.Extract.QualityThreshold <= 1,
		"extract.quality_threshold must be between 0 and 1")
	check(c.Extract.MaxConcurrentDocuments >= 1 && c.Extract.MaxConcurrentDocuments <= 50,
		"extract.max_concurrent_documents must be between 1 and 50")

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
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
