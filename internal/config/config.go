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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Airtable   AirtableConfig   `yaml:"airtable" mapstructure:"airtable"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Dedup      DedupConfig      `yaml:"dedup" mapstructure:"dedup"`
	Merge      MergeConfig      `yaml:"merge" mapstructure:"merge"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AirtableConfig holds Airtable API credentials and table coordinates.
type AirtableConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseID  string `yaml:"base_id" mapstructure:"base_id"`
	Table   string `yaml:"table" mapstructure:"table"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// DedupConfig configures duplicate detection.
type DedupConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
	Mode      string  `yaml:"mode" mapstructure:"mode"`
	MaxLeads  int     `yaml:"max_leads" mapstructure:"max_leads"`
}

// MergeConfig configures merge execution.
type MergeConfig struct {
	PolicyPath string `yaml:"policy_path" mapstructure:"policy_path"`
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
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leads.db")
	v.SetDefault("airtable.base_url", "https://api.airtable.com/v0")
	v.SetDefault("airtable.table", "Leads")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("dedup.threshold", 0.85)
	v.SetDefault("dedup.mode", "strict")
	v.SetDefault("dedup.max_leads", 5000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command mode depends on. Modes: "scan"
// needs a record source and sane detection bounds, "merge" additionally
// needs a writable store, "serve" needs a valid port on top of both.
func (c *Config) Validate(mode string) error {
	var problems []string

	checkDetection := func() {
		if c.Dedup.Threshold < 0 || c.Dedup.Threshold > 1 {
			problems = append(problems, "dedup.threshold must be between 0 and 1")
		}
		if c.Dedup.MaxLeads < 1 || c.Dedup.MaxLeads > 5000 {
			problems = append(problems, "dedup.max_leads must be between 1 and 5000")
		}
		switch c.Dedup.Mode {
		case "strict", "fuzzy", "exact":
		default:
			problems = append(problems, "dedup.mode must be strict, fuzzy or exact")
		}
	}
	checkStore := func() {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}

	switch mode {
	case "scan":
		checkDetection()
	case "merge":
		checkDetection()
		checkStore()
	case "serve":
		checkDetection()
		checkStore()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
