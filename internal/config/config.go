package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultRegistryTimeoutSeconds bounds each members-registry request.
	DefaultRegistryTimeoutSeconds = 15

	// DefaultImportConcurrency is the worker bound for batch imports.
	DefaultImportConcurrency = 4
)

// Config holds all configuration for spangraph.
type Config struct {
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Registry RegistryConfig `mapstructure:"registry"`
	Import   ImportConfig   `mapstructure:"import"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Neo4jConfig holds graph database connection settings.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// String returns a safe representation of Neo4jConfig with the password masked.
func (c Neo4jConfig) String() string {
	return fmt.Sprintf("Neo4jConfig{URI:%s, Username:%s, Password:***, Database:%s}", c.URI, c.Username, c.Database)
}

// RegistryConfig holds members-registry API settings.
type RegistryConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ImportConfig holds import pipeline settings.
type ImportConfig struct {
	// OwnerID is stamped as owner and updater on every span this instance
	// writes.
	OwnerID     string `mapstructure:"owner_id"`
	Concurrency int    `mapstructure:"concurrency"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "neo4j")

	v.SetDefault("registry.base_url", "https://members-api.parliament.uk")
	v.SetDefault("registry.timeout_seconds", DefaultRegistryTimeoutSeconds)

	v.SetDefault("import.owner_id", "spangraph")
	v.SetDefault("import.concurrency", DefaultImportConcurrency)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".spangraph"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("SPANGRAPH")
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("neo4j.uri", "SPANGRAPH_NEO4J_URI")
	_ = v.BindEnv("neo4j.username", "SPANGRAPH_NEO4J_USERNAME")
	_ = v.BindEnv("neo4j.password", "SPANGRAPH_NEO4J_PASSWORD")
	_ = v.BindEnv("registry.base_url", "SPANGRAPH_REGISTRY_BASE_URL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine, defaults and env vars apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri must not be empty")
	}
	if c.Neo4j.Database == "" {
		return fmt.Errorf("neo4j.database must not be empty")
	}
	if c.Registry.BaseURL == "" {
		return fmt.Errorf("registry.base_url must not be empty")
	}
	if c.Registry.TimeoutSeconds <= 0 {
		return fmt.Errorf("registry.timeout_seconds must be greater than 0")
	}
	if c.Import.OwnerID == "" {
		return fmt.Errorf("import.owner_id must not be empty")
	}
	if c.Import.Concurrency <= 0 {
		return fmt.Errorf("import.concurrency must be greater than 0")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
