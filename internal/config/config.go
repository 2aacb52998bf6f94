package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/franckalain/healthscanner/internal/models"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultStaticDir     = "./static"
	DefaultDatabasePath  = "health_scanner.db"
	DefaultLookupBaseURL = "https://world.openfoodfacts.org/api/v0/product/"
	DefaultLookupTimeout = 10 * time.Second
	DefaultHistoryLimit  = 20
	DefaultLogMode       = "dev"
)

// Config holds all application configuration
type Config struct {
	Server struct {
		Port         string `json:"port"`
		StaticDir    string `json:"static_dir"`
		Debug        bool   `json:"debug"`
		HistoryLimit int    `json:"history_limit"`
	} `json:"server"`

	Database struct {
		Path string `json:"path"`
	} `json:"database"`

	ML struct {
		Type       string `json:"type"`        // "google", or empty to disable label scanning
		ConfigPath string `json:"config_path"` // model-specific JSON file
	} `json:"ml"`

	Lookup struct {
		BaseURL        string `json:"base_url"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	} `json:"lookup"`

	Criteria struct {
		// Path is an optional YAML file of threshold overrides, reloaded on change.
		Path string `json:"path"`
		// Overrides are applied over the built-in defaults before Path is read.
		Overrides models.CriteriaUpdate `json:"overrides"`
	} `json:"criteria"`

	Log struct {
		Mode string `json:"mode"` // "dev" or "prod"
	} `json:"log"`
}

// LookupTimeout returns the product lookup timeout as a duration.
func (c *Config) LookupTimeout() time.Duration {
	if c.Lookup.TimeoutSeconds <= 0 {
		return DefaultLookupTimeout
	}
	return time.Duration(c.Lookup.TimeoutSeconds) * time.Second
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Handle missing values
	if config.Server.Port == "" {
		return nil, fmt.Errorf("server port is not set in config file")
	}
	if config.Server.StaticDir == "" {
		config.Server.StaticDir = DefaultStaticDir
	}
	if config.Server.HistoryLimit <= 0 {
		config.Server.HistoryLimit = DefaultHistoryLimit
	}
	if config.Database.Path == "" {
		config.Database.Path = DefaultDatabasePath
	}
	if config.Lookup.BaseURL == "" {
		config.Lookup.BaseURL = DefaultLookupBaseURL
	}
	if config.Log.Mode == "" {
		config.Log.Mode = DefaultLogMode
	}
	switch config.ML.Type {
	case "", "google":
	default:
		return nil, fmt.Errorf("unsupported ml type %q", config.ML.Type)
	}

	return &config, nil
}

// GetConfigPath returns the path to the configuration file
func GetConfigPath() string {
	// First try environment variable
	if path := os.Getenv("HEALTHSCANNER_CONFIG"); path != "" {
		return path
	}

	// Then try config directory
	configDir := "config"
	if _, err := os.Stat(configDir); err == nil {
		return filepath.Join(configDir, "config.json")
	}

	// Finally, try current directory
	return "config.json"
}
