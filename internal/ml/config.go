package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/franckalain/healthscanner/internal/logger"
)

// BaseConfig provides common configuration functionality
type BaseConfig struct {
	ConfigPath string `json:"-"`
}

// LoadConfig fills config from configPath, then config/<name>.json. When
// neither can be read the caller falls back to environment variables.
func (c *BaseConfig) LoadConfig(log *logger.Logger, name string, config interface{}) error {
	if c.ConfigPath != "" {
		data, err := os.ReadFile(c.ConfigPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", c.ConfigPath, err)
		}
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("parse %s: %w", c.ConfigPath, err)
		}
		log.Info("ml: loaded configuration", "path", c.ConfigPath)
		return nil
	}

	defaultPath := filepath.Join("config", fmt.Sprintf("%s.json", name))
	if data, err := os.ReadFile(defaultPath); err == nil {
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("parse %s: %w", defaultPath, err)
		}
		log.Info("ml: loaded configuration", "path", defaultPath)
		return nil
	}

	log.Info("ml: using environment variables", "model", name)
	return nil
}
