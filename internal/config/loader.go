package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/ilyakaznacheev/cleanenv"
)

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults (via env-default tags).
// The YAML file path is CONFIG_PATH when set, otherwise ./config.yaml, otherwise
// $XDG_CONFIG_HOME/myquran/config.yaml. If no file is found and CONFIG_PATH was
// not set explicitly, configuration is loaded from ENV + defaults only.
// Role-specific checks are left to ValidateClient and ValidateServer.
func Load() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	explicitPath := path != ""
	if !explicitPath {
		path = findConfigFile()
	}

	switch {
	case path == "":
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	default:
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

func findConfigFile() string {
	if _, err := os.Stat("./config.yaml"); err == nil {
		return "./config.yaml"
	}
	if path, err := xdg.SearchConfigFile(filepath.Join(AppName, "config.yaml")); err == nil {
		return path
	}
	return ""
}
