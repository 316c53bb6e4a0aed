package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Dir returns ~/.ffscrape, where the config file and default storage live.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".ffscrape"), nil
}

// ConfigFilePath returns the path of the default config file.
func ConfigFilePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadConfigFile overlays the YAML file at path onto cfg. Settings missing
// from the file keep their current values. A missing file is not an error;
// a file that exists but cannot be parsed is.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil // File doesn't exist -- not an error
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// WriteDefaultConfigFile writes the default settings to ~/.ffscrape/
// config.yaml. It returns false without writing when the file exists and
// force is not set.
func WriteDefaultConfigFile(force bool) (bool, error) {
	dir, err := Dir()
	if err != nil {
		return false, err
	}
	path := filepath.Join(dir, "config.yaml")

	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}

	// 0700: owner-only access
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(Default(dir))
	if err != nil {
		return false, fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}

	return true, nil
}
