// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	Server struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"server"`

	Database struct {
		Path string `json:"path"`
	} `json:"database"`

	LogLevel string `json:"log_level"` // debug, info, warn, error

	AutoCommit AutoCommitConfig `json:"auto_commit"`
}

func DefaultPath() string {
	env := os.Getenv("KEEPER_ENV")
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("config/config.%s.json", env)
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Config{AutoCommit: DefaultAutoCommit()}
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	return &config, nil
}
