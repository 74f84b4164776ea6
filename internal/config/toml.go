// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Watch WatchConfig `toml:"watch"`
	Stats StatsConfig `toml:"stats"`
	Log   LogConfig   `toml:"log"`
}

// WatchConfig maps settings for the watch command.
type WatchConfig struct {
	InitDelayMs *int    `toml:"init-delay-ms"`
	Realtime    *bool   `toml:"realtime"`
	Serve       *string `toml:"serve"`
	NoStore     *bool   `toml:"no-store"`
	Export      *bool   `toml:"export"`
}

// StatsConfig maps settings for stats reporting.
type StatsConfig struct {
	Game           *string  `toml:"game"`
	MinAttemptSecs *float64 `toml:"min-attempt-secs"`
	CurveWindow    *int     `toml:"curve-window"`
	WeakTop        *int     `toml:"weak-top"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
