// Package config provides YAML-based configuration loading for the
// quest player: game library locations, display and audio defaults,
// the remote stock endpoint and the SSH front end.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Config holds all player settings.
type Config struct {
	Library LibraryConfig `yaml:"library"`
	View    ViewConfig    `yaml:"view"`
	Audio   AudioConfig   `yaml:"audio"`
	Stock   StockConfig   `yaml:"stock"`
	Server  ServerConfig  `yaml:"server"`
}

// LibraryConfig says where installed games and their metadata live.
type LibraryConfig struct {
	GamesDir string `yaml:"games_dir"`
	Database string `yaml:"database"`
}

// ViewConfig holds display defaults, used when a game does not set
// its own through the interpreter variables.
type ViewConfig struct {
	FontSize      int  `yaml:"font_size"`       // 0 = terminal default
	UseGameColors bool `yaml:"use_game_colors"` // honor the game's color variables
	MaxWidth      int  `yaml:"max_width"`       // 0 = full terminal width
}

// AudioConfig controls the sound facade.
type AudioConfig struct {
	Enabled bool `yaml:"enabled"`
	Volume  int  `yaml:"volume"` // 0-100, scales game-requested volumes
}

// StockConfig points at the remote game catalog.
type StockConfig struct {
	CatalogURL     string `yaml:"catalog_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ServerConfig configures the SSH front end.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	HostKeyDir string `yaml:"host_key_dir"`
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
