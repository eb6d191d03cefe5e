package config

import (
	_ "embed"
)

//go:embed defaults/player.yaml
var defaultPlayerYAML []byte

// DefaultConfig returns the built-in player configuration.
func DefaultConfig() Config {
	return Config{
		Library: LibraryConfig{
			GamesDir: "~/.quest/games",
			Database: "~/.quest/library.db",
		},
		View: ViewConfig{
			FontSize:      0,
			UseGameColors: true,
			MaxWidth:      0,
		},
		Audio: AudioConfig{
			Enabled: true,
			Volume:  100,
		},
		Stock: StockConfig{
			CatalogURL:     "https://qsp.su/stock",
			TimeoutSeconds: 30,
		},
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       2222,
			HostKeyDir: "~/.quest/ssh",
		},
	}
}

// DefaultYAML returns the embedded default YAML.
func DefaultYAML() []byte {
	return defaultPlayerYAML
}
