// quest is a terminal player for choice-based text adventure games.
//
// Usage:
//
//	quest play [file]      - Open the game library or play a game file
//	quest list             - List installed games and interpreters
//	quest stock            - Browse the remote game catalog
//	quest install <id>     - Install a game from the catalog
//	quest remove <id>      - Remove an installed game
//	quest serve            - Start the SSH server for remote play
//
// Global flags:
//
//	--config <path>  - Path to a player config YAML
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-quest/internal/config"
	"github.com/vovakirdan/tui-quest/internal/storage"

	// Import interpreters to register them
	_ "github.com/vovakirdan/tui-quest/internal/engine/script"
)

var flagConfig string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "quest",
	Short: "Quest - play text adventure games in your terminal",
	Long: `Quest is a terminal player for choice-based text adventure games.
Games are small worlds of locations, actions and objects; the player
walks them from the keyboard, locally or over SSH.

Available commands:
  play     - Open the game library or play a game file directly
  list     - Show installed games and interpreters
  stock    - Browse the remote game catalog
  install  - Install a game from the catalog
  remove   - Remove an installed game
  serve    - Start SSH server for remote play

Examples:
  quest play
  quest play ~/games/demo/demo.story
  quest stock
  quest install cloak-of-darkness
  quest serve --port 2222`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to player config YAML")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(stockCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(serveCmd)
}

// mustLoadConfig loads the player configuration or exits.
func mustLoadConfig() config.Config {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// openLibrary opens the game library database. A failure is not fatal;
// the player keeps working without history or installed games.
func openLibrary(cfg config.Config) *storage.Store {
	store, err := storage.Open(cfg.Library.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open game library: %v\n", err)
		return nil
	}
	return store
}

// newLogger returns a logger that writes to the player log file. The
// TUI owns the terminal, so logs never go to stderr while it runs.
func newLogger() *log.Logger {
	dir := config.ExpandPath("~/.quest/logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return log.New(io.Discard)
	}
	f, err := os.OpenFile(filepath.Join(dir, "player.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return log.New(io.Discard)
	}
	return log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		Prefix:          "quest",
	})
}
