package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-quest/internal/config"
)

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an installed game",
	Long: `Deletes a game's files and drops it from the library, including its
play history.

Examples:
  quest remove cloak-of-darkness`,
	Args: cobra.ExactArgs(1),
	Run:  runRemove,
}

func runRemove(cmd *cobra.Command, args []string) {
	id := args[0]
	cfg := mustLoadConfig()
	store := openLibrary(cfg)
	if store == nil {
		os.Exit(1)
	}
	defer store.Close()

	game, err := store.Game(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if game == nil {
		fmt.Fprintf(os.Stderr, "Error: game %q is not installed\n", id)
		os.Exit(1)
	}

	// Delete files only when they live under the games directory.
	gamesDir := config.ExpandPath(cfg.Library.GamesDir)
	if rel, relErr := filepath.Rel(gamesDir, game.Dir); relErr == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		if err := os.RemoveAll(game.Dir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not delete %s: %v\n", game.Dir, err)
		}
	}

	if err := store.RemoveGame(id); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %q\n", game.Title)
}
