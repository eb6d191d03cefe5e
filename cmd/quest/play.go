package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/tui-quest/internal/config"
	"github.com/vovakirdan/tui-quest/internal/platform/tui"
)

var playCmd = &cobra.Command{
	Use:   "play [game-file]",
	Short: "Play a game",
	Long: `Open the game library, or play a specific game file directly.

The library lists installed games plus the built-in demo story.

In-game controls:
  Tab        - Switch panel (actions, objects, input)
  Up/Down    - Move the cursor in the focused panel
  Enter      - Trigger the selected action or object
  1-9        - Follow a numbered link in the description
  Ctrl+S     - Quicksave
  Ctrl+L     - Load the quicksave
  Ctrl+R     - Restart the game
  Ctrl+O     - Toggle the message log
  Esc        - Back to the library
  Ctrl+C     - Quit

Examples:
  quest play
  quest play ~/games/demo/demo.story
  quest play cloak.story --config ./player.yaml`,
	Args: cobra.MaximumNArgs(1),
	Run:  runPlay,
}

func runPlay(cmd *cobra.Command, args []string) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: quest play needs an interactive terminal")
		os.Exit(1)
	}

	cfg := mustLoadConfig()
	logger := newLogger()

	var startFile string
	if len(args) == 1 {
		path, err := filepath.Abs(config.ExpandPath(args[0]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if _, err := os.Stat(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot open game file %s\n", path)
			os.Exit(1)
		}
		startFile = path
	}

	store := openLibrary(cfg)
	defer func() {
		if store != nil {
			store.Close()
		}
	}()

	err := tui.RunApp(tui.AppOptions{
		Config:    &cfg,
		Store:     store,
		Logger:    logger,
		StartFile: startFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
