package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-quest/internal/config"
	"github.com/vovakirdan/tui-quest/internal/engine"
	"github.com/vovakirdan/tui-quest/internal/stock"
	"github.com/vovakirdan/tui-quest/internal/storage"
)

var installCmd = &cobra.Command{
	Use:   "install <id>",
	Short: "Install a game from the catalog",
	Long: `Downloads a game from the remote catalog into the local library.
Archives are unpacked; the interpreter is picked from the game file's
extension.

Examples:
  quest install cloak-of-darkness
  quest install cloak-of-darkness --config ./player.yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runInstall,
}

func runInstall(cmd *cobra.Command, args []string) {
	id := args[0]
	cfg := mustLoadConfig()
	logger := newLogger()
	client := stock.NewClient(cfg.Stock.CatalogURL, time.Duration(cfg.Stock.TimeoutSeconds)*time.Second, logger)

	entries, err := client.Catalog(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var entry *stock.Entry
	for i := range entries {
		if strings.EqualFold(entries[i].ID, id) {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		fmt.Fprintf(os.Stderr, "Error: game %q is not in the catalog\n", id)
		fmt.Fprintln(os.Stderr, "Run 'quest stock' to see what is available.")
		os.Exit(1)
	}

	var exts []string
	for _, b := range engine.List() {
		exts = append(exts, b.Extensions...)
	}
	// Native games install fine even before an interpreter claims them.
	exts = append(exts, ".qsp", ".gam")

	installer := stock.NewInstaller(client, config.ExpandPath(cfg.Library.GamesDir), exts, logger)
	installed, err := installer.Install(context.Background(), *entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	backendName := ""
	if b, ok := engine.ForFile(installed.File); ok {
		backendName = b.Name
	} else {
		fmt.Printf("Warning: no interpreter claims %s; the game will not be playable\n", filepath.Base(installed.File))
	}

	if store := openLibrary(cfg); store != nil {
		defer store.Close()
		err := store.UpsertGame(storage.Game{
			ID:      entry.ID,
			Title:   entry.Title,
			Author:  entry.Author,
			Version: entry.Version,
			Backend: backendName,
			Dir:     installed.Dir,
			File:    installed.File,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not record the install: %v\n", err)
		}
	}

	fmt.Printf("Installed %q to %s\n", entry.Title, installed.Dir)
	fmt.Println("Run 'quest play' to start it from the library.")
}
