package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-quest/internal/stock"
)

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Browse the remote game catalog",
	Long: `Fetches the remote game catalog and lists the games available for
installation. The catalog location comes from stock.catalog_url in the
player config.

Examples:
  quest stock
  quest stock --config ./player.yaml`,
	Run: runStock,
}

func runStock(cmd *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	client := stock.NewClient(cfg.Stock.CatalogURL, time.Duration(cfg.Stock.TimeoutSeconds)*time.Second, newLogger())

	entries, err := client.Catalog(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("The catalog is empty.")
		return
	}

	maxIDLen := 2 // "ID" header
	for _, e := range entries {
		if len(e.ID) > maxIDLen {
			maxIDLen = len(e.ID)
		}
	}

	fmt.Printf("Games at %s:\n", cfg.Stock.CatalogURL)
	fmt.Println()
	fmt.Printf("  %-*s  %s\n", maxIDLen, "ID", "Title")
	fmt.Printf("  %-*s  %s\n", maxIDLen, "--", "-----")
	for _, e := range entries {
		title := e.Title
		if e.Author != "" {
			title += " by " + e.Author
		}
		if e.Version != "" {
			title += " (v" + e.Version + ")"
		}
		fmt.Printf("  %-*s  %s\n", maxIDLen, e.ID, title)
	}
	fmt.Println()
	fmt.Println("Run 'quest install <id>' to install a game.")
}
