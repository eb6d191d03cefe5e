package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-quest/internal/engine"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed games and interpreters",
	Long:  `Shows the games in the local library and the interpreters that can run them.`,
	Run:   runList,
}

func runList(cmd *cobra.Command, args []string) {
	fmt.Println("Interpreters:")
	for _, b := range engine.List() {
		fmt.Printf("  %-8s %s (%s)\n", b.Name, b.Title, strings.Join(b.Extensions, ", "))
	}
	fmt.Println()

	cfg := mustLoadConfig()
	store := openLibrary(cfg)
	if store == nil {
		return
	}
	defer store.Close()

	games, err := store.Games()
	if err != nil {
		fmt.Printf("Cannot read the game library: %v\n", err)
		return
	}
	if len(games) == 0 {
		fmt.Println("No games installed.")
		fmt.Println("Run 'quest stock' to browse the catalog, or 'quest play' for the demo.")
		return
	}

	maxIDLen := 2 // "ID" header
	for _, g := range games {
		if len(g.ID) > maxIDLen {
			maxIDLen = len(g.ID)
		}
	}

	fmt.Println("Installed games:")
	fmt.Println()
	fmt.Printf("  %-*s  %s\n", maxIDLen, "ID", "Title")
	fmt.Printf("  %-*s  %s\n", maxIDLen, "--", "-----")
	for _, g := range games {
		title := g.Title
		if g.Author != "" {
			title += " by " + g.Author
		}
		fmt.Printf("  %-*s  %s\n", maxIDLen, g.ID, title)
	}
	fmt.Println()
	fmt.Println("Run 'quest play' to pick a game from the library.")
}
