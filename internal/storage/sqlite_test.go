package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "library.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestStoreOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "library.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	// Check that the file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestOpenCreatesParentDirs(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "deep", "library.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()
}

func TestUpsertAndGetGame(t *testing.T) {
	store := openTestStore(t)

	g := Game{
		ID:      "cloak",
		Title:   "Cloak of Darkness",
		Author:  "Roger Firth",
		Version: "1.0",
		Backend: "script",
		Dir:     "/games/cloak",
		File:    "cloak.qsp",
	}
	if err := store.UpsertGame(g); err != nil {
		t.Fatalf("UpsertGame() failed: %v", err)
	}

	got, err := store.Game("cloak")
	if err != nil {
		t.Fatalf("Game() failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected game, got nil")
	}
	if got.Title != "Cloak of Darkness" {
		t.Errorf("Expected title 'Cloak of Darkness', got %q", got.Title)
	}
	if got.Backend != "script" {
		t.Errorf("Expected backend 'script', got %q", got.Backend)
	}
	if got.InstalledAt.IsZero() {
		t.Error("Expected installed_at to be set")
	}
}

func TestGameNotInstalled(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Game("nope")
	if err != nil {
		t.Fatalf("Game() failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing game, got %+v", got)
	}
}

func TestUpsertKeepsInstallTimestamp(t *testing.T) {
	store := openTestStore(t)

	g := Game{ID: "adv", Title: "Adventure", Dir: "/games/adv", File: "adv.qsp"}
	if err := store.UpsertGame(g); err != nil {
		t.Fatalf("UpsertGame() failed: %v", err)
	}

	first, err := store.Game("adv")
	if err != nil {
		t.Fatalf("Game() failed: %v", err)
	}

	g.Title = "Adventure (updated)"
	g.Version = "2.0"
	if err := store.UpsertGame(g); err != nil {
		t.Fatalf("UpsertGame() update failed: %v", err)
	}

	second, err := store.Game("adv")
	if err != nil {
		t.Fatalf("Game() failed: %v", err)
	}
	if second.Title != "Adventure (updated)" {
		t.Errorf("Expected updated title, got %q", second.Title)
	}
	if second.Version != "2.0" {
		t.Errorf("Expected version '2.0', got %q", second.Version)
	}
	if !second.InstalledAt.Equal(first.InstalledAt) {
		t.Errorf("Expected installed_at %v to survive update, got %v", first.InstalledAt, second.InstalledAt)
	}

	games, err := store.Games()
	if err != nil {
		t.Fatalf("Games() failed: %v", err)
	}
	if len(games) != 1 {
		t.Errorf("Expected 1 game after upsert, got %d", len(games))
	}
}

func TestGamesSortedByTitle(t *testing.T) {
	store := openTestStore(t)

	for _, g := range []Game{
		{ID: "z", Title: "zork", Dir: "/g/z", File: "z.qsp"},
		{ID: "a", Title: "Anchorhead", Dir: "/g/a", File: "a.qsp"},
		{ID: "m", Title: "Mystery", Dir: "/g/m", File: "m.qsp"},
	} {
		if err := store.UpsertGame(g); err != nil {
			t.Fatalf("UpsertGame() failed: %v", err)
		}
	}

	games, err := store.Games()
	if err != nil {
		t.Fatalf("Games() failed: %v", err)
	}
	if len(games) != 3 {
		t.Fatalf("Expected 3 games, got %d", len(games))
	}

	// Case-insensitive title order
	want := []string{"Anchorhead", "Mystery", "zork"}
	for i, title := range want {
		if games[i].Title != title {
			t.Errorf("Expected games[%d] = %q, got %q", i, title, games[i].Title)
		}
	}
}

func TestRemoveGame(t *testing.T) {
	store := openTestStore(t)

	g := Game{ID: "tmp", Title: "Temporary", Dir: "/g/tmp", File: "t.qsp"}
	if err := store.UpsertGame(g); err != nil {
		t.Fatalf("UpsertGame() failed: %v", err)
	}
	if _, err := store.RecordPlay("tmp", 120); err != nil {
		t.Fatalf("RecordPlay() failed: %v", err)
	}

	if err := store.RemoveGame("tmp"); err != nil {
		t.Fatalf("RemoveGame() failed: %v", err)
	}

	got, err := store.Game("tmp")
	if err != nil {
		t.Fatalf("Game() failed: %v", err)
	}
	if got != nil {
		t.Error("Expected game to be removed")
	}

	stats, err := store.Stats("tmp")
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Plays != 0 {
		t.Errorf("Expected play history to be cleared, got %d plays", stats.Plays)
	}
}

func TestRecordPlayAndStats(t *testing.T) {
	store := openTestStore(t)

	g := Game{ID: "cloak", Title: "Cloak of Darkness", Dir: "/g/c", File: "c.qsp"}
	if err := store.UpsertGame(g); err != nil {
		t.Fatalf("UpsertGame() failed: %v", err)
	}

	for _, secs := range []int{60, 300, 45} {
		id, err := store.RecordPlay("cloak", secs)
		if err != nil {
			t.Fatalf("RecordPlay() failed: %v", err)
		}
		if id <= 0 {
			t.Errorf("Expected positive play ID, got %d", id)
		}
	}

	stats, err := store.Stats("cloak")
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Plays != 3 {
		t.Errorf("Expected 3 plays, got %d", stats.Plays)
	}
	if stats.TotalSecs != 405 {
		t.Errorf("Expected 405 total seconds, got %d", stats.TotalSecs)
	}
	if stats.LastPlayed.IsZero() {
		t.Error("Expected last played to be set")
	}
}

func TestStatsNoHistory(t *testing.T) {
	store := openTestStore(t)

	stats, err := store.Stats("unknown")
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Plays != 0 {
		t.Errorf("Expected 0 plays, got %d", stats.Plays)
	}
	if stats.TotalSecs != 0 {
		t.Errorf("Expected 0 seconds, got %d", stats.TotalSecs)
	}
	if !stats.LastPlayed.IsZero() {
		t.Errorf("Expected zero last played, got %v", stats.LastPlayed)
	}
}

func TestAllStats(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.RecordPlay("a", 10); err != nil {
		t.Fatalf("RecordPlay() failed: %v", err)
	}
	if _, err := store.RecordPlay("a", 20); err != nil {
		t.Fatalf("RecordPlay() failed: %v", err)
	}
	if _, err := store.RecordPlay("b", 5); err != nil {
		t.Fatalf("RecordPlay() failed: %v", err)
	}

	all, err := store.AllStats()
	if err != nil {
		t.Fatalf("AllStats() failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected stats for 2 games, got %d", len(all))
	}
	if all["a"].Plays != 2 || all["a"].TotalSecs != 30 {
		t.Errorf("Expected 2 plays / 30s for 'a', got %d / %d", all["a"].Plays, all["a"].TotalSecs)
	}
	if all["b"].Plays != 1 {
		t.Errorf("Expected 1 play for 'b', got %d", all["b"].Plays)
	}
}

func TestRecentlyPlayed(t *testing.T) {
	store := openTestStore(t)

	for _, g := range []Game{
		{ID: "old", Title: "Old Favourite", Dir: "/g/old", File: "o.qsp"},
		{ID: "new", Title: "New Arrival", Dir: "/g/new", File: "n.qsp"},
		{ID: "idle", Title: "Never Played", Dir: "/g/idle", File: "i.qsp"},
	} {
		if err := store.UpsertGame(g); err != nil {
			t.Fatalf("UpsertGame() failed: %v", err)
		}
	}

	// SQLite CURRENT_TIMESTAMP has second resolution, so space the
	// plays out with explicit timestamps.
	now := time.Now().UTC()
	insertPlayAt(t, store, "old", now.Add(-2*time.Hour))
	insertPlayAt(t, store, "new", now.Add(-time.Minute))
	insertPlayAt(t, store, "old", now.Add(-3*time.Hour))

	recent, err := store.RecentlyPlayed(5)
	if err != nil {
		t.Fatalf("RecentlyPlayed() failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 recently played games, got %d", len(recent))
	}
	if recent[0].ID != "new" {
		t.Errorf("Expected 'new' first, got %q", recent[0].ID)
	}
	if recent[1].ID != "old" {
		t.Errorf("Expected 'old' second, got %q", recent[1].ID)
	}

	limited, err := store.RecentlyPlayed(1)
	if err != nil {
		t.Fatalf("RecentlyPlayed() failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected limit of 1 to apply, got %d games", len(limited))
	}
}

func insertPlayAt(t *testing.T, store *Store, gameID string, at time.Time) {
	t.Helper()

	_, err := store.db.Exec(
		"INSERT INTO plays (game_id, started_at, seconds) VALUES (?, ?, ?)",
		gameID, at.Format("2006-01-02 15:04:05"), 1,
	)
	if err != nil {
		t.Fatalf("insert play failed: %v", err)
	}
}
