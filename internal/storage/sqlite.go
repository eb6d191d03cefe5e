// Package storage provides SQLite-based persistence for the installed
// game library and play history.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store manages the SQLite database connection for the game library.
type Store struct {
	db *sql.DB
}

// Game is one installed game.
type Game struct {
	ID          string
	Title       string
	Author      string
	Version     string
	Backend     string
	Dir         string
	File        string
	InstalledAt time.Time
}

// PlayStats contains aggregated play history for a game.
type PlayStats struct {
	GameID     string
	Plays      int
	TotalSecs  int64
	LastPlayed time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	// Open database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	// Run migrations
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			version TEXT NOT NULL DEFAULT '',
			backend TEXT NOT NULL DEFAULT '',
			dir TEXT NOT NULL,
			file TEXT NOT NULL,
			installed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_games_title ON games(title);

		CREATE TABLE IF NOT EXISTS plays (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id TEXT NOT NULL,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			seconds INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_plays_game_id ON plays(game_id);
		CREATE INDEX IF NOT EXISTS idx_plays_recent ON plays(game_id, started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// parseTime handles the datetime forms the driver may return.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// UpsertGame inserts a game or updates its metadata, keeping the
// original installation timestamp on update.
func (s *Store) UpsertGame(g Game) error {
	_, err := s.db.Exec(
		`INSERT INTO games (id, title, author, version, backend, dir, file)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   author = excluded.author,
		   version = excluded.version,
		   backend = excluded.backend,
		   dir = excluded.dir,
		   file = excluded.file`,
		g.ID, g.Title, g.Author, g.Version, g.Backend, g.Dir, g.File,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save game: %w", err)
	}
	return nil
}

// Game retrieves one game by ID. Returns nil when it is not installed.
func (s *Store) Game(id string) (*Game, error) {
	var g Game
	var installedAt any

	err := s.db.QueryRow(
		`SELECT id, title, author, version, backend, dir, file, installed_at
		 FROM games
		 WHERE id = ?`,
		id,
	).Scan(&g.ID, &g.Title, &g.Author, &g.Version, &g.Backend, &g.Dir, &g.File, &installedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query game: %w", err)
	}

	g.InstalledAt = parseTime(installedAt)
	return &g, nil
}

// Games retrieves all installed games ordered by title.
func (s *Store) Games() ([]Game, error) {
	rows, err := s.db.Query(
		`SELECT id, title, author, version, backend, dir, file, installed_at
		 FROM games
		 ORDER BY title COLLATE NOCASE`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query games: %w", err)
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		var g Game
		var installedAt any
		if err := rows.Scan(&g.ID, &g.Title, &g.Author, &g.Version, &g.Backend, &g.Dir, &g.File, &installedAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		g.InstalledAt = parseTime(installedAt)
		games = append(games, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return games, nil
}

// RemoveGame deletes a game and its play history.
func (s *Store) RemoveGame(id string) error {
	if _, err := s.db.Exec("DELETE FROM plays WHERE game_id = ?", id); err != nil {
		return fmt.Errorf("storage: cannot clear play history: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM games WHERE id = ?", id); err != nil {
		return fmt.Errorf("storage: cannot remove game: %w", err)
	}
	return nil
}

// RecordPlay logs one play of a game.
// Returns the ID of the inserted record.
func (s *Store) RecordPlay(gameID string, seconds int) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO plays (game_id, seconds) VALUES (?, ?)",
		gameID, seconds,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot record play: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// Stats retrieves aggregated play history for a specific game.
func (s *Store) Stats(gameID string) (*PlayStats, error) {
	stats := &PlayStats{GameID: gameID}

	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(seconds), 0)
		 FROM plays WHERE game_id = ?`,
		gameID,
	).Scan(&stats.Plays, &stats.TotalSecs)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get play stats: %w", err)
	}

	var lastPlayed any
	err = s.db.QueryRow(
		`SELECT started_at FROM plays WHERE game_id = ? ORDER BY started_at DESC LIMIT 1`,
		gameID,
	).Scan(&lastPlayed)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("storage: cannot get last played: %w", err)
	}
	if err == nil {
		stats.LastPlayed = parseTime(lastPlayed)
	}

	return stats, nil
}

// AllStats retrieves play statistics for every game with history.
func (s *Store) AllStats() (map[string]*PlayStats, error) {
	rows, err := s.db.Query(
		`SELECT game_id, COUNT(*), COALESCE(SUM(seconds), 0), MAX(started_at)
		 FROM plays
		 GROUP BY game_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get play stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]*PlayStats)
	for rows.Next() {
		var ps PlayStats
		var lastPlayed any
		if err := rows.Scan(&ps.GameID, &ps.Plays, &ps.TotalSecs, &lastPlayed); err != nil {
			return nil, fmt.Errorf("storage: cannot scan stats row: %w", err)
		}
		ps.LastPlayed = parseTime(lastPlayed)
		stats[ps.GameID] = &ps
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return stats, nil
}

// RecentlyPlayed retrieves games ordered by most recent play.
func (s *Store) RecentlyPlayed(limit int) ([]Game, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT g.id, g.title, g.author, g.version, g.backend, g.dir, g.file, g.installed_at
		 FROM games g
		 JOIN plays p ON p.game_id = g.id
		 GROUP BY g.id
		 ORDER BY MAX(p.started_at) DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query recent games: %w", err)
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		var g Game
		var installedAt any
		if err := rows.Scan(&g.ID, &g.Title, &g.Author, &g.Version, &g.Backend, &g.Dir, &g.File, &installedAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		g.InstalledAt = parseTime(installedAt)
		games = append(games, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return games, nil
}
