// Package store provides the SQLite-backed feed registry for Feedwire.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// Feed is one registered RSS/Atom subscription.
type Feed struct {
	ID           int64
	GuildID      string
	ChannelID    string
	URL          string
	Title        string // optional human label, "" if unset
	WebhookURL   string // optional; "" means deliver to the channel directly
	LastUpdated  time.Time
	LastItemDate *time.Time // nil until the feed has delivered at least once
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	// Build connection string based on database type
	connStr := dbPath
	if dbPath == ":memory:" {
		// For in-memory databases, use shared cache mode so all connections
		// in the pool see the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// For in-memory databases, limit to 1 connection to avoid issues
	// with multiple connections getting different databases
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Enable WAL mode for file-based databases (not :memory:)
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required tables and indexes if they don't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS feeds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		webhook_url TEXT,
		last_updated DATETIME NOT NULL,
		last_item_date DATETIME,
		UNIQUE (guild_id, channel_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_feeds_guild ON feeds(guild_id);
	CREATE INDEX IF NOT EXISTS idx_feeds_url ON feeds(url);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Add registers a new feed subscription. Title and webhookURL may be empty.
// Thread-safe: acquires write lock.
func (s *Store) Add(guildID, channelID, url, title, webhookURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO feeds (guild_id, channel_id, url, title, webhook_url, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
	`, guildID, channelID, url, title, webhookURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert feed: %w", err)
	}
	return nil
}

// Remove deletes a feed by guild and URL. Returns true if a row was deleted.
// Thread-safe: acquires write lock.
func (s *Store) Remove(guildID, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM feeds WHERE guild_id = ? AND url = ?", guildID, url)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RemoveChannel deletes every feed bound to one channel, for channel-delete
// cleanup. Returns the number of feeds removed.
// Thread-safe: acquires write lock.
func (s *Store) RemoveChannel(guildID, channelID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(
		"DELETE FROM feeds WHERE guild_id = ? AND channel_id = ?", guildID, channelID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// All returns every registered feed, ordered by ID.
// Thread-safe: acquires read lock.
func (s *Store) All() ([]Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryFeeds(selectFeeds + " ORDER BY id")
}

// Guild returns all feeds belonging to one guild, ordered by ID.
// Thread-safe: acquires read lock.
func (s *Store) Guild(guildID string) ([]Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryFeeds(selectFeeds+" WHERE guild_id = ? ORDER BY id", guildID)
}

// Find looks up a single feed by URL. Returns nil if not present.
// Thread-safe: acquires read lock.
func (s *Store) Find(url string) (*Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feeds, err := s.queryFeeds(selectFeeds+" WHERE url = ? LIMIT 1", url)
	if err != nil {
		return nil, err
	}
	if len(feeds) == 0 {
		return nil, nil
	}
	return &feeds[0], nil
}

// Exists reports whether a feed with this URL is registered in the guild.
// Thread-safe: acquires read lock.
func (s *Store) Exists(guildID, url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM feeds WHERE guild_id = ? AND url = ?", guildID, url).Scan(&n)
	return n > 0, err
}

// Duplicate reports whether the exact (guild, channel, url) subscription exists.
// Thread-safe: acquires read lock.
func (s *Store) Duplicate(guildID, channelID, url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM feeds WHERE guild_id = ? AND channel_id = ? AND url = ?",
		guildID, channelID, url).Scan(&n)
	return n > 0, err
}

// Count returns the total number of registered feeds.
// Thread-safe: acquires read lock.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM feeds").Scan(&n)
	return n, err
}

// UpdateCursor records the newest delivered item timestamp for a feed and
// bumps last_updated. Last-writer-wins under concurrent sync paths.
// Thread-safe: acquires write lock.
func (s *Store) UpdateCursor(id int64, newestDelivered time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"UPDATE feeds SET last_item_date = ?, last_updated = ? WHERE id = ?",
		newestDelivered.UTC(), time.Now().UTC(), id)
	return err
}

const selectFeeds = `
	SELECT id, guild_id, channel_id, url, title, webhook_url, last_updated, last_item_date
	FROM feeds`

// queryFeeds is a helper that executes a query and scans results into Feeds.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) queryFeeds(query string, args ...any) ([]Feed, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var f Feed
		var title, webhook sql.NullString
		var lastItem sql.NullTime
		err := rows.Scan(
			&f.ID,
			&f.GuildID,
			&f.ChannelID,
			&f.URL,
			&title,
			&webhook,
			&f.LastUpdated,
			&lastItem,
		)
		if err != nil {
			return nil, err
		}
		f.Title = title.String
		f.WebhookURL = webhook.String
		if lastItem.Valid {
			t := lastItem.Time
			f.LastItemDate = &t
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}
