package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"feedqa/internal/models"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single writer avoids SQLITE_BUSY; the reader is single-user.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS feeds (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		articles_json TEXT NOT NULL,
		added_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feeds_added ON feeds(added_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveFeed creates or replaces a feed record.
func (s *SQLiteStore) SaveFeed(ctx context.Context, feed *models.Feed) error {
	articles := feed.Articles
	if articles == nil {
		articles = []models.Article{}
	}

	articlesJSON, err := json.Marshal(articles)
	if err != nil {
		return fmt.Errorf("marshal articles: %w", err)
	}

	query := `
	INSERT INTO feeds (id, url, title, articles_json, added_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		url = excluded.url,
		title = excluded.title,
		articles_json = excluded.articles_json`

	if _, err := s.db.ExecContext(ctx, query,
		feed.ID, feed.URL, feed.Title, string(articlesJSON), feed.AddedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("save feed %s: %w", feed.ID, err)
	}

	return nil
}

// ListFeeds returns every feed in insertion order.
func (s *SQLiteStore) ListFeeds(ctx context.Context) ([]*models.Feed, error) {
	query := `SELECT id, url, title, articles_json, added_at FROM feeds ORDER BY added_at, rowid`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer rows.Close()

	feeds := []*models.Feed{}

	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}

		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feeds: %w", err)
	}

	return feeds, nil
}

// GetFeed retrieves a feed by ID.
func (s *SQLiteStore) GetFeed(ctx context.Context, id string) (*models.Feed, error) {
	query := `SELECT id, url, title, articles_json, added_at FROM feeds WHERE id = ?`

	feed, err := scanFeed(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrFeedNotFound, id)
	}

	if err != nil {
		return nil, err
	}

	return feed, nil
}

// DeleteFeed removes a feed by ID.
func (s *SQLiteStore) DeleteFeed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete feed %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete feed %s: %w", id, err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrFeedNotFound, id)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*models.Feed, error) {
	var (
		feed         models.Feed
		articlesJSON string
		addedAt      int64
	)

	err := row.Scan(&feed.ID, &feed.URL, &feed.Title, &articlesJSON, &addedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if err != nil {
		return nil, fmt.Errorf("scan feed row: %w", err)
	}

	if err := json.Unmarshal([]byte(articlesJSON), &feed.Articles); err != nil {
		return nil, fmt.Errorf("unmarshal articles of feed %s: %w", feed.ID, err)
	}

	if feed.Articles == nil {
		feed.Articles = []models.Article{}
	}

	feed.AddedAt = time.Unix(0, addedAt)

	return &feed, nil
}
