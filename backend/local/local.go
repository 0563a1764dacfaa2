// Package local is a self-hosted backend.Backend: collections live in SQLite,
// buckets are directories on disk, and admin accounts are bcrypt-hashed rows
// that sign in to HS256 session tokens.
package local

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/eringen/orgsite/backend"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Config configures a local backend.
type Config struct {
	DatabasePath string        // SQLite path (default "data/site.db")
	StorageDir   string        // bucket root (default "data/storage")
	PublicURL    string        // prefix for object URLs (default "/storage")
	JWTSecret    string        // required: session signing key
	SessionTTL   time.Duration // default 12h
	RecoveryTTL  time.Duration // default 1h
	Mailer       Mailer        // default: log the message
	Logger       *zap.Logger
	Now          func() time.Time
}

func (c *Config) setDefaults() {
	if c.DatabasePath == "" {
		c.DatabasePath = "data/site.db"
	}
	if c.StorageDir == "" {
		c.StorageDir = "data/storage"
	}
	if c.PublicURL == "" {
		c.PublicURL = "/storage"
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 12 * time.Hour
	}
	if c.RecoveryTTL == 0 {
		c.RecoveryTTL = time.Hour
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Mailer == nil {
		c.Mailer = LogMailer{Logger: c.Logger}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Backend is the SQLite + filesystem implementation.
type Backend struct {
	db      *sql.DB
	cfg     Config
	columns map[string]map[string]bool
}

var _ backend.Backend = (*Backend)(nil)

// internal tables never reachable through the Tables API.
var internalTables = map[string]bool{
	"users":            true,
	"revoked_sessions": true,
	"recovery_tokens":  true,
}

// Open opens (or creates) the database, ensures the data directories exist
// and runs schema migrations.
func Open(cfg Config) (*Backend, error) {
	cfg.setDefaults()
	if cfg.JWTSecret == "" {
		return nil, errors.New("local: JWTSecret is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	// WAL lets public reads continue while an admin write is in flight.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	b := &Backend{db: db, cfg: cfg}
	if err := b.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("local: ensure schema: %w", err)
	}
	if err := b.loadColumns(); err != nil {
		db.Close()
		return nil, fmt.Errorf("local: load columns: %w", err)
	}
	return b, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// StorageDir is the directory buckets are stored in.
func (b *Backend) StorageDir() string {
	return b.cfg.StorageDir
}

func (b *Backend) now() string {
	return b.cfg.Now().UTC().Format(timeLayout)
}

func (b *Backend) ensureSchema() error {
	_, err := b.db.Exec(`
CREATE TABLE IF NOT EXISTS blogs (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    image_url TEXT,
    is_published INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    event_date TEXT NOT NULL,
    start_time TEXT,
    end_time TEXT,
    location TEXT NOT NULL DEFAULT '',
    type TEXT,
    registration_link TEXT,
    event_image TEXT,
    is_published INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS events_event_date ON events (event_date);
CREATE TABLE IF NOT EXISTS gallery (
    id TEXT PRIMARY KEY,
    image_url TEXT NOT NULL,
    event_name TEXT NOT NULL DEFAULT '',
    event_id TEXT,
    event_date TEXT,
    event_location TEXT,
    drive_url TEXT,
    type TEXT NOT NULL DEFAULT 'event',
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS forums (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    apply_link TEXT,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS about_team (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'faculty',
    position TEXT NOT NULL DEFAULT '',
    bio TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS home_hero (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    subtitle TEXT NOT NULL DEFAULT '',
    primary_button_text TEXT NOT NULL DEFAULT '',
    primary_button_link TEXT NOT NULL DEFAULT '',
    secondary_button_text TEXT NOT NULL DEFAULT '',
    secondary_button_link TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS about_page (
    id TEXT PRIMARY KEY,
    section_title TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS membership_settings (
    id INTEGER PRIMARY KEY,
    enabled INTEGER NOT NULL DEFAULT 0,
    form_url TEXT NOT NULL DEFAULT '',
    updated_at TEXT,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS revoked_sessions (
    jti TEXT PRIMARY KEY,
    expires_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS recovery_tokens (
    token_hash TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    expires_at TEXT NOT NULL,
    used INTEGER NOT NULL DEFAULT 0
);
`)
	if err != nil {
		return err
	}
	return b.seed()
}

// seed creates the singleton rows the admin panel edits in place.
func (b *Backend) seed() error {
	now := b.now()
	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT OR IGNORE INTO home_hero (id, title, subtitle, primary_button_text, primary_button_link, secondary_button_text, secondary_button_link, created_at) VALUES ('hero', 'Welcome', '', 'About us', '/about/', 'View events', '/events/', ?)`, []any{now}},
		{`INSERT OR IGNORE INTO about_page (id, section_title, content, created_at) VALUES ('who-we-are', 'Who We Are', '', ?)`, []any{now}},
		{`INSERT OR IGNORE INTO about_page (id, section_title, content, created_at) VALUES ('our-mission', 'Our Mission', '', ?)`, []any{now}},
		{`INSERT OR IGNORE INTO about_page (id, section_title, content, created_at) VALUES ('our-vision', 'Our Vision', '', ?)`, []any{now}},
		{`INSERT OR IGNORE INTO membership_settings (id, enabled, form_url, updated_at, created_at) VALUES (1, 0, '', ?, ?)`, []any{now, now}},
	}
	for _, s := range stmts {
		if _, err := b.db.Exec(s.query, s.args...); err != nil {
			return err
		}
	}
	// Expired revocations can never match a valid token again.
	_, err := b.db.Exec(`DELETE FROM revoked_sessions WHERE expires_at < ?`, now)
	return err
}

func (b *Backend) loadColumns() error {
	rows, err := b.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		if !internalTables[name] {
			tables = append(tables, name)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	b.columns = make(map[string]map[string]bool, len(tables))
	for _, table := range tables {
		cols, err := b.db.Query(`SELECT name FROM pragma_table_info(?)`, table)
		if err != nil {
			return err
		}
		set := make(map[string]bool)
		for cols.Next() {
			var name string
			if err := cols.Scan(&name); err != nil {
				cols.Close()
				return err
			}
			set[name] = true
		}
		cols.Close()
		b.columns[table] = set
	}
	return nil
}
