package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Config selects the database backend. SQLite is the default for local
// deployments; PostgreSQL is used when DB_TYPE=postgres.
type Config struct {
	Type string // "sqlite" (default) or "postgres"
	DSN  string // PostgreSQL connection string
	Path string // SQLite file path
}

// ConfigFromEnv reads the database configuration from the environment.
func ConfigFromEnv() Config {
	cfg := Config{
		Type: os.Getenv("DB_TYPE"),
		DSN:  os.Getenv("DATABASE_URL"),
		Path: os.Getenv("DB_PATH"),
	}
	if cfg.Type == "" {
		cfg.Type = "sqlite"
	}
	if cfg.Path == "" {
		cfg.Path = filepath.Join("data", "phrasebot.db")
	}
	return cfg
}

// Connect opens the database and initializes the schema. The returned
// handle is passed to the repositories; there is no package-global
// connection.
func Connect(cfg Config) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error

	switch cfg.Type {
	case "postgres":
		db, err = sqlx.Connect("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %v", err)
		}
	case "sqlite", "":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %v", err)
			}
		}
		db, err = sqlx.Connect("sqlite3", cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %v", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		return nil, fmt.Errorf("unknown DB_TYPE %q", cfg.Type)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			telegram_id INTEGER PRIMARY KEY,
			username TEXT,
			first_name TEXT,
			last_name TEXT,
			is_admin BOOLEAN DEFAULT false,
			level TEXT DEFAULT '',
			daily_target INTEGER DEFAULT 5,
			notification_enabled BOOLEAN DEFAULT true,
			notification_hour INTEGER DEFAULT 9,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS items (
			id %s,
			german TEXT NOT NULL,
			english TEXT NOT NULL,
			example TEXT DEFAULT '',
			frequency INTEGER DEFAULT 0,
			level TEXT DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(german, level)
		)`, serial),
		`CREATE TABLE IF NOT EXISTS memory_states (
			user_id INTEGER NOT NULL,
			item_id INTEGER NOT NULL,
			ease REAL DEFAULT 2.5,
			interval_days INTEGER DEFAULT 0,
			repetitions INTEGER DEFAULT 0,
			lapses INTEGER DEFAULT 0,
			due_at TIMESTAMP NOT NULL,
			last_reviewed_at TIMESTAMP,
			version INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, item_id),
			FOREIGN KEY (item_id) REFERENCES items(id)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_progress (
			user_id INTEGER NOT NULL,
			day TEXT NOT NULL,
			target_count INTEGER NOT NULL DEFAULT 5,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, day)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_progress_items (
			user_id INTEGER NOT NULL,
			day TEXT NOT NULL,
			item_id INTEGER NOT NULL,
			PRIMARY KEY (user_id, day, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS review_events (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			item_id INTEGER NOT NULL,
			rating INTEGER NOT NULL,
			response_ms INTEGER DEFAULT 0,
			reviewed_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_states_due ON memory_states(user_id, due_at)`,
		`CREATE INDEX IF NOT EXISTS idx_review_events_user ON review_events(user_id, reviewed_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %v", err)
		}
	}
	return nil
}
