package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/craimasjien/gw2-economist-sub001/internal/logger"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

func defaultPath() string {
	// Prefer working directory so the DB is stable across go run / go build.
	// Fall back to executable directory for deployed builds.
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, "economist.db")
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "economist.db")
}

// Open opens (or creates) the SQLite database at path and runs migrations.
// An empty path uses the default location next to the working directory.
func Open(path string) (*DB, error) {
	if path == "" {
		path = defaultPath()
	}
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	// Try to read current version
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS items (
				id           INTEGER PRIMARY KEY,
				name         TEXT NOT NULL,
				rarity       TEXT NOT NULL DEFAULT '',
				vendor_value INTEGER NOT NULL DEFAULT 0
			);

			CREATE TABLE IF NOT EXISTS recipes (
				id            INTEGER PRIMARY KEY,
				output_id     INTEGER NOT NULL UNIQUE,
				output_count  INTEGER NOT NULL DEFAULT 1,
				disciplines   TEXT NOT NULL DEFAULT '[]',
				min_rating    INTEGER NOT NULL DEFAULT 0,
				craft_time_ms INTEGER NOT NULL DEFAULT 0
			);

			CREATE TABLE IF NOT EXISTS recipe_ingredients (
				recipe_id INTEGER NOT NULL REFERENCES recipes(id),
				slot      INTEGER NOT NULL,
				item_id   INTEGER NOT NULL,
				count     INTEGER NOT NULL,
				PRIMARY KEY (recipe_id, slot)
			);
			CREATE INDEX IF NOT EXISTS idx_ingredient_item ON recipe_ingredients(item_id);

			CREATE TABLE IF NOT EXISTS prices (
				item_id       INTEGER PRIMARY KEY,
				buy_price     INTEGER NOT NULL DEFAULT 0,
				buy_quantity  INTEGER NOT NULL DEFAULT 0,
				sell_price    INTEGER NOT NULL DEFAULT 0,
				sell_quantity INTEGER NOT NULL DEFAULT 0,
				updated_at    TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS price_history (
				item_id    INTEGER NOT NULL,
				timestamp  TEXT NOT NULL,
				buy_price  INTEGER NOT NULL DEFAULT 0,
				sell_price INTEGER NOT NULL DEFAULT 0,
				volume     INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (item_id, timestamp)
			);

			CREATE TABLE IF NOT EXISTS opportunities (
				rank         INTEGER PRIMARY KEY,
				item_id      INTEGER NOT NULL,
				item_name    TEXT NOT NULL,
				recipe_id    INTEGER NOT NULL,
				craft_cost   INTEGER NOT NULL,
				sell_price   INTEGER NOT NULL,
				profit       INTEGER NOT NULL,
				margin_bps   INTEGER NOT NULL,
				volume_proxy INTEGER NOT NULL,
				score        REAL NOT NULL,
				updated_at   TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_opportunity_item ON opportunities(item_id);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	return nil
}

// SqlDB returns the underlying *sql.DB for use by other packages.
func (d *DB) SqlDB() *sql.DB {
	return d.sql
}
