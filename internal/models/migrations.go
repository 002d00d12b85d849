package models

import (
	"fmt"

	"gorm.io/gorm"
)

// migration is a single schema upgrade step. Versions increase
// monotonically and steps are additive only: a migration may create a
// table or index that is absent, never drop or rewrite existing data.
type migration struct {
	version int
	name    string
	up      string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_photos_table",
		up: `
			CREATE TABLE IF NOT EXISTS photos (
				id INTEGER PRIMARY KEY,
				date TEXT NOT NULL,
				src TEXT NOT NULL,
				alt TEXT NOT NULL DEFAULT '',
				width INTEGER NOT NULL DEFAULT 0,
				height INTEGER NOT NULL DEFAULT 0,
				file_size INTEGER NOT NULL DEFAULT 0,
				is_uploaded INTEGER NOT NULL DEFAULT 0
			);

			CREATE INDEX IF NOT EXISTS idx_photos_date
			ON photos(date DESC);
		`,
	},
	{
		version: 2,
		name:    "create_thumbnails_table",
		up: `
			CREATE TABLE IF NOT EXISTS thumbnails (
				id INTEGER PRIMARY KEY,
				data TEXT NOT NULL
			);
		`,
	},
}

// Migrate applies all pending migrations, each in its own transaction.
// Safe to call on every open; already-applied versions are skipped.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.up).Error; err != nil {
				return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
			}
			if err := tx.Exec(
				"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
				m.version, m.name,
			).Error; err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration version, 0 when the
// database is fresh.
func SchemaVersion(db *gorm.DB) (int, error) {
	var current int
	err := db.Raw("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	return current, nil
}

// DropAll destroys every gallery table including migration bookkeeping.
// Only the hard-reset recovery path calls this.
func DropAll(db *gorm.DB) error {
	for _, table := range []string{"thumbnails", "photos", "schema_migrations"} {
		if err := db.Exec("DROP TABLE IF EXISTS " + table).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
