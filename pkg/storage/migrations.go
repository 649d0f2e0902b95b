package storage

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// migrations are applied in order; version n is migrations[n-1].
var migrations = []string{
	// 1: recorded metrics and budgets
	`CREATE TABLE IF NOT EXISTS daily_metrics (
		id          TEXT PRIMARY KEY,
		date        TEXT NOT NULL,
		channel     TEXT NOT NULL,
		spend       REAL NOT NULL DEFAULT 0.0 CHECK(spend >= 0),
		conversions INTEGER NOT NULL DEFAULT 0 CHECK(conversions >= 0),
		revenue     REAL NOT NULL DEFAULT 0.0 CHECK(revenue >= 0),
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(date, channel)
	);

	CREATE INDEX IF NOT EXISTS idx_metrics_date ON daily_metrics(date);
	CREATE INDEX IF NOT EXISTS idx_metrics_channel ON daily_metrics(channel);

	CREATE TABLE IF NOT EXISTS budgets (
		period     TEXT PRIMARY KEY,
		amount_usd REAL NOT NULL CHECK(amount_usd >= 0),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,

	// 2: reports and alert cooldown history
	`CREATE TABLE IF NOT EXISTS reports (
		id             TEXT PRIMARY KEY,
		period         TEXT NOT NULL,
		date           DATETIME NOT NULL,
		overall_status TEXT NOT NULL,
		partial_data   INTEGER NOT NULL DEFAULT 0,
		body           TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_date ON reports(date);

	CREATE TABLE IF NOT EXISTS alert_history (
		dimension    TEXT NOT NULL,
		level        TEXT NOT NULL DEFAULT '',
		last_sent_at INTEGER NOT NULL,
		sent_count   INTEGER NOT NULL DEFAULT 0,
		last_level   TEXT NOT NULL,
		PRIMARY KEY (dimension, level)
	);`,
}

// runMigrations applies pending schema migrations, each in its own
// transaction together with its schema_migrations row.
func runMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var applied int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&applied); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for version := applied + 1; version <= len(migrations); version++ {
		if err := applyMigration(ctx, db, version); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, version int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migrations[version-1]); err != nil {
		return fmt.Errorf("run migration %d: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("record migration %d: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", version, err)
	}
	return nil
}
