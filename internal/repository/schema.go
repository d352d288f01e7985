package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Amounts are stored as TEXT so sqlite and postgres keep exact decimals.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS analysis_run (
		id              TEXT PRIMARY KEY,
		status          TEXT NOT NULL,
		started_at      TEXT NOT NULL,
		finished_at     TEXT NOT NULL DEFAULT '',
		documents       INTEGER NOT NULL DEFAULT 0,
		processed       INTEGER NOT NULL DEFAULT 0,
		failed          INTEGER NOT NULL DEFAULT 0,
		items           INTEGER NOT NULL DEFAULT 0,
		rule_hits       INTEGER NOT NULL DEFAULT 0,
		ai_calls        INTEGER NOT NULL DEFAULT 0,
		narrative       TEXT NOT NULL DEFAULT '',
		report_location TEXT NOT NULL DEFAULT '',
		error           TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS invoice (
		run_id       TEXT NOT NULL REFERENCES analysis_run(id) ON DELETE CASCADE,
		id           TEXT NOT NULL,
		provider     TEXT NOT NULL DEFAULT '',
		invoice_date TEXT NOT NULL DEFAULT '',
		total        TEXT NOT NULL,
		PRIMARY KEY (run_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS line_item (
		run_id      TEXT NOT NULL,
		invoice_id  TEXT NOT NULL,
		position    INTEGER NOT NULL,
		number      TEXT NOT NULL,
		description TEXT NOT NULL,
		quantity    TEXT NOT NULL,
		unit_price  TEXT NOT NULL,
		discount    TEXT NOT NULL,
		tax         TEXT NOT NULL,
		line_price  TEXT NOT NULL,
		item_price  TEXT NOT NULL,
		category    TEXT NOT NULL,
		PRIMARY KEY (run_id, invoice_id, position),
		FOREIGN KEY (run_id, invoice_id) REFERENCES invoice(run_id, id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS run_total (
		run_id    TEXT NOT NULL REFERENCES analysis_run(id) ON DELETE CASCADE,
		dimension TEXT NOT NULL,
		bucket    TEXT NOT NULL,
		amount    TEXT NOT NULL,
		PRIMARY KEY (run_id, dimension, bucket)
	)`,
}

// Migrate creates the tables if they are missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
