package sqlstore

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS product_templates (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		list_price  NUMERIC(16,4) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS product_variants (
		id          BIGSERIAL PRIMARY KEY,
		template_id BIGINT NOT NULL REFERENCES product_templates(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		price_extra NUMERIC(16,4) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sale_orders (
		id             BIGSERIAL PRIMARY KEY,
		name           TEXT NOT NULL,
		state          TEXT NOT NULL DEFAULT 'draft',
		salesperson_id BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sale_order_lines (
		id              BIGSERIAL PRIMARY KEY,
		order_id        BIGINT NOT NULL REFERENCES sale_orders(id) ON DELETE CASCADE,
		product_id      BIGINT NOT NULL REFERENCES product_variants(id),
		sequence        INTEGER NOT NULL DEFAULT 10,
		name            TEXT NOT NULL DEFAULT '',
		product_uom_qty DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (product_uom_qty >= 0),
		price_unit      NUMERIC(16,4) NOT NULL DEFAULT 0 CHECK (price_unit >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS sale_order_lines_product_id_idx ON sale_order_lines (product_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS product_templates (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		list_price  NUMERIC NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS product_variants (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		template_id INTEGER NOT NULL REFERENCES product_templates(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		price_extra NUMERIC NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sale_orders (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		name           TEXT NOT NULL,
		state          TEXT NOT NULL DEFAULT 'draft',
		salesperson_id INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sale_order_lines (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id        INTEGER NOT NULL REFERENCES sale_orders(id) ON DELETE CASCADE,
		product_id      INTEGER NOT NULL REFERENCES product_variants(id),
		sequence        INTEGER NOT NULL DEFAULT 10,
		name            TEXT NOT NULL DEFAULT '',
		product_uom_qty REAL NOT NULL DEFAULT 0 CHECK (product_uom_qty >= 0),
		price_unit      NUMERIC NOT NULL DEFAULT 0 CHECK (price_unit >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS sale_order_lines_product_id_idx ON sale_order_lines (product_id)`,
}

// Migrate creates the tables when they do not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	var stmts []string
	switch r.db.DriverName() {
	case "postgres", "pgx":
		stmts = postgresSchema
	case "sqlite", "sqlite3":
		stmts = append([]string{`PRAGMA foreign_keys = ON`}, sqliteSchema...)
	default:
		return fmt.Errorf("sqlstore: no schema for driver %q", r.db.DriverName())
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: migrate: %w", err)
		}
	}
	return nil
}
