// Package storage persists tariff records in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tariffsync/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores one tariff record per (tariff_id, date).
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const upsertTariffSQL = `
INSERT INTO tariffs (tariff_id, name, price_cents, raw_data, date)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (tariff_id, date) DO UPDATE SET
    name = excluded.name,
    price_cents = excluded.price_cents,
    raw_data = excluded.raw_data,
    updated_at = CURRENT_TIMESTAMP`

// UpsertTariffs inserts or updates one row per tariff for the given date.
// A conflicting (tariff_id, date) row has its name, price, and raw payload
// overwritten and updated_at bumped; created_at is left untouched. Records
// are processed sequentially and the first failure aborts, leaving earlier
// records committed. Re-running with the same input is idempotent.
func (r *SQLiteRepository) UpsertTariffs(ctx context.Context, tariffs []core.Tariff, date core.Date) error {
	if err := date.Validate(); err != nil {
		return fmt.Errorf("upsert tariffs: %w", err)
	}

	for _, t := range tariffs {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("upsert tariff %q: %w", t.TariffID, err)
		}
		raw := string(t.Raw)
		if raw == "" {
			raw = "{}"
		}
		if _, err := r.db.ExecContext(ctx, upsertTariffSQL,
			t.TariffID, t.Name, t.Price.Cents, raw, date.String()); err != nil {
			return fmt.Errorf("upsert tariff %q for %s: %w", t.TariffID, date, err)
		}
	}

	slog.InfoContext(ctx, "Tariffs saved",
		"count", len(tariffs),
		"date", date.String())

	return nil
}

// TariffsByDate returns all tariff records for the given calendar date.
// Row order is unspecified. An empty result is a valid, non-error outcome.
func (r *SQLiteRepository) TariffsByDate(ctx context.Context, date core.Date) ([]core.TariffRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tariff_id, name, price_cents FROM tariffs WHERE date = ?`, date.String())
	if err != nil {
		return nil, fmt.Errorf("query tariffs for %s: %w", date, err)
	}
	defer rows.Close()

	out := make([]core.TariffRow, 0)
	for rows.Next() {
		var row core.TariffRow
		if err := rows.Scan(&row.TariffID, &row.Name, &row.Price.Cents); err != nil {
			return nil, fmt.Errorf("scan tariff row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tariff rows: %w", err)
	}
	return out, nil
}

// CountByDate returns the number of tariff records stored for the date.
func (r *SQLiteRepository) CountByDate(ctx context.Context, date core.Date) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tariffs WHERE date = ?`, date.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tariffs for %s: %w", date, err)
	}
	return n, nil
}
