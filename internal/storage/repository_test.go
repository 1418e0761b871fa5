package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"tariffsync/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "tariffs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testTariff(id, name string, cents int64) core.Tariff {
	raw, _ := json.Marshal(map[string]any{
		"tariff_id": id,
		"name":      name,
		"price":     float64(cents) / 100,
		"zone":      "EU",
	})
	return core.Tariff{
		TariffID: id,
		Name:     name,
		Price:    core.Money{Cents: cents},
		Raw:      raw,
	}
}

func TestUpsertTariffs_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	date := core.NewDate(2025, 6, 10)

	tariff := testTariff("T1", "Box Small", 1250)
	if err := repo.UpsertTariffs(ctx, []core.Tariff{tariff}, date); err != nil {
		t.Fatalf("UpsertTariffs: %v", err)
	}

	rows, err := repo.TariffsByDate(ctx, date)
	if err != nil {
		t.Fatalf("TariffsByDate: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].TariffID != "T1" || rows[0].Name != "Box Small" || rows[0].Price.Cents != 1250 {
		t.Errorf("unexpected row: %+v", rows[0])
	}
}

func TestUpsertTariffs_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	date := core.NewDate(2025, 6, 10)

	tariffs := []core.Tariff{
		testTariff("T1", "Box Small", 1250),
		testTariff("T2", "Box Large", 9990),
	}

	if err := repo.UpsertTariffs(ctx, tariffs, date); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repo.UpsertTariffs(ctx, tariffs, date); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	count, err := repo.CountByDate(ctx, date)
	if err != nil {
		t.Fatalf("CountByDate: %v", err)
	}
	if count != 2 {
		t.Errorf("got %d rows after double upsert, want 2", count)
	}

	rows, err := repo.TariffsByDate(ctx, date)
	if err != nil {
		t.Fatalf("TariffsByDate: %v", err)
	}
	byID := map[string]core.TariffRow{}
	for _, r := range rows {
		byID[r.TariffID] = r
	}
	if byID["T1"].Price.Cents != 1250 || byID["T2"].Price.Cents != 9990 {
		t.Errorf("field values changed after re-upsert: %+v", rows)
	}
}

func TestUpsertTariffs_UpdatesExistingRow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	date := core.NewDate(2025, 6, 10)

	if err := repo.UpsertTariffs(ctx, []core.Tariff{testTariff("T1", "Box Small", 1250)}, date); err != nil {
		t.Fatalf("initial upsert: %v", err)
	}

	var createdBefore string
	if err := repo.db.QueryRowContext(ctx,
		`SELECT created_at FROM tariffs WHERE tariff_id = 'T1'`).Scan(&createdBefore); err != nil {
		t.Fatalf("read created_at: %v", err)
	}

	// Re-fetch for the same day with a new price
	if err := repo.UpsertTariffs(ctx, []core.Tariff{testTariff("T1", "Box Small", 1500)}, date); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	rows, err := repo.TariffsByDate(ctx, date)
	if err != nil {
		t.Fatalf("TariffsByDate: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1 (no duplicate on conflict)", len(rows))
	}
	if rows[0].Price.Cents != 1500 {
		t.Errorf("price = %d, want 1500 after update", rows[0].Price.Cents)
	}

	var createdAfter string
	if err := repo.db.QueryRowContext(ctx,
		`SELECT created_at FROM tariffs WHERE tariff_id = 'T1'`).Scan(&createdAfter); err != nil {
		t.Fatalf("read created_at: %v", err)
	}
	if createdAfter != createdBefore {
		t.Errorf("created_at changed on update: %q -> %q", createdBefore, createdAfter)
	}
}

func TestUpsertTariffs_SameTariffDifferentDates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tariff := testTariff("T1", "Box Small", 1250)
	if err := repo.UpsertTariffs(ctx, []core.Tariff{tariff}, core.NewDate(2025, 6, 10)); err != nil {
		t.Fatalf("upsert day 1: %v", err)
	}
	if err := repo.UpsertTariffs(ctx, []core.Tariff{tariff}, core.NewDate(2025, 6, 11)); err != nil {
		t.Fatalf("upsert day 2: %v", err)
	}

	for _, day := range []core.Date{core.NewDate(2025, 6, 10), core.NewDate(2025, 6, 11)} {
		count, err := repo.CountByDate(ctx, day)
		if err != nil {
			t.Fatalf("CountByDate(%s): %v", day, err)
		}
		if count != 1 {
			t.Errorf("got %d rows for %s, want 1", count, day)
		}
	}
}

func TestUpsertTariffs_RejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.UpsertTariffs(ctx, []core.Tariff{{Name: "no id", Price: core.Money{Cents: 1}}}, core.NewDate(2025, 6, 10))
	if err == nil {
		t.Error("expected error for tariff without id")
	}

	err = repo.UpsertTariffs(ctx, []core.Tariff{testTariff("T1", "Box", 1)}, core.Date{})
	if err == nil {
		t.Error("expected error for zero date")
	}
}

func TestTariffsByDate_EmptyIsNotAnError(t *testing.T) {
	repo := newTestRepo(t)

	rows, err := repo.TariffsByDate(context.Background(), core.NewDate(2025, 6, 10))
	if err != nil {
		t.Fatalf("TariffsByDate on empty store: %v", err)
	}
	if rows == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}

func TestRawDataPreserved(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	date := core.NewDate(2025, 6, 10)

	raw := json.RawMessage(`{"tariff_id":"T1","name":"Box","price":1.5,"extra_field":{"nested":true}}`)
	tariff := core.Tariff{TariffID: "T1", Name: "Box", Price: core.Money{Cents: 150}, Raw: raw}
	if err := repo.UpsertTariffs(ctx, []core.Tariff{tariff}, date); err != nil {
		t.Fatalf("UpsertTariffs: %v", err)
	}

	var stored string
	if err := repo.db.QueryRowContext(ctx,
		`SELECT raw_data FROM tariffs WHERE tariff_id = 'T1'`).Scan(&stored); err != nil {
		t.Fatalf("read raw_data: %v", err)
	}
	if stored != string(raw) {
		t.Errorf("raw_data = %q, want original payload %q", stored, raw)
	}
}
