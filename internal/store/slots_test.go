package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"visitorlog/internal/store"
)

// openTestSQLite returns a migrated in-memory SQLite database that is closed
// when the test finishes.
func openTestSQLite(t *testing.T) *store.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:test_%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", t.Name())
	db, err := store.OpenSQLiteDSN(context.Background(), dsn)
	if err != nil {
		t.Fatalf("openTestSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func exerciseSlots(t *testing.T, s store.Slots) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "visitors"); err != nil || ok {
		t.Fatalf("empty Get: ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "visitors", `[{"id":"a"}]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(ctx, "visitors")
	if err != nil || !ok {
		t.Fatalf("Get after Set: ok=%v err=%v", ok, err)
	}
	if v != `[{"id":"a"}]` {
		t.Errorf("got %q", v)
	}

	if err := s.Set(ctx, "visitors", `[]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, _, _ = s.Get(ctx, "visitors")
	if v != `[]` {
		t.Errorf("overwrite not applied, got %q", v)
	}

	if err := s.Clear(ctx, "visitors"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "visitors"); ok {
		t.Error("expected slot cleared")
	}

	// clearing an absent slot is not an error
	if err := s.Clear(ctx, "never-set"); err != nil {
		t.Errorf("Clear absent: %v", err)
	}
}

func TestMemorySlots(t *testing.T) {
	exerciseSlots(t, store.NewMemory())
}

func TestSQLiteSlots(t *testing.T) {
	exerciseSlots(t, store.NewSQLSlots(openTestSQLite(t)))
}

func TestSQLite_MigrateIsIdempotent(t *testing.T) {
	db := openTestSQLite(t)
	if err := store.Migrate(context.Background(), db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	var n int
	if err := db.Client.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 applied migration, got %d", n)
	}
}

func TestMemory_KeysByPrefix(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "session:a:flag", "true")
	_ = m.Set(ctx, "session:b:flag", "true")
	_ = m.Set(ctx, "visitors", "[]")

	if got := len(m.Keys("session:")); got != 2 {
		t.Errorf("expected 2 session keys, got %d", got)
	}
}

func TestOpen_Memory(t *testing.T) {
	b, err := store.Open(context.Background(), store.OpenOptions{Backend: "memory"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()
	exerciseSlots(t, b.Slots)
	if status, ok := b.Health(context.Background()); !ok || len(status) != 0 {
		t.Errorf("health = %v %v", status, ok)
	}
}

func TestOpen_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "visitorlog.db")
	b, err := store.Open(context.Background(), store.OpenOptions{Backend: "sqlite", SQLitePath: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()
	exerciseSlots(t, b.Slots)
	if status, ok := b.Health(context.Background()); !ok || !status["db"] {
		t.Errorf("health = %v %v", status, ok)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := store.Open(context.Background(), store.OpenOptions{Backend: "localstorage"}); err == nil {
		t.Error("expected error")
	}
}
