package migrate

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStepsAreOrdered(t *testing.T) {
	steps, err := Steps()
	if err != nil {
		t.Fatalf("Steps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(steps))
	}
	for i, s := range steps {
		if s.Version != i+1 {
			t.Errorf("step %d has version %d", i, s.Version)
		}
	}
}

func TestRunCreatesHistoryTables(t *testing.T) {
	db := openTestDB(t)
	if err := NewRunner(db).Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, table := range []string{"realtime_samples", "analytics_daily", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	r := NewRunner(db)
	ctx := context.Background()

	before, err := r.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(before) != 2 {
		t.Errorf("fresh db pending = %d, want 2", len(before))
	}

	for i := 0; i < 2; i++ {
		if err := r.RunContext(ctx); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	v, err := r.Version(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	after, err := r.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if v != 2 || len(after) != 0 {
		t.Errorf("version=%d pending=%d, want 2 and 0", v, len(after))
	}
}
