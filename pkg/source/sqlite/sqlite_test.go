package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/tablemap/tablemap/pkg/schema"
)

func openTestDB(t *testing.T) *Provider {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	ddl := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT
		)`,
		`CREATE UNIQUE INDEX idx_users_email ON users(email)`,
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			total REAL
		)`,
		`CREATE VIEW order_totals AS SELECT user_id, SUM(total) AS total FROM orders GROUP BY user_id`,
		`INSERT INTO users (email, name) VALUES ('a@x.test', 'a'), ('b@x.test', 'b')`,
		`INSERT INTO orders (user_id, total) VALUES (1, 9.5), (1, 1.5), (2, 4.0)`,
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	p, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestSnapshot(t *testing.T) {
	p := openTestDB(t)
	snap, err := p.Snapshot()
	if err != nil {
		t.Fatal(err)
	}

	tables := snap.Entities[schema.CategoryTable]
	if len(tables) != 2 {
		t.Fatalf("got %d tables, want 2", len(tables))
	}
	views := snap.Entities[schema.CategoryView]
	if len(views) != 1 || views[0].Name != "order_totals" {
		t.Fatalf("views = %v, want order_totals", views)
	}

	users := snap.Entity("users")
	if users == nil {
		t.Fatal("users not in snapshot")
	}
	if !users.HasMeta || len(users.Columns) != 3 {
		t.Fatalf("users meta: HasMeta=%v columns=%v", users.HasMeta, users.Columns)
	}
	if users.Fingerprint == "" || users.Identity == "" {
		t.Error("missing fingerprint or identity")
	}
	for _, col := range users.Columns {
		switch col.Name {
		case "email":
			if col.Nullable {
				t.Error("email should be NOT NULL")
			}
		case "name":
			if !col.Nullable {
				t.Error("name should be nullable")
			}
		}
	}
}

func TestIdentityStableAcrossSnapshots(t *testing.T) {
	p := openTestDB(t)
	s1, err := p.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	s2, err := p.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	e1 := s1.Entity("orders")
	e2 := s2.Entity("orders")
	if e1.Identity != e2.Identity {
		t.Errorf("identity changed between snapshots: %s vs %s", e1.Identity, e2.Identity)
	}
	if e1.Fingerprint != e2.Fingerprint {
		t.Errorf("fingerprint changed for identical SQL")
	}
}

func TestKeys(t *testing.T) {
	p := openTestDB(t)

	primary, foreign, err := p.Keys("orders")
	if err != nil {
		t.Fatal(err)
	}
	if len(primary) != 1 || len(primary[0]) != 1 || primary[0][0] != "id" {
		t.Errorf("orders primary = %v, want [[id]]", primary)
	}
	if len(foreign) != 1 {
		t.Fatalf("orders foreign = %v, want one key", foreign)
	}
	if foreign[0].Table != "users" || len(foreign[0].Columns) != 1 || foreign[0].Columns[0] != "user_id" {
		t.Errorf("foreign key = %+v, want user_id -> users", foreign[0])
	}

	primary, _, err = p.Keys("users")
	if err != nil {
		t.Fatal(err)
	}
	// Declared primary key plus the unique email index.
	if len(primary) != 2 {
		t.Fatalf("users key groups = %v, want pk and unique index", primary)
	}
	if primary[1][0] != "email" {
		t.Errorf("unique group = %v, want [email]", primary[1])
	}
}

func TestRelated(t *testing.T) {
	p := openTestDB(t)
	related, err := p.Related(schema.CategoryTable, "users")
	if err != nil {
		t.Fatal(err)
	}
	if len(related) != 1 || related[0] != "orders" {
		t.Errorf("related = %v, want [orders]", related)
	}
	if rel, _ := p.Related(schema.CategoryView, "order_totals"); rel != nil {
		t.Errorf("views have no relations, got %v", rel)
	}
}

func TestStats(t *testing.T) {
	p := openTestDB(t)
	p.CollectStats = true
	snap, err := p.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	orders := snap.Entity("orders")
	if !orders.Stats.HasRows || orders.Stats.RowCount != 3 {
		t.Errorf("orders stats = %+v, want 3 rows", orders.Stats)
	}
}

func TestOpenRejectsBadPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Error("expected error for missing file in read-only mode")
	}
}
