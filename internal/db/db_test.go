package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	dbpkg "github.com/Aghostraa/abcr-deployment-v2/internal/db"
)

func openTemp(t *testing.T) *dbpkg.DB {
	t.Helper()
	d, err := dbpkg.New(context.Background(), "sqlite", filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestNew_Close_GetConn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := dbpkg.New(ctx, "sqlite", ":memory:", nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if d.GetConn() == nil {
		t.Fatalf("expected non-nil sql.DB from GetConn")
	}
	if d.Dialect() != dbpkg.DialectSQLite {
		t.Fatalf("expected sqlite dialect, got %q", d.Dialect())
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestExec_QueryRow(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS items (id TEXT PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatalf("Exec create table returned error: %v", err)
	}

	if _, err := d.Exec(ctx, `INSERT INTO items (id, name) VALUES (?, ?)`, "a", "foo"); err != nil {
		t.Fatalf("Exec insert returned error: %v", err)
	}

	var name string
	if err := d.QueryRow(ctx, `SELECT name FROM items WHERE id = ?`, "a").Scan(&name); err != nil {
		t.Fatalf("QueryRow scan returned error: %v", err)
	}
	if name != "foo" {
		t.Fatalf("expected name 'foo' got %q", name)
	}
}

func TestTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	if _, err := d.Exec(ctx, `CREATE TABLE items (id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("create: %v", err)
	}

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO items (id) VALUES (?)`, "x"); err != nil {
		t.Fatalf("tx insert: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	// a second rollback after completion is a no-op
	if err := tx.Rollback(); err != nil {
		t.Fatalf("second Rollback: %v", err)
	}

	var n int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM items`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected rolled back insert, found %d rows", n)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	for _, q := range []string{
		`CREATE TABLE parents (id TEXT PRIMARY KEY)`,
		`CREATE TABLE children (id TEXT PRIMARY KEY, parent_id TEXT NOT NULL REFERENCES parents(id))`,
	} {
		if _, err := d.Exec(ctx, q); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}

	if _, err := d.Exec(ctx, `INSERT INTO children (id, parent_id) VALUES ('c', 'missing')`); err == nil {
		t.Fatalf("expected foreign key violation")
	}
}

func TestNew_BadDriver(t *testing.T) {
	if _, err := dbpkg.New(context.Background(), "mysql", "whatever", nil); err == nil {
		t.Fatalf("expected error for unsupported driver, got nil")
	}
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    dbpkg.Dialect
		wantErr bool
	}{
		{"", dbpkg.DialectSQLite, false},
		{"sqlite", dbpkg.DialectSQLite, false},
		{"SQLite3", dbpkg.DialectSQLite, false},
		{"postgres", dbpkg.DialectPostgres, false},
		{"pgx", dbpkg.DialectPostgres, false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		got, err := dbpkg.ParseDialect(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseDialect(%q) err=%v wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseDialect(%q) = %q want %q", tt.in, got, tt.want)
		}
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect dbpkg.Dialect
		in      string
		want    string
	}{
		{"sqlite untouched", dbpkg.DialectSQLite, `SELECT * FROM t WHERE a = ? AND b = ?`, `SELECT * FROM t WHERE a = ? AND b = ?`},
		{"postgres numbered", dbpkg.DialectPostgres, `SELECT * FROM t WHERE a = ? AND b = ?`, `SELECT * FROM t WHERE a = $1 AND b = $2`},
		{"quoted literal kept", dbpkg.DialectPostgres, `SELECT '?' FROM t WHERE a = ?`, `SELECT '?' FROM t WHERE a = $1`},
		{"no placeholders", dbpkg.DialectPostgres, `SELECT 1`, `SELECT 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dbpkg.Rebind(tt.dialect, tt.in); got != tt.want {
				t.Fatalf("Rebind = %q want %q", got, tt.want)
			}
		})
	}
}
