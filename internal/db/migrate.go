package db

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// Migrate applies migrations and optional seed files.
// It creates a `schema_migrations` table to track applied migrations and applies
// any SQL files in `migrations/<dialect>/` that have not yet been recorded. Seed
// files under `seed/` are applied idempotently.
func Migrate(ctx context.Context, d *DB, migrationFS fs.FS, seedFS fs.FS) error {
	// ensure migrations table exists
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied BIGINT NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	migDir := path.Join("migrations", string(d.Dialect()))

	entries, err := fs.ReadDir(migrationFS, migDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// collect .sql files and sort
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	for _, fname := range files {
		// use filename (without extension) as migration version key
		version := strings.TrimSuffix(fname, path.Ext(fname))

		var count int
		if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version).Scan(&count); err != nil {
			return fmt.Errorf("scan migration applied count: %w", err)
		}
		if count > 0 {
			continue
		}

		b, err := fs.ReadFile(migrationFS, path.Join(migDir, fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}

		for _, stmt := range splitStatements(string(b)) {
			if _, err := d.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("exec migration %s: %w", fname, err)
			}
		}

		if _, err := d.Exec(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, ?)`, version, time.Now().UTC().UnixMilli()); err != nil {
			return fmt.Errorf("record migration %s: %w", fname, err)
		}
		d.logger.Info("db: migration applied", "version", version)
	}

	if seedFS == nil {
		return nil
	}

	return seed(ctx, d, seedFS)
}

type seedCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type seedRecurringTask struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int64  `json:"points"`
}

// seed inserts reference rows; existing ids are left untouched.
func seed(ctx context.Context, d *DB, seedFS fs.FS) error {
	now := time.Now().UTC().UnixMilli()

	if b, err := fs.ReadFile(seedFS, path.Join("seed", "categories.json")); err == nil {
		var cats []seedCategory
		if err := json.Unmarshal(b, &cats); err != nil {
			return fmt.Errorf("decode categories seed: %w", err)
		}
		for _, c := range cats {
			if _, err := d.Exec(ctx, `INSERT INTO categories (id, name) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`, c.ID, c.Name); err != nil {
				return fmt.Errorf("seed category %s: %w", c.ID, err)
			}
		}
	}

	if b, err := fs.ReadFile(seedFS, path.Join("seed", "recurring_tasks.json")); err == nil {
		var tasks []seedRecurringTask
		if err := json.Unmarshal(b, &tasks); err != nil {
			return fmt.Errorf("decode recurring tasks seed: %w", err)
		}
		for _, t := range tasks {
			if _, err := d.Exec(ctx, `INSERT INTO recurring_tasks (id, name, description, points, created_by, created) VALUES (?, ?, ?, ?, NULL, ?) ON CONFLICT (id) DO NOTHING`, t.ID, t.Name, t.Description, t.Points, now); err != nil {
				return fmt.Errorf("seed recurring task %s: %w", t.ID, err)
			}
		}
	}

	return nil
}

// splitStatements splits a migration file on `;` terminators. Line comments are
// dropped; the migrations do not contain procedural bodies.
func splitStatements(src string) []string {
	var lines []string
	for _, l := range strings.Split(src, "\n") {
		if strings.HasPrefix(strings.TrimSpace(l), "--") {
			continue
		}
		lines = append(lines, l)
	}

	var out []string
	for _, s := range strings.Split(strings.Join(lines, "\n"), ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
