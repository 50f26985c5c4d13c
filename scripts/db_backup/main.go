package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Aghostraa/abcr-deployment-v2/internal/config"
	"github.com/Aghostraa/abcr-deployment-v2/internal/db"
)

// Backs up a SQLite database with VACUUM INTO, which produces a consistent
// copy while the server keeps running. Postgres deployments use pg_dump.
func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	out := flag.String("out", "", "Backup file (default <dsn>.<timestamp>.bak)")
	flag.Parse()

	ctx := context.Background()
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Env error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	dialect, err := db.ParseDialect(cfg.Database.Driver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if dialect != db.DialectSQLite {
		fmt.Fprintln(os.Stderr, "Backup error: only sqlite databases are supported; use pg_dump for postgres")
		os.Exit(1)
	}

	dst := *out
	if dst == "" {
		dst = fmt.Sprintf("%s.%s.bak", cfg.Database.DSN, time.Now().UTC().Format("20060102T150405"))
	}
	if _, err := os.Stat(dst); err == nil {
		fmt.Fprintf(os.Stderr, "Backup error: %s already exists\n", dst)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.Database.Driver, cfg.Database.DSN, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if _, err := database.Exec(ctx, `VACUUM INTO ?`, dst); err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database backup completed: %s\n", dst)
}
