package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Aghostraa/abcr-deployment-v2/internal/config"
	"github.com/Aghostraa/abcr-deployment-v2/internal/db"
)

// Restores a SQLite backup over the configured database file. The server
// must be stopped.
func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	src := flag.String("from", "", "Backup file to restore")
	flag.Parse()

	if *src == "" {
		fmt.Fprintln(os.Stderr, "Restore error: -from is required")
		os.Exit(1)
	}
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Env error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if d, err := db.ParseDialect(cfg.Database.Driver); err != nil || d != db.DialectSQLite {
		fmt.Fprintln(os.Stderr, "Restore error: only sqlite databases are supported")
		os.Exit(1)
	}

	// make sure the backup is a readable database before overwriting anything
	check, err := db.New(context.Background(), cfg.Database.Driver, *src, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %s is not a usable database: %v\n", *src, err)
		os.Exit(1)
	}
	_ = check.Close()

	if err := copyFile(*src, cfg.Database.DSN); err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Database restore completed.")
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return err
	}
	return dstFile.Close()
}
