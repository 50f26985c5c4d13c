package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	dbfs "github.com/Aghostraa/abcr-deployment-v2/db"
	"github.com/Aghostraa/abcr-deployment-v2/internal/config"
	"github.com/Aghostraa/abcr-deployment-v2/internal/db"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	noSeed := flag.Bool("no-seed", false, "Skip seeding categories and recurring tasks")
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
	database, err := db.New(ctx, cfg.Database.Driver, cfg.Database.DSN, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	var seed fs.FS = dbfs.SeedFiles
	if *noSeed {
		seed = nil
	}
	if err := db.Migrate(ctx, database, dbfs.Migrations, seed); err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database initialized successfully (%s).\n", database.Dialect())
}
