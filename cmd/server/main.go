package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aghostraa/abcr-deployment-v2/api"
	dbfs "github.com/Aghostraa/abcr-deployment-v2/db"
	"github.com/Aghostraa/abcr-deployment-v2/internal/club"
	"github.com/Aghostraa/abcr-deployment-v2/internal/config"
	"github.com/Aghostraa/abcr-deployment-v2/internal/db"
	"github.com/Aghostraa/abcr-deployment-v2/internal/identity"
	"github.com/Aghostraa/abcr-deployment-v2/internal/jobs"
	"github.com/Aghostraa/abcr-deployment-v2/internal/repository/sqldb"
	"github.com/Aghostraa/abcr-deployment-v2/internal/validate"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config YAML file")
		envPath    = flag.String("env", ".env", "Path to .env file")
	)
	flag.Parse()

	if err := run(*configPath, *envPath); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(configPath, envPath string) error {
	if err := config.LoadEnvFile(envPath); err != nil {
		return err
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	logger.Info("starting club server", "version", version, "build_time", buildTime, "driver", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("closing db", "err", err)
		}
	}()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
			return err
		}
	}

	store := sqldb.New(database, logger)
	validator, err := validate.New()
	if err != nil {
		return err
	}

	svc := club.New(store, club.Options{
		Location:     loc,
		EventPoints:  cfg.Points.EventAttendance,
		WeeklyPoints: cfg.Points.WeeklyCheckin,
		Logger:       logger,
	})
	tokens := identity.NewTokens(cfg.JWTSecret, cfg.TokenDuration)
	cookies := identity.Cookies{Secure: cfg.CookieSecure}

	jobRepo := jobs.NewRepository(database)
	pool := jobs.NewWorkerPool(jobRepo, jobs.Handlers(store, jobRepo, logger), logger, cfg.Jobs.Workers)
	scheduler := jobs.NewScheduler(pool, cfg.Jobs.Interval, logger)

	jobsCtx, cancelJobs := context.WithCancel(context.Background())
	pool.Start(jobsCtx)
	scheduler.Start(jobsCtx)
	defer func() {
		cancelJobs()
		scheduler.Wait()
		pool.Stop()
	}()

	handler := api.SetupRoutes(api.Handlers{
		System:  api.NewSystemHandler(database.GetConn(), jobRepo),
		Auth:    api.NewAuthHandler(identity.NewLocalProvider(store), store, tokens, cookies, validator),
		Club:    api.NewClubHandler(svc, validator),
		Session: api.SessionMiddleware(tokens, store),
	}, version, buildTime)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server exited")
	return nil
}
