package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Aghostraa/abcr-deployment-v2/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Addr:          ":8080",
		JWTSecret:     "strongsecret",
		APITimeout:    5 * time.Second,
		TokenDuration: time.Hour,
		Database:      config.DatabaseConfig{Driver: "sqlite", DSN: "club.db"},
		Timezone:      "Europe/Berlin",
		LogLevel:      "info",
		Points:        config.PointsConfig{EventAttendance: 20, WeeklyCheckin: 10},
	}
}

func TestValidate_InsecureJWT_FailsWhenNotDevelopment(t *testing.T) {
	t.Setenv("CLUB_ENV", "production")

	cfg := validConfig()
	cfg.JWTSecret = "supersecretkey"

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to fail for insecure JWT in non-development env")
	}
}

func TestValidate_InsecureJWT_AllowsDevelopment(t *testing.T) {
	t.Setenv("CLUB_ENV", "development")

	cfg := validConfig()
	cfg.JWTSecret = "supersecretkey"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected Validate to succeed in development env, got: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Setenv("CLUB_ENV", "development")

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"empty secret", func(c *config.Config) { c.JWTSecret = "" }},
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "mysql" }},
		{"empty dsn", func(c *config.Config) { c.Database.DSN = "" }},
		{"bad timezone", func(c *config.Config) { c.Timezone = "Mars/Olympus_Mons" }},
		{"bad log level", func(c *config.Config) { c.LogLevel = "loud" }},
		{"zero attendance points", func(c *config.Config) { c.Points.EventAttendance = 0 }},
		{"negative weekly points", func(c *config.Config) { c.Points.WeeklyCheckin = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidate_FillsDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.APITimeout = 0
	cfg.TokenDuration = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed unexpectedly: %v", err)
	}
	if cfg.APITimeout <= 0 || cfg.TokenDuration <= 0 {
		t.Fatalf("expected durations to be defaulted, got %v / %v", cfg.APITimeout, cfg.TokenDuration)
	}
	if cfg.Jobs.Workers < 1 || cfg.Jobs.Interval <= 0 {
		t.Fatalf("expected jobs defaults, got %+v", cfg.Jobs)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"CLUB_ADDR", "CLUB_JWT_SECRET", "CLUB_DATABASE_DRIVER", "CLUB_DATABASE_DSN", "CLUB_TIMEZONE"} {
		t.Setenv(k, "")
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error for empty path: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected Addr: got %q want %q", cfg.Addr, ":8080")
	}
	if cfg.JWTSecret != "supersecretkey" {
		t.Fatalf("unexpected JWTSecret: got %q", cfg.JWTSecret)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "club.db" {
		t.Fatalf("unexpected Database: %+v", cfg.Database)
	}
	if cfg.APITimeout != 15*time.Second {
		t.Fatalf("unexpected APITimeout: got %v want %v", cfg.APITimeout, 15*time.Second)
	}
	if cfg.Points.EventAttendance != 20 || cfg.Points.WeeklyCheckin != 10 {
		t.Fatalf("unexpected Points: %+v", cfg.Points)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CLUB_ADDR", ":7070")
	t.Setenv("CLUB_DATABASE_DRIVER", "postgres")
	t.Setenv("CLUB_COOKIE_SECURE", "true")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("unexpected Addr: %q", cfg.Addr)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("unexpected driver: %q", cfg.Database.Driver)
	}
	if !cfg.CookieSecure {
		t.Fatalf("expected CookieSecure from env")
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("addr: \":9090\"\njwt_secret: \"filekey\"\ntimeout: \"30s\"\ntoken_duration: \"2h\"\n" +
		"database:\n  driver: postgres\n  dsn: \"postgres://club@localhost/club\"\n" +
		"points:\n  event_attendance: 25\n" +
		"jobs:\n  workers: 4\n  interval: 10m\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error for file: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Fatalf("unexpected Addr: got %q want %q", cfg.Addr, ":9090")
	}
	if cfg.JWTSecret != "filekey" {
		t.Fatalf("unexpected JWTSecret: got %q want %q", cfg.JWTSecret, "filekey")
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://club@localhost/club" {
		t.Fatalf("unexpected Database: %+v", cfg.Database)
	}
	if cfg.APITimeout != 30*time.Second {
		t.Fatalf("unexpected APITimeout: got %v want %v", cfg.APITimeout, 30*time.Second)
	}
	if cfg.TokenDuration != 2*time.Hour {
		t.Fatalf("unexpected TokenDuration: got %v want %v", cfg.TokenDuration, 2*time.Hour)
	}
	// keys absent from the file keep their defaults
	if cfg.Points.EventAttendance != 25 || cfg.Points.WeeklyCheckin != 10 {
		t.Fatalf("unexpected Points: %+v", cfg.Points)
	}
	if cfg.Jobs.Workers != 4 || cfg.Jobs.Interval != 10*time.Minute {
		t.Fatalf("unexpected Jobs: %+v", cfg.Jobs)
	}
}

func TestLoadConfig_BadPath(t *testing.T) {
	if _, err := config.LoadConfig("/path/that/does/not/exist.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent path, got nil")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("addr: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("failed to write bad yaml: %v", err)
	}

	if _, err := config.LoadConfig(path); err == nil {
		t.Fatalf("expected YAML decode error, got nil")
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := config.LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing env file should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CLUB_TEST_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CLUB_TEST_DOTENV", "")
	os.Unsetenv("CLUB_TEST_DOTENV")

	if err := config.LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("CLUB_TEST_DOTENV"); got != "loaded" {
		t.Fatalf("expected variable from env file, got %q", got)
	}
}
