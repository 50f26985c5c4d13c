package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

type Config struct {
	Addr           string         `yaml:"addr"`
	JWTSecret      string         `yaml:"jwt_secret"`
	APITimeout     time.Duration  `yaml:"timeout"`
	TokenDuration  time.Duration  `yaml:"token_duration"`
	Database       DatabaseConfig `yaml:"database"`
	MigrateOnStart bool           `yaml:"migrate_on_start"`
	Timezone       string         `yaml:"timezone"`
	LogLevel       string         `yaml:"log_level"`
	Points         PointsConfig   `yaml:"points"`
	Jobs           JobsConfig     `yaml:"jobs"`
	CookieSecure   bool           `yaml:"cookie_secure"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// PointsConfig holds the fixed awards that are not derived from a task.
type PointsConfig struct {
	EventAttendance int64 `yaml:"event_attendance"`
	WeeklyCheckin   int64 `yaml:"weekly_checkin"`
}

type JobsConfig struct {
	Workers  int           `yaml:"workers"`
	Interval time.Duration `yaml:"interval"`
}

// LoadEnvFile loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:          getEnv("CLUB_ADDR", ":8080"),
		JWTSecret:     getEnv("CLUB_JWT_SECRET", insecureJWTSecret),
		APITimeout:    15 * time.Second,
		TokenDuration: 24 * time.Hour,
		Database: DatabaseConfig{
			Driver: getEnv("CLUB_DATABASE_DRIVER", "sqlite"),
			DSN:    getEnv("CLUB_DATABASE_DSN", "club.db"),
		},
		MigrateOnStart: getEnvBool("CLUB_MIGRATE_ON_START", true),
		Timezone:       getEnv("CLUB_TIMEZONE", "Europe/Berlin"),
		LogLevel:       getEnv("CLUB_LOG_LEVEL", "info"),
		Points: PointsConfig{
			EventAttendance: 20,
			WeeklyCheckin:   10,
		},
		Jobs: JobsConfig{
			Workers:  2,
			Interval: time.Hour,
		},
		CookieSecure: getEnvBool("CLUB_COOKIE_SECURE", false),
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks the configuration and fills zero durations with defaults.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret must not be empty")
	}
	if c.JWTSecret == insecureJWTSecret && os.Getenv("CLUB_ENV") != "development" {
		return errors.New("jwt_secret uses the insecure default; set CLUB_JWT_SECRET or CLUB_ENV=development")
	}

	switch strings.ToLower(c.Database.Driver) {
	case "", "sqlite", "sqlite3", "postgres", "postgresql", "pgx":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn must not be empty")
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	if c.Points.EventAttendance <= 0 || c.Points.WeeklyCheckin <= 0 {
		return errors.New("points.event_attendance and points.weekly_checkin must be positive")
	}

	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = 24 * time.Hour
	}
	if c.Jobs.Workers <= 0 {
		c.Jobs.Workers = 1
	}
	if c.Jobs.Interval <= 0 {
		c.Jobs.Interval = time.Hour
	}

	return nil
}

// Location resolves the club timezone used for calendar-day rules.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
