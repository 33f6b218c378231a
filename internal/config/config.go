// Package config loads process settings from flags, FORMBUILDER_* env vars
// and an optional .formbuilder.yaml file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

const defaultDSN = "file:formbuilder.db?_pragma=foreign_keys(1)"

type Config struct {
	Port        int
	Store       string
	DatabaseURL string
	Seed        bool
	SeedFile    string
	LogLevel    string
	LogFormat   string
	EventBuffer int
}

// New returns a viper instance with the defaults and search paths set.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("port", 8080)
	v.SetDefault("store", StoreSQLite)
	// Plain DATABASE_URL is honoured below FORMBUILDER_DATABASE_URL.
	v.SetDefault("database_url", envOr("DATABASE_URL", defaultDSN))
	v.SetDefault("seed", true)
	v.SetDefault("seed_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("event_buffer", 256)

	v.SetConfigName(".formbuilder") // .yaml is implicit
	v.SetEnvPrefix("FORMBUILDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if override := os.Getenv("FORMBUILDER_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	return v
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// BindFlags lets command-line flags override file and env values. Flags are
// looked up by key, with dots replaced by dashes.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, key := range []string{"port", "store", "database_url", "seed", "seed_file", "log.level", "log.format", "event_buffer"} {
		name := strings.NewReplacer(".", "-", "_", "-").Replace(key)
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}
	return nil
}

// Load reads the config file if one exists and returns the resolved settings.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := Config{
		Port:        v.GetInt("port"),
		Store:       strings.ToLower(v.GetString("store")),
		DatabaseURL: v.GetString("database_url"),
		Seed:        v.GetBool("seed"),
		SeedFile:    v.GetString("seed_file"),
		LogLevel:    v.GetString("log.level"),
		LogFormat:   strings.ToLower(v.GetString("log.format")),
		EventBuffer: v.GetInt("event_buffer"),
	}
	if cfg.SeedFile != "" {
		path, err := homedir.Expand(cfg.SeedFile)
		if err != nil {
			return Config{}, fmt.Errorf("expanding seed_file: %w", err)
		}
		cfg.SeedFile = path
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Store {
	case StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unsupported store %q (expected sqlite or memory)", c.Store)
	}
	if c.Store == StoreSQLite && c.DatabaseURL == "" {
		return errors.New("database_url is required for the sqlite store")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q (expected text or json)", c.LogFormat)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("event_buffer must be positive, got %d", c.EventBuffer)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// Logger builds the process logger writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
