package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	AdminKeySalt  string
	MapSlugSalt   string
	VisitorSalt   string
	StorageDir    string
	PublicBaseURL string
	SeedFile      string
	EnvFile       string
	PrintAdminKey bool
}

// ParseFlags validates flags and fills the rest from the environment.
// An optional .env file is loaded first; variables already set win.
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("lucianvotes", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.StorageDir, "storage", "", "Directory for uploaded files")
	fs.StringVar(&cfg.PublicBaseURL, "base-url", "", "Public base URL used in share links")
	fs.StringVar(&cfg.SeedFile, "seed", "", "YAML file with parties and constituencies")
	fs.StringVar(&cfg.EnvFile, "env", ".env", "Optional .env file")
	fs.BoolVar(&cfg.PrintAdminKey, "print-admin-key", false, "Print the admin key and exit")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")
	fs.StringVar(&cfg.MapSlugSalt, "slug-salt", "", "Map share slug salt (prefer env)")
	fs.StringVar(&cfg.VisitorSalt, "visitor-salt", "", "Visitor IP hash salt (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := loadEnvFile(cfg.EnvFile); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = DatabaseSQLite
		}
	}
	if cfg.DatabaseType != DatabaseSQLite && cfg.DatabaseType != DatabasePostgres {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.StorageDir == "" {
		cfg.StorageDir = envOr("STORAGE_DIR", "uploads")
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = envOr("PUBLIC_BASE_URL", "http://localhost:"+strconv.Itoa(cfg.Port))
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	if cfg.SeedFile == "" {
		cfg.SeedFile = os.Getenv("SEED_FILE")
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	if cfg.MapSlugSalt == "" {
		cfg.MapSlugSalt = os.Getenv("MAP_SLUG_SALT")
	}
	if cfg.MapSlugSalt == "" {
		return Config{}, errors.New("MAP_SLUG_SALT required")
	}

	if cfg.VisitorSalt == "" {
		cfg.VisitorSalt = envOr("VISITOR_SALT", cfg.MapSlugSalt)
	}

	return cfg, nil
}

// loadEnvFile loads KEY=value pairs without overriding the process
// environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
