// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
)

// Identity provider kinds accepted by SWASTYASETU_IDENTITY_PROVIDER.
const (
	ProviderGoTrue = "gotrue"
	ProviderLocal  = "local"
)

const defaultConsoleNotice = "**Statements run exactly as typed and are committed immediately.** " +
	"There is no preview and no undo: `UPDATE`, `DELETE` and DDL change the database for good."

// Config holds the application configuration loaded from environment variables.
type Config struct {
	IdentityProvider string
	SupabaseURL      string
	SupabaseKey      string

	Database Database

	ExecutionMode model.ExecutionMode
	QueryTimeout  time.Duration
	ConsoleNotice string

	SessionTTL    time.Duration
	SessionSecret []byte

	ListenAddr string
	DBPath     string
	LogLevel   slog.Level
}

// Database holds the query console connection settings.
type Database struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// Configured reports whether every required connection setting is present.
func (d Database) Configured() bool {
	return d.Host != "" && d.Name != "" && d.User != "" && d.Password != ""
}

// DSN renders the settings as a lib/pq key/value connection string.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		quoteDSN(d.Host), d.Port, quoteDSN(d.Name), quoteDSN(d.User), quoteDSN(d.Password), quoteDSN(d.SSLMode))
}

// quoteDSN quotes a key/value DSN value when it contains spaces, quotes or
// backslashes, or is empty.
func quoteDSN(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// HasIdentityProvider reports whether the configured identity provider has
// everything it needs. The local provider needs nothing beyond the app DB.
func (c *Config) HasIdentityProvider() bool {
	if c.IdentityProvider == ProviderLocal {
		return true
	}
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file (or the file named by SWASTYASETU_ENV_FILE) is loaded first when present;
// variables already set in the environment win.
// Missing identity provider or console database settings are not errors: the affected
// page reports them instead. Malformed values are errors.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	provider := ProviderGoTrue
	if v, ok := os.LookupEnv("SWASTYASETU_IDENTITY_PROVIDER"); ok && v != "" {
		switch v {
		case ProviderGoTrue, ProviderLocal:
			provider = v
		default:
			return nil, fmt.Errorf("SWASTYASETU_IDENTITY_PROVIDER has invalid value %q (want %q or %q)", v, ProviderGoTrue, ProviderLocal)
		}
	}

	dbPort := 5432
	if v, ok := os.LookupEnv("DB_PORT"); ok && v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 65535 {
			return nil, fmt.Errorf("DB_PORT has invalid port %q", v)
		}
		dbPort = parsed
	}

	sslMode := "require"
	if v, ok := os.LookupEnv("DB_SSLMODE"); ok && v != "" {
		sslMode = v
	}

	mode := model.ExecutionModeTrusted
	if v, ok := os.LookupEnv("SWASTYASETU_EXECUTION_MODE"); ok && v != "" {
		parsed, err := model.ParseExecutionMode(v)
		if err != nil {
			return nil, fmt.Errorf("SWASTYASETU_EXECUTION_MODE: %w", err)
		}
		mode = parsed
	}

	queryTimeout, err := durationEnv("SWASTYASETU_QUERY_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	sessionTTL, err := durationEnv("SWASTYASETU_SESSION_TTL", 12*time.Hour)
	if err != nil {
		return nil, err
	}

	notice := defaultConsoleNotice
	if v, ok := os.LookupEnv("SWASTYASETU_CONSOLE_NOTICE"); ok && strings.TrimSpace(v) != "" {
		notice = v
	}

	var secret []byte
	if v := os.Getenv("SWASTYASETU_SESSION_SECRET"); v != "" {
		if len(v) < 32 {
			return nil, errors.New("SWASTYASETU_SESSION_SECRET must be at least 32 characters")
		}
		secret = []byte(v)
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("SWASTYASETU_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "swastyasetu.db"
	if v, ok := os.LookupEnv("SWASTYASETU_DB_PATH"); ok {
		dbPath = v
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("SWASTYASETU_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("SWASTYASETU_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	return &Config{
		IdentityProvider: provider,
		SupabaseURL:      strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseKey:      os.Getenv("SUPABASE_KEY"),
		Database: Database{
			Host:     os.Getenv("DB_HOST"),
			Port:     dbPort,
			Name:     os.Getenv("DB_NAME"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			SSLMode:  sslMode,
		},
		ExecutionMode: mode,
		QueryTimeout:  queryTimeout,
		ConsoleNotice: notice,
		SessionTTL:    sessionTTL,
		SessionSecret: secret,
		ListenAddr:    listenAddr,
		DBPath:        dbPath,
		LogLevel:      logLevel,
	}, nil
}

func loadEnvFile() error {
	path := ".env"
	explicit := false
	if v, ok := os.LookupEnv("SWASTYASETU_ENV_FILE"); ok && v != "" {
		path = v
		explicit = true
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	// A missing default .env is normal; a missing explicit file is not.
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, parsed)
	}
	return parsed, nil
}
