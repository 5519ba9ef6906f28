// ABOUTME: Configuration loader for the tutor CLI
// ABOUTME: Loads settings from environment variables and an optional .env file

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL          = "http://localhost:8000"
	DefaultMaxOutputTokens = 300
	DefaultHistoryLimit    = 100
	DefaultThreadsLimit    = 300

	StorageFile   = "file"
	StorageSQLite = "sqlite"

	appDirName = "invayl-tutor"
)

type Config struct {
	APIURL    string
	ConfigDir string
	Storage   string // file or sqlite

	MaxOutputTokens int
	HistoryLimit    int
	ThreadsLimit    int
	Timeout         time.Duration // 0 = no client-side timeout

	// AllProxy routes backend traffic through an SSH jump host.
	// Format: ssh+socks5://user@host:port?private-key=/path/to/key
	AllProxy string
}

// Load reads .env (if present) and then the process environment.
// Variables already present in the environment take precedence over .env.
func Load() (*Config, error) {
	LoadEnv(".env")

	cfg := &Config{
		APIURL:          strings.TrimRight(getEnv("TUTOR_API_URL", DefaultAPIURL), "/"),
		ConfigDir:       getEnv("TUTOR_CONFIG_DIR", DefaultConfigDir()),
		Storage:         strings.ToLower(getEnv("TUTOR_STORAGE", StorageFile)),
		MaxOutputTokens: getEnvInt("TUTOR_MAX_OUTPUT_TOKENS", DefaultMaxOutputTokens),
		HistoryLimit:    getEnvInt("TUTOR_HISTORY_LIMIT", DefaultHistoryLimit),
		ThreadsLimit:    getEnvInt("TUTOR_THREADS_LIMIT", DefaultThreadsLimit),
		Timeout:         time.Duration(getEnvInt("TUTOR_TIMEOUT", 60)) * time.Second,
		AllProxy:        os.Getenv("TUTOR_ALL_PROXY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and required fields.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("TUTOR_API_URL cannot be empty")
	}
	if !strings.Contains(c.APIURL, "://") {
		return fmt.Errorf("TUTOR_API_URL must include a scheme, got %q", c.APIURL)
	}
	if c.Storage != StorageFile && c.Storage != StorageSQLite {
		return fmt.Errorf("TUTOR_STORAGE must be %q or %q, got %q", StorageFile, StorageSQLite, c.Storage)
	}
	for _, v := range []struct {
		name  string
		value int
		max   int
	}{
		{"TUTOR_MAX_OUTPUT_TOKENS", c.MaxOutputTokens, 32768},
		{"TUTOR_HISTORY_LIMIT", c.HistoryLimit, 10000},
		{"TUTOR_THREADS_LIMIT", c.ThreadsLimit, 10000},
	} {
		if v.value < 1 || v.value > v.max {
			return fmt.Errorf("%s must be between 1 and %d, got %d", v.name, v.max, v.value)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("TUTOR_TIMEOUT cannot be negative")
	}
	return nil
}

// LoadEnv loads variables from the given dotenv files without overriding
// the existing environment. A missing file is not an error.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file, using environment only", "error", err)
	}
}

// DefaultConfigDir returns the default config directory following XDG base directory conventions
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appDirName)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
