// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	APIURL            string
	DatabasePath      string
	SessionPath       string
	LogPath           string
	LogLevel          string
	LogFormat         string
	Timezone          string
	Location          *time.Location
	RefreshInterval   time.Duration
	ShiftReminder     time.Duration
	RequestsPerSecond float64
	// ConfigFile is the config.yaml that was read, if any.
	ConfigFile string
}

// Default values
const (
	defaultAPIURL            = "http://localhost:4000/api"
	defaultRefreshInterval   = 30 * time.Second
	defaultShiftHours        = 8.0
	defaultRequestsPerSecond = 5.0
	defaultLogLevel          = "info"
	defaultLogFormat         = "console"
)

// Environment keys
const (
	keyAPIURL            = "FICHAJE_API_URL"
	keyDatabasePath      = "FICHAJE_DB_PATH"
	keySessionPath       = "FICHAJE_SESSION_PATH"
	keyLogPath           = "FICHAJE_LOG_PATH"
	keyRefreshInterval   = "FICHAJE_REFRESH_INTERVAL"
	keyTimezone          = "FICHAJE_TIMEZONE"
	keyShiftHours        = "FICHAJE_SHIFT_HOURS"
	keyRequestsPerSecond = "FICHAJE_REQUESTS_PER_SECOND"
	keyLogLevel          = "LOG_LEVEL"
	keyLogFormat         = "LOG_FORMAT"
)

// Load reads configuration from .env files, an optional config.yaml and
// environment variables. Environment wins over the file.
func Load() (*Config, error) {
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getConfigDir())
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault(keyAPIURL, defaultAPIURL)
	v.SetDefault(keyDatabasePath, getDefaultDatabasePath())
	v.SetDefault(keySessionPath, getDefaultSessionPath())
	v.SetDefault(keyLogPath, getDefaultLogPath())
	v.SetDefault(keyRefreshInterval, defaultRefreshInterval.String())
	v.SetDefault(keyTimezone, "Local")
	v.SetDefault(keyShiftHours, defaultShiftHours)
	v.SetDefault(keyRequestsPerSecond, defaultRequestsPerSecond)
	v.SetDefault(keyLogLevel, defaultLogLevel)
	v.SetDefault(keyLogFormat, defaultLogFormat)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		APIURL:            strings.TrimRight(v.GetString(keyAPIURL), "/"),
		DatabasePath:      v.GetString(keyDatabasePath),
		SessionPath:       v.GetString(keySessionPath),
		LogPath:           v.GetString(keyLogPath),
		LogLevel:          v.GetString(keyLogLevel),
		LogFormat:         v.GetString(keyLogFormat),
		Timezone:          v.GetString(keyTimezone),
		RefreshInterval:   parseDuration(v.GetString(keyRefreshInterval), defaultRefreshInterval),
		RequestsPerSecond: v.GetFloat64(keyRequestsPerSecond),
		ConfigFile:        v.ConfigFileUsed(),
	}

	shiftHours := v.GetFloat64(keyShiftHours)
	if shiftHours <= 0 {
		shiftHours = defaultShiftHours
	}
	cfg.ShiftReminder = time.Duration(shiftHours * float64(time.Hour))

	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRequestsPerSecond
	}

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	if cfg.APIURL == "" {
		return nil, fmt.Errorf("%s must not be empty", keyAPIURL)
	}

	for _, p := range []string{cfg.DatabasePath, cfg.SessionPath, cfg.LogPath} {
		if err := ensureDir(filepath.Dir(p)); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadLocation resolves an IANA zone name. "Local" and "" map to time.Local.
func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return loc, nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "fichaje", ".env"),
			filepath.Join(home, ".fichaje", ".env"),
		)
	}

	// Parent directories (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"))
	}

	return paths
}

func getConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "fichaje")
}

// getDefaultDatabasePath returns the default path for the SQLite cache.
func getDefaultDatabasePath() string {
	if dir := getConfigDir(); dir != "." {
		return filepath.Join(dir, "cache.db")
	}
	return "cache.db"
}

// getDefaultSessionPath returns the default path for the session JSON file.
func getDefaultSessionPath() string {
	if dir := getConfigDir(); dir != "." {
		return filepath.Join(dir, "session.json")
	}
	return "session.json"
}

func getDefaultLogPath() string {
	if dir := getConfigDir(); dir != "." {
		return filepath.Join(dir, "fichaje.log")
	}
	return "fichaje.log"
}

// parseDuration accepts values like "30s", "1m", "500ms" or a plain number
// of seconds.
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
