// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // zone data for scratch images
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// MasterKey seals stored credentials. Empty means the insecure placeholder
	// key will be used.
	MasterKey        string
	Provider         string
	KeyListPrefix    string
	KeyDelimiter     string
	MaxNumberedLists int
	ResetLocation    *time.Location
	ListenAddr       string
	DBPath           string
	// MaintenanceInterval is how often the server runs the reset check and
	// import in the background.
	MaintenanceInterval time.Duration
}

// HasMasterKey returns true when a master key was configured.
func (c *Config) HasMasterKey() bool {
	return c.MasterKey != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// CREDPOOL_MASTER_KEY is optional; when absent the pool runs with a placeholder key
// and logs a warning. Optional variables with defaults: CREDPOOL_PROVIDER (gemini),
// CREDPOOL_KEY_LIST_PREFIX (CREDPOOL_API_KEYS), CREDPOOL_KEY_DELIMITER (,),
// CREDPOOL_MAX_NUMBERED_LISTS (10), CREDPOOL_RESET_TIMEZONE (Asia/Kolkata),
// CREDPOOL_LISTEN_ADDR (127.0.0.1:8080), CREDPOOL_DB_PATH (credpool.db),
// CREDPOOL_MAINTENANCE_INTERVAL (1m, minimum 1s).
func Load() (*Config, error) {
	provider := "gemini"
	if v, ok := os.LookupEnv("CREDPOOL_PROVIDER"); ok && v != "" {
		provider = v
	}

	prefix := "CREDPOOL_API_KEYS"
	if v, ok := os.LookupEnv("CREDPOOL_KEY_LIST_PREFIX"); ok && v != "" {
		prefix = v
	}

	delimiter := ","
	if v, ok := os.LookupEnv("CREDPOOL_KEY_DELIMITER"); ok && v != "" {
		delimiter = v
	}

	maxLists := 10
	if v, ok := os.LookupEnv("CREDPOOL_MAX_NUMBERED_LISTS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("CREDPOOL_MAX_NUMBERED_LISTS must be a non-negative integer, got %q", v)
		}
		maxLists = parsed
	}

	tzName := "Asia/Kolkata"
	if v, ok := os.LookupEnv("CREDPOOL_RESET_TIMEZONE"); ok && v != "" {
		tzName = v
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("CREDPOOL_RESET_TIMEZONE has invalid timezone %q: %w", tzName, err)
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("CREDPOOL_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "credpool.db"
	if v, ok := os.LookupEnv("CREDPOOL_DB_PATH"); ok {
		dbPath = v
	}

	interval := time.Minute
	if v, ok := os.LookupEnv("CREDPOOL_MAINTENANCE_INTERVAL"); ok && v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CREDPOOL_MAINTENANCE_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed < time.Second {
			return nil, fmt.Errorf("CREDPOOL_MAINTENANCE_INTERVAL must be at least 1s, got %s", parsed)
		}
		interval = parsed
	}

	return &Config{
		MasterKey:        os.Getenv("CREDPOOL_MASTER_KEY"),
		Provider:         provider,
		KeyListPrefix:    prefix,
		KeyDelimiter:     delimiter,
		MaxNumberedLists: maxLists,
		ResetLocation:    loc,
		ListenAddr:       listenAddr,
		DBPath:           dbPath,

		MaintenanceInterval: interval,
	}, nil
}
