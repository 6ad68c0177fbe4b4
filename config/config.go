package config

import (
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	PGURL           string
	Port            string
	RawDir          string
	ReadyDir        string
	LogLevel        log.Level
	Workers         int
	FibLookback     int
	SortInput       bool
	WatermarkScope  string
	ETLSchedule     string
	SummaryCacheTTL time.Duration
	AdminToken      string
	AVKey           string
	AVPerMinute     int
}

// Load reads configuration from a .env file, if present, and then the environment
func Load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	pgURL := os.Getenv("PG_URL")
	if pgURL == "" {
		pgURL = urlFromParts()
	}
	if pgURL == "" {
		return nil, fmt.Errorf("PG_URL or DB_HOST/DB_NAME/DB_USER environment variables are required")
	}

	level, err := log.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	workers, err := getInt("WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		return nil, fmt.Errorf("WORKERS must be at least 1, got %d", workers)
	}

	fibLookback, err := getInt("FIB_LOOKBACK", 0)
	if err != nil {
		return nil, err
	}
	if fibLookback < 0 {
		return nil, fmt.Errorf("FIB_LOOKBACK must not be negative, got %d", fibLookback)
	}

	sortInput, err := getBool("SORT_INPUT", false)
	if err != nil {
		return nil, err
	}

	scope := getEnv("WATERMARK_SCOPE", "table")
	if scope != "table" && scope != "security" {
		return nil, fmt.Errorf("WATERMARK_SCOPE must be 'table' or 'security', got %q", scope)
	}

	ttl, err := time.ParseDuration(getEnv("SUMMARY_CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SUMMARY_CACHE_TTL: %w", err)
	}

	avPerMinute, err := getInt("AV_REQUESTS_PER_MINUTE", 5)
	if err != nil {
		return nil, err
	}

	return &Config{
		PGURL:           pgURL,
		Port:            getEnv("PORT", "8080"),
		RawDir:          getEnv("RAW_DIR", "data/raw_data"),
		ReadyDir:        getEnv("READY_DIR", "data/clean_data"),
		LogLevel:        level,
		Workers:         workers,
		FibLookback:     fibLookback,
		SortInput:       sortInput,
		WatermarkScope:  scope,
		ETLSchedule:     os.Getenv("ETL_SCHEDULE"),
		SummaryCacheTTL: ttl,
		AdminToken:      os.Getenv("ADMIN_TOKEN"),
		AVKey:           os.Getenv("AV_KEY"),
		AVPerMinute:     avPerMinute,
	}, nil
}

// urlFromParts builds a connection URL from the DB_* variables used by the batch scripts
func urlFromParts() string {
	host := os.Getenv("DB_HOST")
	name := os.Getenv("DB_NAME")
	user := os.Getenv("DB_USER")
	if host == "" || name == "" || user == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   host + ":" + getEnv("DB_PORT", "5432"),
		Path:   "/" + name,
	}
	if pw := os.Getenv("DB_PASSWORD"); pw != "" {
		u.User = url.UserPassword(user, pw)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
