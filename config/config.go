package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration (block markers)
	MemcacheAddr string
	BlockWindow  time.Duration

	// Sink configuration: "redis" or "file"
	Sink      string
	OutputDir string

	// Scraper configuration
	ScrapeDelay   time.Duration
	FetchTimeout  time.Duration
	MaxReviews    int
	MaxRetries    int
	DedupeReviews bool

	// Secondary provider (RapidAPI-style) configuration
	RapidAPIKey  string
	RapidAPIHost string

	// Batch driver configuration
	LocationURLs      []string
	WorkerConcurrency int
	ScrapeInterval    time.Duration

	// Observability
	MetricsAddr string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	blockWindow, _ := strconv.Atoi(getEnv("BLOCK_WINDOW_SECONDS", "21600"))
	delayMs, _ := strconv.Atoi(getEnv("SCRAPE_DELAY_MS", "2500"))
	timeout, _ := strconv.Atoi(getEnv("SCRAPE_TIMEOUT_SECONDS", "150"))
	maxReviews, _ := strconv.Atoi(getEnv("SCRAPE_MAX_REVIEWS", "300"))
	maxRetries, _ := strconv.Atoi(getEnv("SCRAPE_MAX_RETRIES", "100"))
	concurrency, _ := strconv.Atoi(getEnv("WORKER_CONCURRENCY", "4"))
	interval, _ := strconv.Atoi(getEnv("SCRAPE_INTERVAL_SECONDS", "0"))
	dedupe, _ := strconv.ParseBool(getEnv("DEDUPE_REVIEWS", "false"))

	return Config{
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "locations"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		BlockWindow:          time.Duration(blockWindow) * time.Second,
		Sink:                 getEnv("SINK", "file"),
		OutputDir:            getEnv("OUTPUT_DIR", "data"),
		ScrapeDelay:          time.Duration(delayMs) * time.Millisecond,
		FetchTimeout:         time.Duration(timeout) * time.Second,
		MaxReviews:           maxReviews,
		MaxRetries:           maxRetries,
		DedupeReviews:        dedupe,
		RapidAPIKey:          getEnv("RAPID_API_KEY", ""),
		RapidAPIHost:         getEnv("RAPID_API_HOST", "real-time-restaurant-scraper-api.p.rapidapi.com"),
		LocationURLs:         splitList(getEnv("LOCATION_URLS", "")),
		WorkerConcurrency:    concurrency,
		ScrapeInterval:       time.Duration(interval) * time.Second,
		MetricsAddr:          getEnv("METRICS_ADDR", ""),
		Environment:          getEnv("SCRAPER_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the scraper cannot run with
func (c *Config) Validate() error {
	if c.MaxReviews <= 0 || c.MaxReviews%15 != 0 {
		return fmt.Errorf("SCRAPE_MAX_REVIEWS must be a positive multiple of the page size (15), got %d", c.MaxReviews)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("SCRAPE_MAX_RETRIES must be positive, got %d", c.MaxRetries)
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.WorkerConcurrency)
	}
	if c.ScrapeDelay <= 0 {
		return fmt.Errorf("SCRAPE_DELAY_MS must be positive, got %v", c.ScrapeDelay)
	}
	if c.Sink != "redis" && c.Sink != "file" {
		return fmt.Errorf("SINK must be \"redis\" or \"file\", got %q", c.Sink)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// splitList splits a comma separated env value into trimmed entries
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
