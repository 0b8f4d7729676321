package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"cineflow/console/internal/locator"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIBase = "http://127.0.0.1:8088/api/v1"
	EnvAuthToken   = "CINEFLOW_AUTH_TOKEN"
)

// Config drives the console and CLI.
type Config struct {
	APIBase            string
	AuthToken          string
	CredentialsPath    string
	PageSize           int
	TaskPollInterval   time.Duration
	RunPollInterval    time.Duration
	HTTPTimeout        time.Duration
	ResultsConcurrency int
	LogLevel           string
	LogFormat          string
}

// ServerConfig drives the mock backend.
type ServerConfig struct {
	Addr              string
	JWTSecret         string
	AccessTTL         time.Duration
	APIKey            string
	MaxRunConcurrency int
	MaxActiveRuns     int
	TaskDuration      time.Duration
	FailureRate       float64
	DownloadFailRate  float64
	Seed              bool
	LogLevel          string
}

// LoadDotEnv loads the first .env file found in paths. Variables already set in the
// environment win. Missing files are not an error.
func LoadDotEnv(paths ...string) string {
	if len(paths) == 0 {
		paths = []string{".env", "../.env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err == nil {
			return p
		}
	}
	return ""
}

func Load() Config {
	cfg := Config{
		APIBase:            env("CINEFLOW_API_BASE", ""),
		AuthToken:          strings.TrimSpace(os.Getenv(EnvAuthToken)),
		CredentialsPath:    env("CINEFLOW_CREDENTIALS", DefaultCredentialsPath()),
		PageSize:           envInt("CINEFLOW_PAGE_SIZE", 200),
		TaskPollInterval:   envDuration("CINEFLOW_TASK_POLL_INTERVAL", 3*time.Second),
		RunPollInterval:    envDuration("CINEFLOW_RUN_POLL_INTERVAL", 5*time.Second),
		HTTPTimeout:        envDuration("CINEFLOW_HTTP_TIMEOUT", 0),
		ResultsConcurrency: envInt("CINEFLOW_RESULTS_CONCURRENCY", 4),
		LogLevel:           env("CINEFLOW_LOG_LEVEL", "warn"),
		LogFormat:          env("CINEFLOW_LOG_FORMAT", "text"),
	}
	if cfg.APIBase == "" {
		if creds, err := LoadCredentials(cfg.CredentialsPath); err == nil && creds.APIBase != "" {
			cfg.APIBase = creds.APIBase
		} else {
			cfg.APIBase = DefaultAPIBase
		}
	}
	return cfg
}

// Validate rejects settings the client cannot work with.
func (c Config) Validate() error {
	return locator.CheckBase(c.APIBase)
}

// TokenSource returns the bearer token: the environment override if set, otherwise
// whatever the credentials file holds at call time.
func (c Config) TokenSource() func() string {
	if c.AuthToken != "" {
		token := c.AuthToken
		return func() string { return token }
	}
	path := c.CredentialsPath
	return func() string {
		creds, err := LoadCredentials(path)
		if err != nil || creds.Expired(time.Now()) {
			return ""
		}
		return creds.Token
	}
}

func LoadServer() ServerConfig {
	return ServerConfig{
		Addr:              env("CINEFLOW_MOCK_ADDR", ":8088"),
		JWTSecret:         env("CINEFLOW_JWT_SECRET", "dev-change-me"),
		AccessTTL:         envDuration("CINEFLOW_ACCESS_TTL", 24*time.Hour),
		APIKey:            env("CINEFLOW_API_KEY", "cf-demo-key"),
		MaxRunConcurrency: envInt("CINEFLOW_MAX_RUN_CONCURRENCY", 50),
		MaxActiveRuns:     envInt("CINEFLOW_MAX_ACTIVE_RUNS", 8),
		TaskDuration:      envDuration("CINEFLOW_TASK_DURATION", 4*time.Second),
		FailureRate:       envFloat("CINEFLOW_FAILURE_RATE", 0.15),
		DownloadFailRate:  envFloat("CINEFLOW_DOWNLOAD_FAIL_RATE", 0.03),
		Seed:              envBool("CINEFLOW_SEED", true),
		LogLevel:          env("CINEFLOW_LOG_LEVEL", "info"),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
