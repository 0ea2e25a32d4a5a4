package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port   string
	Env    string // development, staging, production
	Server ServerConfig

	// Raw data inputs
	Data DataConfig

	// Ranker YAML (optional, defaults apply when empty)
	RankerConfigPath string

	// Database (only required for DATA_SOURCE=postgres)
	Database DatabaseConfig

	// Redis (top-k response cache)
	Redis RedisConfig

	// API
	APIRateLimit float64 // requests per second, 0 disables

	// Scheduler
	SchedulerEnabled    bool
	WarmupSchedule      string
	DataRefreshSchedule string // empty disables the refresh job

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// DataConfig describes where the two raw inputs come from
type DataConfig struct {
	Source      string // csv, postgres
	Dir         string
	FactorsFile string // file name under Dir, absolute path or http(s) URL
	MarketFile  string
}

// ServerConfig holds HTTP server timeouts
type ServerConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // covers a lazy model fit on /api/topk
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Data source kinds
const (
	DataSourceCSV      = "csv"
	DataSourcePostgres = "postgres"
)

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// HTTP server
		Server: ServerConfig{
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", "5m"),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", "30s"),
		},

		// Raw data
		Data: DataConfig{
			Source:      getEnv("DATA_SOURCE", DataSourceCSV),
			Dir:         getEnv("DATA_DIR", "data/raw"),
			FactorsFile: getEnv("FACTORS_FILE", "ff5_data.csv"),
			MarketFile:  getEnv("MARKET_FILE", "market_data.csv"),
		},

		RankerConfigPath: getEnv("RANKER_CONFIG", ""),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "ffrank"),
			User:            getEnv("DB_USER", "ffrank"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_TTL", "24h"),
		},

		APIRateLimit: getEnvAsFloat("API_RATE_LIMIT", 20),

		SchedulerEnabled:    getEnvAsBool("SCHEDULER_ENABLED", false),
		WarmupSchedule:      getEnv("WARMUP_SCHEDULE", "0 0 6 * * *"),
		DataRefreshSchedule: getEnv("DATA_REFRESH_SCHEDULE", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Data.Source {
	case DataSourceCSV:
		if c.Data.FactorsFile == "" || c.Data.MarketFile == "" {
			return fmt.Errorf("FACTORS_FILE and MARKET_FILE are required for DATA_SOURCE=csv")
		}
	case DataSourcePostgres:
		// Database URL is required only when raw data lives in Postgres
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for DATA_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("DATA_SOURCE must be one of: csv, postgres")
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SERVER_*_TIMEOUT values must be positive")
	}

	if c.APIRateLimit < 0 {
		return fmt.Errorf("API_RATE_LIMIT must be >= 0")
	}

	return nil
}

// FactorsPath resolves the daily factor file location
func (d DataConfig) FactorsPath() string {
	return resolvePath(d.Dir, d.FactorsFile)
}

// MarketPath resolves the monthly asset-return file location
func (d DataConfig) MarketPath() string {
	return resolvePath(d.Dir, d.MarketFile)
}

// Helper functions (private, only used within this file)

func resolvePath(dir, file string) string {
	if IsURL(file) || filepath.IsAbs(file) || dir == "" {
		return file
	}
	return filepath.Join(dir, file)
}

// IsURL reports whether a data location is an http(s) URL
func IsURL(s string) bool {
	return len(s) > 7 && (s[:7] == "http://" || (len(s) > 8 && s[:8] == "https://"))
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
