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
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Device   DeviceConfig
	Sweep    SweepConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	StorageDriver      string
	MemorySeedFile     string
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

// DeviceConfig authenticates badge readers on the scan endpoint.
type DeviceConfig struct {
	KeyHash string
}

// SweepConfig holds the schedules of the forced closure and absence jobs.
type SweepConfig struct {
	PrimarySchedule   string
	SafetyNetSchedule string
	AbsenceSchedule   string
	Identity          string
	Timeout           time.Duration
}

// BridgeConfig configures cmd/bridge.
type BridgeConfig struct {
	Endpoints      []string
	DeviceKey      string
	ReaderID       string
	Debounce       time.Duration
	MaxAttempts    int
	RequestTimeout time.Duration
	LogLevel       string
}

// loadDotEnv reads .env when present. A missing file is not an error so
// deployments can rely on the real environment.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	config := &Config{}
	var err error

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxConns, err := getEnvInt("DB_MAX_CONNS", 25)
	if err != nil {
		return nil, err
	}
	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: maxConns,
		MinConns: minConns,
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := getEnvDuration("APP_SHUTDOWN_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:               appPort,
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		MemorySeedFile:     getEnv("MEMORY_SEED_FILE", ""),
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		ShutdownTimeout:    shutdownTimeout,
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	config.Device = DeviceConfig{
		KeyHash: getEnv("DEVICE_KEY_HASH", ""),
	}

	// Sweep configuration
	sweepTimeout, err := getEnvDuration("SWEEP_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	config.Sweep = SweepConfig{
		PrimarySchedule:   getEnv("SWEEP_PRIMARY_SCHEDULE", "0 20 * * *"),
		SafetyNetSchedule: getEnv("SWEEP_SAFETY_NET_SCHEDULE", "55 23 * * *"),
		AbsenceSchedule:   getEnv("ABSENCE_SCHEDULE", "59 23 * * *"),
		Identity:          getEnv("SWEEP_IDENTITY", "system:forced-closure"),
		Timeout:           sweepTimeout,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.App.StorageDriver {
	case StorageDriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageDriverPostgres, StorageDriverMemory, c.App.StorageDriver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}
	if c.Device.KeyHash == "" {
		return fmt.Errorf("DEVICE_KEY_HASH is required")
	}
	if c.Sweep.Identity == "" {
		return fmt.Errorf("SWEEP_IDENTITY must not be empty")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	return ParseLogLevel(c.App.LogLevel)
}

func LoadBridge() (*BridgeConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	debounce, err := getEnvDuration("BRIDGE_DEBOUNCE", 3*time.Second)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := getEnvInt("BRIDGE_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := getEnvDuration("BRIDGE_REQUEST_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	config := &BridgeConfig{
		Endpoints:      getEnvSlice("BRIDGE_ENDPOINTS", []string{"http://localhost:8080"}),
		DeviceKey:      getEnv("BRIDGE_DEVICE_KEY", ""),
		ReaderID:       getEnv("BRIDGE_READER_ID", "reader-1"),
		Debounce:       debounce,
		MaxAttempts:    maxAttempts,
		RequestTimeout: requestTimeout,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if config.DeviceKey == "" {
		return nil, fmt.Errorf("configuration validation failed: BRIDGE_DEVICE_KEY is required")
	}
	if config.MaxAttempts < 1 {
		return nil, fmt.Errorf("configuration validation failed: BRIDGE_MAX_ATTEMPTS must be at least 1")
	}
	return config, nil
}

func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
