package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverMemory = "memory"
)

// Bounds accepted by bcrypt.GenerateFromPassword.
const (
	minBcryptCost = 4
	maxBcryptCost = 31
)

// Config holds all runtime configuration for the trading service.
type Config struct {
	Port                 int
	LogLevel             string
	StoreDriver          string
	DatabasePath         string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	BcryptCost           int
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	ShutdownTimeout      time.Duration
}

// Load reads configuration from a .env file in the working directory (if
// present) and the environment, applies defaults, and validates values.
func Load() (*Config, error) {
	return LoadWithEnvFile(".env")
}

// LoadWithEnvFile is Load with an explicit dotenv path. Variables already
// set in the environment win over the file. A missing file is not an error.
func LoadWithEnvFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	storeDriver := getStr("STORE_DRIVER", StoreDriverSQLite)
	if storeDriver != StoreDriverSQLite && storeDriver != StoreDriverMemory {
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q, must be one of: sqlite, memory", storeDriver)
	}

	databasePath := getStr("DATABASE_PATH", "exchange.db")

	sessionTTL, err := getDuration("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if sessionTTL < 0 {
		return nil, fmt.Errorf("invalid SESSION_TTL: %v, must not be negative", sessionTTL)
	}

	sweepInterval, err := getDuration("SESSION_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_SWEEP_INTERVAL: %w", err)
	}
	if sweepInterval <= 0 {
		return nil, fmt.Errorf("invalid SESSION_SWEEP_INTERVAL: %v, must be positive", sweepInterval)
	}

	bcryptCost, err := getInt("BCRYPT_COST", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}
	if bcryptCost < minBcryptCost || bcryptCost > maxBcryptCost {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %d, must be between %d and %d", bcryptCost, minBcryptCost, maxBcryptCost)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:                 port,
		LogLevel:             logLevel,
		StoreDriver:          storeDriver,
		DatabasePath:         databasePath,
		SessionTTL:           sessionTTL,
		SessionSweepInterval: sweepInterval,
		BcryptCost:           bcryptCost,
		ReadTimeout:          readTimeout,
		WriteTimeout:         writeTimeout,
		IdleTimeout:          idleTimeout,
		ShutdownTimeout:      shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
