package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Supported document store drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config represents the full application configuration surface.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	MongoDB MongoDBConfig
	Log     LogConfig
	Expiry  ExpiryConfig
	Sheets  SheetsConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// StoreConfig selects the document store backing the inventory.
type StoreConfig struct {
	Driver string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI        string
	DBName     string
	Collection string
	Timeout    time.Duration
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string
}

// ExpiryConfig holds the expiry sweep schedule and its webhook target.
type ExpiryConfig struct {
	CronSchedule string
	Timezone     string
	WebhookURL   string
	WebhookToken string
}

// SheetsConfig contains configuration required to export to Google Sheets.
// Both fields empty disables the export.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	Range           string
}

// Enabled reports whether a spreadsheet export is configured.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	timeout, err := time.ParseDuration(getenvWithDefault("MONGODB_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("MONGODB_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Store: StoreConfig{
			Driver: getenvWithDefault("STORE_DRIVER", DriverMongo),
		},
		MongoDB: MongoDBConfig{
			URI:        getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName:     getenvWithDefault("MONGODB_DB_NAME", "inventory"),
			Collection: getenvWithDefault("MONGODB_COLLECTION", "inventory"),
			Timeout:    timeout,
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Expiry: ExpiryConfig{
			CronSchedule: getenvWithDefault("EXPIRY_CRON_SCHEDULE", "0 6 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "UTC"),
			WebhookURL:   os.Getenv("EXPIRY_WEBHOOK_URL"),
			WebhookToken: os.Getenv("EXPIRY_WEBHOOK_TOKEN"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			Range:           getenvWithDefault("EXPIRY_SHEET_RANGE", "Expired!A:F"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Driver {
	case DriverMongo:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
		if c.MongoDB.Collection == "" {
			return errors.New("MONGODB_COLLECTION must be provided")
		}
		if c.MongoDB.Timeout <= 0 {
			return errors.New("MONGODB_TIMEOUT must be positive")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER %q is not supported", c.Store.Driver)
	}

	if c.Expiry.CronSchedule == "" {
		return errors.New("EXPIRY_CRON_SCHEDULE must be provided")
	}

	if _, err := time.LoadLocation(c.Expiry.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Expiry.Timezone, err)
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be provided together")
	}

	if c.Sheets.Enabled() && c.Sheets.Range == "" {
		return errors.New("EXPIRY_SHEET_RANGE must not be empty")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
