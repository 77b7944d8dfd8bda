package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Auth      AuthConfig
	Reporting ReportingConfig
	Scheduler SchedulerConfig
	Sheets    SheetsConfig
	Advisor   AdvisorConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// MongoDBConfig holds settings for the document store.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// AuthConfig holds settings for bearer-token verification.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// ReportingConfig carries the pricing assumptions of the financial report.
type ReportingConfig struct {
	// UnitEggPrice is the assumed sale price of one egg.
	UnitEggPrice float64
	// AvgEggsPerBirdLifetime prices a death as this many eggs never laid.
	AvgEggsPerBirdLifetime int
}

// SchedulerConfig holds cron-related settings.
type SchedulerConfig struct {
	ReminderCron       string
	ExportCron         string
	Timezone           string
	ReminderWindowDays int
}

// SheetsConfig configures the optional report snapshot export. Both fields
// empty means the export is disabled.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the sheets export should be wired.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// AdvisorConfig holds settings for the external advisor collaborator.
type AdvisorConfig struct {
	AnthropicKey string
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
		// Missing .env files are acceptable when configuration comes from
		// the environment directly.
		_ = godotenv.Load()
	}

	tokenTTL, err := time.ParseDuration(getenvWithDefault("AUTH_TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_TOKEN_TTL: %w", err)
	}
	unitEggPrice, err := strconv.ParseFloat(getenvWithDefault("REPORT_UNIT_EGG_PRICE", "1.0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_UNIT_EGG_PRICE: %w", err)
	}
	avgEggs, err := strconv.Atoi(getenvWithDefault("REPORT_AVG_EGGS_PER_BIRD", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_AVG_EGGS_PER_BIRD: %w", err)
	}
	reminderWindow, err := strconv.Atoi(getenvWithDefault("REMINDER_WINDOW_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_WINDOW_DAYS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "poultrypro"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
			TokenTTL:  tokenTTL,
		},
		Reporting: ReportingConfig{
			UnitEggPrice:           unitEggPrice,
			AvgEggsPerBirdLifetime: avgEggs,
		},
		Scheduler: SchedulerConfig{
			ReminderCron:       getenvWithDefault("REMINDER_CRON_SCHEDULE", "0 8 * * *"),
			ExportCron:         getenvWithDefault("EXPORT_CRON_SCHEDULE", "0 20 * * 5"),
			Timezone:           getenvWithDefault("TIMEZONE", "UTC"),
			ReminderWindowDays: reminderWindow,
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_REPORT_ID"),
		},
		Advisor: AdvisorConfig{
			AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
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

	switch {
	case c.MongoDB.URI == "":
		return errors.New("MONGODB_URI must be provided")
	case c.MongoDB.DBName == "":
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET must be provided")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("AUTH_TOKEN_TTL must be positive")
	}

	if c.Reporting.UnitEggPrice < 0 {
		return errors.New("REPORT_UNIT_EGG_PRICE must not be negative")
	}
	if c.Reporting.AvgEggsPerBirdLifetime <= 0 {
		return errors.New("REPORT_AVG_EGGS_PER_BIRD must be positive")
	}

	switch {
	case c.Scheduler.ReminderCron == "":
		return errors.New("REMINDER_CRON_SCHEDULE must be provided")
	case c.Scheduler.ExportCron == "":
		return errors.New("EXPORT_CRON_SCHEDULE must be provided")
	case c.Scheduler.Timezone == "":
		return errors.New("TIMEZONE must be provided")
	}
	if c.Scheduler.ReminderWindowDays <= 0 {
		return errors.New("REMINDER_WINDOW_DAYS must be positive")
	}

	// The sheets export is optional, but half a configuration is a mistake.
	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_REPORT_ID must be set together")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
