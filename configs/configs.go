// Package configs provides application configuration loaded from environment variables.
// All configuration is externalized via environment variables for 12-factor app compliance.
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/mandi/utils"
)

// AuthMode selects how write endpoints decide whether a caller is authorized.
type AuthMode string

const (
	// AuthPassword checks HTTP basic credentials against the admin user.
	AuthPassword AuthMode = "password"
	// AuthEmail is passwordless: the caller's email must be allowlisted.
	AuthEmail AuthMode = "email"
	// AuthDisabled rejects every write.
	AuthDisabled AuthMode = "disabled"
)

// DashboardSource selects where the dashboard view reads its records from.
type DashboardSource string

const (
	DashboardLive  DashboardSource = "live"
	DashboardStore DashboardSource = "store"
)

const (
	DefaultBaseURL  = "https://api.data.gov.in/resource/35985678-0d79-46b4-9ed6-6f13308a1d24"
	DefaultState    = "Tamil Nadu"
	DefaultDistrict = "Salem"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// Source contains settings for the remote price-records API.
	Source SourceConfig

	// DB contains the persistence driver and DSN.
	DB DBConfig

	// Policy holds the per-deployment behaviour switches.
	Policy PolicyConfig

	// Auth holds credentials for the write-endpoint gate.
	Auth AuthConfig

	// Server holds HTTP listener settings.
	Server ServerConfig

	// RetentionDays is the age after which stored rows are swept.
	RetentionDays int

	// Timezone is the location used to compute "today" for the source.
	Timezone string

	// LogLevel is a logrus level name.
	LogLevel string
}

// SourceConfig holds the data.gov.in client settings.
type SourceConfig struct {
	BaseURL string
	APIKey  string

	// RatePerSecond bounds outbound requests across a walk-back.
	RatePerSecond float64

	DefaultState    string
	DefaultDistrict string
}

// DBConfig selects the storage backend.
type DBConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string
	DSN    string
}

// PolicyConfig holds the behaviour switches chosen per deployment.
type PolicyConfig struct {
	// PersistOnFetch stores every resolved batch as it is fetched.
	PersistOnFetch bool

	// PersistFallbackDates also stores batches found on walk-back dates,
	// not only the first date queried.
	PersistFallbackDates bool

	DashboardSource DashboardSource
	AuthMode        AuthMode
}

// AuthConfig holds gate credentials. AdminPasswordHash wins over AdminPassword.
type AuthConfig struct {
	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string
	AuthorizedEmails  []string
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port      string
	DebugMode bool
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	return &AppConfig{
		Source: SourceConfig{
			BaseURL:         getEnv("DATA_GOV_BASE_URL", DefaultBaseURL),
			APIKey:          getEnv("DATA_GOV_API_KEY", ""),
			RatePerSecond:   getEnvFloat("DATA_GOV_RATE_PER_SECOND", 5),
			DefaultState:    getEnv("DEFAULT_STATE", DefaultState),
			DefaultDistrict: getEnv("DEFAULT_DISTRICT", DefaultDistrict),
		},
		DB: DBConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:    getEnv("DB_DSN", "market.db"),
		},
		Policy: PolicyConfig{
			PersistOnFetch:       getEnvBool("PERSIST_ON_FETCH", false),
			PersistFallbackDates: getEnvBool("PERSIST_FALLBACK_DATES", true),
			DashboardSource:      DashboardSource(strings.ToLower(getEnv("DASHBOARD_SOURCE", string(DashboardLive)))),
			AuthMode:             AuthMode(strings.ToLower(getEnv("AUTH_MODE", string(AuthPassword)))),
		},
		Auth: AuthConfig{
			AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
			AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
			AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			AuthorizedEmails:  getEnvList("AUTHORIZED_EMAILS"),
		},
		Server: ServerConfig{
			Port:      getEnv("SERVER_PORT", "5000"),
			DebugMode: getEnvBool("DEBUGMODE", false),
		},
		RetentionDays: getEnvInt("RETENTION_DAYS", 30),
		Timezone:      getEnv("TIMEZONE", "Asia/Kolkata"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// Validate resets unknown enum values to their defaults and returns one
// warning per correction.
func (c *AppConfig) Validate() []string {
	var warnings []string

	switch c.Policy.AuthMode {
	case AuthPassword, AuthEmail, AuthDisabled:
	default:
		warnings = append(warnings, fmt.Sprintf("unknown AUTH_MODE %q, using %q", c.Policy.AuthMode, AuthPassword))
		c.Policy.AuthMode = AuthPassword
	}

	switch c.Policy.DashboardSource {
	case DashboardLive, DashboardStore:
	default:
		warnings = append(warnings, fmt.Sprintf("unknown DASHBOARD_SOURCE %q, using %q", c.Policy.DashboardSource, DashboardLive))
		c.Policy.DashboardSource = DashboardLive
	}

	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown DB_DRIVER %q, using %q", c.DB.Driver, "sqlite"))
		c.DB.Driver = "sqlite"
	}

	if c.Source.RatePerSecond <= 0 {
		warnings = append(warnings, "DATA_GOV_RATE_PER_SECOND must be positive, using 5")
		c.Source.RatePerSecond = 5
	}

	if c.RetentionDays <= 0 {
		warnings = append(warnings, "RETENTION_DAYS must be positive, using 30")
		c.RetentionDays = 30
	}

	if c.Policy.AuthMode == AuthPassword && c.Auth.AdminPassword == "" && c.Auth.AdminPasswordHash == "" {
		warnings = append(warnings, "AUTH_MODE=password without ADMIN_PASSWORD or ADMIN_PASSWORD_HASH, writes will be rejected")
	}

	return warnings
}

// Location returns the configured timezone, UTC when it cannot be loaded.
func (c *AppConfig) Location() *time.Location {
	return utils.LoadLocation(c.Timezone)
}

// NewLogger builds the process logger.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
