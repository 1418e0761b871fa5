package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tariffsync/internal/core"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// Tariff source API
	TariffsAPIURL   string
	TariffsAPIToken string
	HTTPTimeout     time.Duration

	// Scheduling
	SyncTime     string // HH:MM, in SyncTimezone
	SyncTimezone string

	// Publishing
	PublishBackend     string // "google" or "memory"
	SpreadsheetTargets string // comma-separated id=name pairs

	// AMQP (optional run outcome events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	return &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/tariffs.db"),

		TariffsAPIURL:   getEnv("TARIFFS_API_URL", ""),
		TariffsAPIToken: getEnv("TARIFFS_API_TOKEN", ""),
		HTTPTimeout:     getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		SyncTime:     getEnv("SYNC_TIME", "01:00"),
		SyncTimezone: getEnv("SYNC_TIMEZONE", "UTC"),

		PublishBackend:     getEnv("PUBLISH_BACKEND", "google"),
		SpreadsheetTargets: getEnv("SPREADSHEET_TARGETS", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tariffsync"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "tariff_sync_events"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate SQLite path
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate sync time of day
	if _, err := time.Parse("15:04", strings.TrimSpace(c.SyncTime)); err != nil {
		errors = append(errors, fmt.Sprintf("invalid sync time '%s': must be HH:MM", c.SyncTime))
	}

	// Validate timezone
	if _, err := time.LoadLocation(c.SyncTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid sync timezone '%s': %v", c.SyncTimezone, err))
	}

	// Validate HTTP timeout
	if c.HTTPTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at least 1 second", c.HTTPTimeout))
	} else if c.HTTPTimeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at most 10 minutes", c.HTTPTimeout))
	}

	// Validate publish backend
	validBackends := []string{"google", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.PublishBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid publish backend '%s': must be one of %v", c.PublishBackend, validBackends))
	}

	// Validate target list
	if targets, err := c.Targets(); err != nil {
		errors = append(errors, err.Error())
	} else if len(targets) == 0 && c.PublishBackend == "google" {
		errors = append(errors, "SPREADSHEET_TARGETS must list at least one target when using the google backend")
	}

	// Validate AMQP settings if configured
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Targets parses SPREADSHEET_TARGETS into the configured target list.
// The format is a comma-separated sequence of "id" or "id=display name"
// entries; blank entries are skipped.
func (c *Config) Targets() ([]core.SpreadsheetTarget, error) {
	var targets []core.SpreadsheetTarget
	for _, entry := range strings.Split(c.SpreadsheetTargets, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, name, _ := strings.Cut(entry, "=")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("invalid spreadsheet target entry %q: missing id", entry)
		}
		targets = append(targets, core.SpreadsheetTarget{ID: id, Name: strings.TrimSpace(name)})
	}
	return targets, nil
}

// Location resolves the configured sync timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SyncTimezone)
	if err != nil {
		return nil, fmt.Errorf("load sync timezone %q: %w", c.SyncTimezone, err)
	}
	return loc, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
