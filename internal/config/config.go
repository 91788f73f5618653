// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/aristath/tradejournal/internal/database"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration
type Config struct {
	DataDir       string // Base directory for the journal database (always absolute)
	DBName        string
	DBDriver      database.Driver
	SchemaVersion int // 0 = latest
	LogLevel      string
	LogPretty     bool
	Port          int
	DevMode       bool
	Maintenance   *MaintenanceConfig
}

// MaintenanceConfig holds scheduled job and backup settings
type MaintenanceConfig struct {
	WALCheckpointSchedule string
	BackupSchedule        string // empty disables the job
	MaintenanceSchedule   string
	BackupDir             string
	BackupKeep            int
	S3                    *S3Config // nil when no bucket is configured
}

// S3Config holds off-device backup credentials
type S3Config struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("JOURNAL_DATA_DIR", "")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tradejournal")
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		DBName:        getEnv("JOURNAL_DB_NAME", database.DefaultName),
		DBDriver:      database.Driver(getEnv("JOURNAL_DB_DRIVER", string(database.DriverModernc))),
		SchemaVersion: getEnvAsInt("JOURNAL_SCHEMA_VERSION", 0),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     getEnvAsBool("LOG_PRETTY", false),
		Port:          getEnvAsInt("GO_PORT", 8001),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		Maintenance:   loadMaintenanceConfig(absDataDir),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DBName == "" {
		return fmt.Errorf("%w: JOURNAL_DB_NAME must not be empty", ErrInvalidConfig)
	}
	if c.DBDriver != database.DriverModernc && c.DBDriver != database.DriverCgo {
		return fmt.Errorf("%w: JOURNAL_DB_DRIVER must be %q or %q, got %q",
			ErrInvalidConfig, database.DriverModernc, database.DriverCgo, c.DBDriver)
	}
	if c.SchemaVersion < 0 {
		return fmt.Errorf("%w: JOURNAL_SCHEMA_VERSION must not be negative", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: GO_PORT %d out of range", ErrInvalidConfig, c.Port)
	}

	if m := c.Maintenance; m != nil {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		for name, spec := range map[string]string{
			"WAL_CHECKPOINT_SCHEDULE": m.WALCheckpointSchedule,
			"BACKUP_SCHEDULE":         m.BackupSchedule,
			"MAINTENANCE_SCHEDULE":    m.MaintenanceSchedule,
		} {
			if spec == "" {
				continue
			}
			if _, err := parser.Parse(spec); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
			}
		}
		if m.S3 != nil && (m.S3.AccessKeyID == "") != (m.S3.SecretAccessKey == "") {
			return fmt.Errorf("%w: BACKUP_S3_ACCESS_KEY_ID and BACKUP_S3_SECRET_ACCESS_KEY must be set together", ErrInvalidConfig)
		}
	}

	return nil
}

// ManagerConfig returns the connection manager settings
func (c *Config) ManagerConfig() database.ManagerConfig {
	return database.ManagerConfig{
		DataDir: c.DataDir,
		Name:    c.DBName,
		Driver:  c.DBDriver,
		Version: c.SchemaVersion,
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getSchedule reads a cron schedule; "off" disables the job
func getSchedule(key, defaultValue string) string {
	if value := getEnv(key, defaultValue); value != "off" {
		return value
	}
	return ""
}

// loadMaintenanceConfig loads scheduled job settings with defaults
func loadMaintenanceConfig(dataDir string) *MaintenanceConfig {
	cfg := &MaintenanceConfig{
		WALCheckpointSchedule: getSchedule("WAL_CHECKPOINT_SCHEDULE", "0 */15 * * * *"),
		BackupSchedule:        getSchedule("BACKUP_SCHEDULE", "0 0 2 * * *"),
		MaintenanceSchedule:   getSchedule("MAINTENANCE_SCHEDULE", "0 30 3 * * *"),
		BackupDir:             getEnv("BACKUP_DIR", filepath.Join(dataDir, "backups")),
		BackupKeep:            getEnvAsInt("BACKUP_KEEP", 7),
	}

	if bucket := getEnv("BACKUP_S3_BUCKET", ""); bucket != "" {
		cfg.S3 = &S3Config{
			Bucket:          bucket,
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:          getEnv("BACKUP_S3_REGION", ""),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
		}
	}

	return cfg
}
