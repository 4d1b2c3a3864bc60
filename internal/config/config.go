package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "onemorerev.cfg.json"

// EnvPrefix prefixes every environment override, e.g. OMR_API_SERVERURL.
const EnvPrefix = "OMR"

// APIConfig holds backend connection settings
type APIConfig struct {
	ServerURL  string        `json:"serverUrl" mapstructure:"serverUrl"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	AccessCode string        `json:"accessCode" mapstructure:"accessCode"`
}

// DownloadConfig holds bulk download settings
type DownloadConfig struct {
	Delay     time.Duration `json:"delay" mapstructure:"delay"`
	OutputDir string        `json:"outputDir" mapstructure:"outputDir"`
}

// SQLiteConfig holds SQLite snapshot storage settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// PostgresConfig holds Postgres snapshot storage settings
type PostgresConfig struct {
	DSN string `json:"dsn" mapstructure:"dsn"`
}

// StorageConfig selects the snapshot storage backend
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds InfluxDB request metrics settings
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Protocol   string `json:"protocol" mapstructure:"protocol"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// URL returns the InfluxDB server address.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds GELF logging settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// DefaultDir returns the per-user config directory.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".onemorerev"
	}
	return filepath.Join(dir, "onemorerev")
}

// Load sets default values, then reads the JSON config file and a .env file
// from configDir when they exist. Environment variables prefixed with OMR_
// override both.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", filepath.Join(configDir, "logs"))
	viper.SetDefault("logsKeep", 10)

	viper.SetDefault("api.serverUrl", "http://localhost:8080")
	viper.SetDefault("api.timeout", "30s")
	viper.SetDefault("api.accessCode", "")

	viper.SetDefault("download.delay", "500ms")
	viper.SetDefault("download.outputDir", ".")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.sqlite.path", filepath.Join(configDir, "snapshots.db"))
	viper.SetDefault("storage.postgres.dsn", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "onemorerev")
	viper.SetDefault("influx.bucket", "omr-client")
	viper.SetDefault("influx.backupPath", filepath.Join(configDir, "metrics_backup.lp.gz"))

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "omr")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	path := filepath.Join(configDir, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	viper.SetConfigFile(path)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetAPIConfig returns the backend connection settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL:  viper.GetString("api.serverUrl"),
		Timeout:    viper.GetDuration("api.timeout"),
		AccessCode: viper.GetString("api.accessCode"),
	}
}

// GetDownloadConfig returns the bulk download settings.
func GetDownloadConfig() DownloadConfig {
	return DownloadConfig{
		Delay:     viper.GetDuration("download.delay"),
		OutputDir: viper.GetString("download.outputDir"),
	}
}

// GetStorageConfig returns the snapshot storage settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
		Postgres: PostgresConfig{
			DSN: viper.GetString("storage.postgres.dsn"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Protocol:   viper.GetString("influx.protocol"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetGraylogConfig returns the GELF logging settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}
