package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "beaconmap.cfg.json"

// RegistrationConfig holds engine settings
type RegistrationConfig struct {
	MinOverlap  int `json:"minOverlap" mapstructure:"minOverlap"`
	Workers     int `json:"workers" mapstructure:"workers"`
	RootScanner int `json:"rootScanner" mapstructure:"rootScanner"` // -1 selects the first scanner
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"` // empty keeps the database in memory
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// S3Config holds settings for uploading exports to an S3-compatible bucket
type S3Config struct {
	Bucket          string `json:"bucket" mapstructure:"bucket"`
	Region          string `json:"region" mapstructure:"region"`
	Endpoint        string `json:"endpoint" mapstructure:"endpoint"` // set for MinIO and friends
	Prefix          string `json:"prefix" mapstructure:"prefix"`
	PathStyle       bool   `json:"pathStyle" mapstructure:"pathStyle"`
	AccessKeyID     string `json:"accessKeyId" mapstructure:"accessKeyId"` // empty uses the default credential chain
	SecretAccessKey string `json:"secretAccessKey" mapstructure:"secretAccessKey"`
	Compress        bool   `json:"compress" mapstructure:"compress"`
}

// StorageConfig selects and configures the result backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
	S3     S3Config     `json:"s3" mapstructure:"s3"`
}

// MetricsConfig holds Prometheus textfile settings
type MetricsConfig struct {
	TextfilePath string `json:"textfilePath" mapstructure:"textfilePath"` // empty disables the export
}

// DBConfig holds PostgreSQL connection settings
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN renders the connection string used by the postgres driver.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// InfluxConfig holds InfluxDB reporter settings
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
}

// URL returns the server address of the InfluxDB instance.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds the optional GELF log sink settings
type GraylogConfig struct {
	Enabled bool
	Address string
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./beaconlogs")

	viper.SetDefault("registration.minOverlap", 12)
	viper.SetDefault("registration.workers", 1)
	viper.SetDefault("registration.rootScanner", -1)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./maps")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.s3.bucket", "")
	viper.SetDefault("storage.s3.region", "us-east-1")
	viper.SetDefault("storage.s3.endpoint", "")
	viper.SetDefault("storage.s3.prefix", "maps")
	viper.SetDefault("storage.s3.pathStyle", false)
	viper.SetDefault("storage.s3.accessKeyId", "")
	viper.SetDefault("storage.s3.secretAccessKey", "")
	viper.SetDefault("storage.s3.compress", true)

	viper.SetDefault("metrics.textfilePath", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "beaconmap")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "beaconmap-metrics")
	viper.SetDefault("influx.bucket", "registration")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. A missing file
// leaves the defaults in place.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
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

// GetRegistrationConfig returns the engine settings.
func GetRegistrationConfig() RegistrationConfig {
	return RegistrationConfig{
		MinOverlap:  viper.GetInt("registration.minOverlap"),
		Workers:     viper.GetInt("registration.workers"),
		RootScanner: viper.GetInt("registration.rootScanner"),
	}
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		S3: S3Config{
			Bucket:          viper.GetString("storage.s3.bucket"),
			Region:          viper.GetString("storage.s3.region"),
			Endpoint:        viper.GetString("storage.s3.endpoint"),
			Prefix:          viper.GetString("storage.s3.prefix"),
			PathStyle:       viper.GetBool("storage.s3.pathStyle"),
			AccessKeyID:     viper.GetString("storage.s3.accessKeyId"),
			SecretAccessKey: viper.GetString("storage.s3.secretAccessKey"),
			Compress:        viper.GetBool("storage.s3.compress"),
		},
	}
}

// GetMetricsConfig returns the Prometheus textfile settings.
func GetMetricsConfig() MetricsConfig {
	return MetricsConfig{
		TextfilePath: viper.GetString("metrics.textfilePath"),
	}
}

// GetDBConfig returns the PostgreSQL connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB reporter settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the GELF sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}
