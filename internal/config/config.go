package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileName is looked up in the directory passed to Load
const ConfigFileName = "replayer.cfg.json"

// DefaultTickRate is used when playback.tickRate is missing or not positive
const DefaultTickRate = 60

// StorageConfig selects and configures the playback journal backends
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the sqlite journal settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// DBConfig holds postgres connection settings
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// InfluxConfig holds InfluxDB connection settings
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
}

// URL returns the server address built from protocol, host and port.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// ArchetypeConfig maps one recorded class name to a scene archetype.
// Class names contain dots, so they are listed as values rather than keys.
type ArchetypeConfig struct {
	ClassName string `json:"className" mapstructure:"className"`
	Archetype string `json:"archetype" mapstructure:"archetype"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(ConfigFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers every default value. Load calls it; callers that run
// without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./replayerlogs")

	viper.SetDefault("playback.tickRate", DefaultTickRate)
	viper.SetDefault("archetypes", []ArchetypeConfig{})

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./playbacks")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./playback.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "replayer")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "replayer")
	viper.SetDefault("influx.bucket", "playback")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "replayer")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
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

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
	}
}

// GetDBConfig returns the postgres connection section.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the influx section.
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

// GetOTelConfig returns the otel section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetArchetypes returns the configured class name mappings keyed by class name.
// Incomplete entries are skipped.
func GetArchetypes() (map[string]string, error) {
	var entries []ArchetypeConfig
	if err := viper.UnmarshalKey("archetypes", &entries); err != nil {
		return nil, fmt.Errorf("error decoding archetypes: %w", err)
	}

	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.ClassName == "" || e.Archetype == "" {
			continue
		}
		out[e.ClassName] = e.Archetype
	}
	return out, nil
}

// GetTickInterval returns the delay between playback frames. A rate <= 0
// falls back to DefaultTickRate; rates above one tick per nanosecond are
// clamped so the interval stays positive.
func GetTickInterval() time.Duration {
	rate := viper.GetInt("playback.tickRate")
	if rate <= 0 {
		rate = DefaultTickRate
	}
	return max(time.Second/time.Duration(rate), time.Nanosecond)
}
