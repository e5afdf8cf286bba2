package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds sqlite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	Path         string        `json:"path" mapstructure:"path"`
}

// WebsocketConfig holds websocket storage backend settings
type WebsocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	Websocket WebsocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry log export settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// APIConfig holds the game-data client settings.
type APIConfig struct {
	BaseURL  string        `json:"baseUrl" mapstructure:"baseUrl"`
	Game     string        `json:"game" mapstructure:"game"`
	CacheDir string        `json:"cacheDir" mapstructure:"cacheDir"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// SolverConfig holds integrator and elevation solver settings.
type SolverConfig struct {
	Step          float64 `json:"step" mapstructure:"step"`
	Tolerance     float64 `json:"tolerance" mapstructure:"tolerance"`
	MaxIterations int     `json:"maxIterations" mapstructure:"maxIterations"`
}

// SweepConfig holds range sweep settings.
type SweepConfig struct {
	Step    float64 `json:"step" mapstructure:"step"`
	Workers int     `json:"workers" mapstructure:"workers"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./shellfall-logs")

	viper.SetDefault("api.baseUrl", "https://gamemodels3d.com")
	viper.SetDefault("api.game", "worldofwarships")
	viper.SetDefault("api.cacheDir", "./cache")
	viper.SetDefault("api.timeout", "30s")

	viper.SetDefault("calibration.file", "")

	viper.SetDefault("solver.step", 0.05)
	viper.SetDefault("solver.tolerance", 1.0)
	viper.SetDefault("solver.maxIterations", 64)

	viper.SetDefault("sweep.step", 500.0)
	viper.SetDefault("sweep.workers", 4)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "shellfall")
	viper.SetDefault("db.timescale", false)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./runs")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.path", "./runs/shellfall.db")
	viper.SetDefault("storage.websocket.url", "ws://localhost:8095/ingest")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "shellfall-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "shellfall-engine")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("shellfall.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
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

// GetStorageConfig returns the storage section. Unset fields keep their
// defaults from Load.
func GetStorageConfig() StorageConfig {
	var sc StorageConfig
	if err := viper.UnmarshalKey("storage", &sc); err != nil {
		return StorageConfig{Type: "memory"}
	}
	return sc
}

// GetOTelConfig returns the otel section.
func GetOTelConfig() OTelConfig {
	var oc OTelConfig
	if err := viper.UnmarshalKey("otel", &oc); err != nil {
		return OTelConfig{}
	}
	return oc
}

// GetAPIConfig returns the api section.
func GetAPIConfig() APIConfig {
	var ac APIConfig
	if err := viper.UnmarshalKey("api", &ac); err != nil {
		return APIConfig{}
	}
	return ac
}

// GetSolverConfig returns the solver section.
func GetSolverConfig() SolverConfig {
	var sc SolverConfig
	if err := viper.UnmarshalKey("solver", &sc); err != nil {
		return SolverConfig{}
	}
	return sc
}

// GetSweepConfig returns the sweep section.
func GetSweepConfig() SweepConfig {
	var sc SweepConfig
	if err := viper.UnmarshalKey("sweep", &sc); err != nil {
		return SweepConfig{}
	}
	return sc
}
