package domain

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds the complete mulewatch configuration.
type Config struct {
	Tier       Tier             `json:"tier" yaml:"tier"`
	Server     ServerConfig     `json:"server" yaml:"server"`
	Repository RepositoryConfig `json:"repository" yaml:"repository"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Tracing    TracingConfig    `json:"tracing" yaml:"tracing"`
	Detection  DetectionConfig  `json:"detection" yaml:"detection"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host" yaml:"host"`
	Port         int    `json:"port" yaml:"port"`
	ReadTimeout  int    `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout int    `json:"writeTimeout" yaml:"writeTimeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	ServiceName  string `json:"serviceName" yaml:"serviceName"`
	ExporterType string `json:"exporterType" yaml:"exporterType"`
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
}

// Tier represents the deployment tier, which selects the repository
// and cache drivers.
type Tier string

const (
	TierCommunity Tier = "community"
	TierPro       Tier = "pro"
)

// DetectionConfig holds every detector tunable from spec.md §4.2-§4.4,
// defaulted to the spec's own constants.
type DetectionConfig struct {
	// Cycle detector
	MaxCycleLength  int           `json:"maxCycleLength" yaml:"maxCycleLength"`
	CycleWindow     time.Duration `json:"cycleWindow" yaml:"cycleWindow"`
	MaxCycles       int           `json:"maxCycles" yaml:"maxCycles"`
	FrameBudget     int           `json:"frameBudget" yaml:"frameBudget"`

	// Smurfing detector
	SmurfThreshold int           `json:"smurfThreshold" yaml:"smurfThreshold"`
	SmurfWindow    time.Duration `json:"smurfWindow" yaml:"smurfWindow"`

	// Shell detector
	ShellMinEdges        int `json:"shellMinEdges" yaml:"shellMinEdges"`
	ShellMaxEdges        int `json:"shellMaxEdges" yaml:"shellMaxEdges"`
	ShellMaxIntermediate int `json:"shellMaxIntermediateTxns" yaml:"shellMaxIntermediateTxns"`
	ShellMaxPaths        int `json:"shellMaxPaths" yaml:"shellMaxPaths"`
	ShellPerSourceCap    int `json:"shellPerSourceCap" yaml:"shellPerSourceCap"`
}

// DefaultConfig returns the Community-tier defaults, matching spec.md's
// defaults for every detection tunable.
func DefaultConfig() *Config {
	return &Config{
		Tier: TierCommunity,
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./mulewatch.db",
		},
		Cache: CacheConfig{
			Type:     "memory",
			MaxSize:  10000,
			TTL:      5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "mulewatch",
		},
		Detection: DetectionConfig{
			MaxCycleLength:       5,
			CycleWindow:          72 * time.Hour,
			MaxCycles:            5000,
			FrameBudget:          30000,
			SmurfThreshold:       10,
			SmurfWindow:          72 * time.Hour,
			ShellMinEdges:        3,
			ShellMaxEdges:        6,
			ShellMaxIntermediate: 3,
			ShellMaxPaths:        2000,
			ShellPerSourceCap:    200,
		},
	}
}

// ProConfig returns a configuration for the Pro tier: Postgres
// repository and Redis cache in place of the Community defaults.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "mulewatch",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		MaxSize:        1000,
	}
	cfg.Tracing.Enabled = true
	return cfg
}

// LoadConfigFile overlays a YAML file's values onto base, leaving any
// field the file omits at base's value (a zero-value Config passed as
// base would instead zero out everything the file doesn't set).
func LoadConfigFile(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := *base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}
