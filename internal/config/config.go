package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/units"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/disk-span/internal/storage"
)

const (
	// DefaultOutput is the file name the move script is written to when no output is configured.
	DefaultOutput = "move_files.sh"

	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

var (
	// ErrMissingSource is returned by ValidatePlan when no source directory is set.
	ErrMissingSource = errors.New("source directory is required")
	// ErrMissingDestination is returned by ValidatePlan when no destination root is set.
	ErrMissingDestination = errors.New("destination root is required")
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > Environment variables > YAML config > Defaults
type Config struct {
	Source       string
	Destination  string
	Capacity     int64
	Output       string
	ManifestPath string
	Excludes     []string
	LogLevel     string

	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Source      string     `yaml:"source"`
	Destination string     `yaml:"destination"`
	Capacity    string     `yaml:"capacity"`
	Output      string     `yaml:"output"`
	Manifest    string     `yaml:"manifest"`
	Excludes    []string   `yaml:"excludes"`
	LogLevel    string     `yaml:"log_level"`
	Server      yamlServer `yaml:"server"`
}

// yamlServer represents the server section in YAML.
type yamlServer struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Source         *string
	Destination    *string
	CapacityStr    *string
	Output         *string
	ManifestPath   *string
	Excludes       []string
	LogLevel       *string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > YAML config > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Load from YAML file if specified
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply environment variables (override YAML)
	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("apply environment config: %w", err)
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ValidatePlan checks the settings the plan command needs on top of Load's validation.
func (c Config) ValidatePlan() error {
	if strings.TrimSpace(c.Source) == "" {
		return ErrMissingSource
	}
	if strings.TrimSpace(c.Destination) == "" {
		return ErrMissingDestination
	}
	return nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Capacity:             storage.DefaultCapacity,
		Output:               DefaultOutput,
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Source != "" {
		cfg.Source = yamlCfg.Source
	}

	if yamlCfg.Destination != "" {
		cfg.Destination = yamlCfg.Destination
	}

	if yamlCfg.Capacity != "" {
		capacity, err := ParseCapacity(yamlCfg.Capacity)
		if err != nil {
			return fmt.Errorf("capacity: %w", err)
		}
		cfg.Capacity = capacity
	}

	if yamlCfg.Output != "" {
		cfg.Output = yamlCfg.Output
	}

	if yamlCfg.Manifest != "" {
		cfg.ManifestPath = yamlCfg.Manifest
	}

	if len(yamlCfg.Excludes) > 0 {
		cfg.Excludes = yamlCfg.Excludes
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	srv := yamlCfg.Server
	if srv.Port != "" {
		cfg.Port = srv.Port
	}

	if srv.ShutdownGracePeriod != "" {
		if d, err := time.ParseDuration(srv.ShutdownGracePeriod); err == nil {
			cfg.ShutdownGracePeriod = d
		}
	}

	if srv.ReadHeaderTimeout != "" {
		if d, err := time.ParseDuration(srv.ReadHeaderTimeout); err == nil {
			cfg.ReadHeaderTimeout = d
		}
	}

	if srv.WriteTimeout != "" {
		if d, err := time.ParseDuration(srv.WriteTimeout); err == nil {
			cfg.WriteTimeout = d
		}
	}

	if srv.IdleTimeout != "" {
		if d, err := time.ParseDuration(srv.IdleTimeout); err == nil {
			cfg.IdleTimeout = d
		}
	}

	if srv.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *srv.EnableRequestLogging
	}

	if srv.RateLimit.RPS != nil && *srv.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = *srv.RateLimit.RPS
	}

	if srv.RateLimit.Burst != nil && *srv.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = *srv.RateLimit.Burst
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	if src := strings.TrimSpace(os.Getenv("DISKSPAN_SOURCE")); src != "" {
		cfg.Source = src
	}

	if dest := strings.TrimSpace(os.Getenv("DISKSPAN_DEST")); dest != "" {
		cfg.Destination = dest
	}

	if raw := strings.TrimSpace(os.Getenv("DISKSPAN_CAPACITY")); raw != "" {
		capacity, err := ParseCapacity(raw)
		if err != nil {
			return fmt.Errorf("DISKSPAN_CAPACITY: %w", err)
		}
		cfg.Capacity = capacity
	}

	if output := strings.TrimSpace(os.Getenv("DISKSPAN_OUTPUT")); output != "" {
		cfg.Output = output
	}

	if level := strings.TrimSpace(os.Getenv("DISKSPAN_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.Source != nil && *overrides.Source != "" {
		cfg.Source = *overrides.Source
	}

	if overrides.Destination != nil && *overrides.Destination != "" {
		cfg.Destination = *overrides.Destination
	}

	if overrides.CapacityStr != nil && *overrides.CapacityStr != "" {
		capacity, err := ParseCapacity(*overrides.CapacityStr)
		if err != nil {
			return fmt.Errorf("parse capacity: %w", err)
		}
		cfg.Capacity = capacity
	}

	if overrides.Output != nil && *overrides.Output != "" {
		cfg.Output = *overrides.Output
	}

	if overrides.ManifestPath != nil && *overrides.ManifestPath != "" {
		cfg.ManifestPath = *overrides.ManifestPath
	}

	if len(overrides.Excludes) > 0 {
		cfg.Excludes = overrides.Excludes
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if strings.TrimSpace(cfg.Output) == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	return nil
}

// ParseCapacity parses a byte count. Plain integers are bytes; metric (KB, MB,
// GB, TB) and binary (KiB, MiB, GiB, TiB) suffixes are accepted too.
func ParseCapacity(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty capacity")
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		value, err = units.ParseStrictBytes(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid capacity %q", raw)
		}
	}

	if value <= 0 {
		return 0, fmt.Errorf("capacity must be positive, got %d", value)
	}
	return value, nil
}
