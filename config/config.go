package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/spf13/viper"
)

// Config holds all configuration for the FloatChat session engine
type Config struct {
	General     GeneralConfig     `mapstructure:"general"`
	Server      ServerConfig      `mapstructure:"server"`
	Backend     BackendConfig     `mapstructure:"backend"`
	Acquisition AcquisitionConfig `mapstructure:"acquisition"`
	Session     SessionConfig     `mapstructure:"session"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug bool `mapstructure:"debug"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address     string   `mapstructure:"address"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Normalize applies defaults for unset server values.
func (s ServerConfig) Normalize() ServerConfig {
	s.Address = strings.TrimSpace(s.Address)
	if s.Address == "" {
		s.Address = ":10001"
	} else if s.Address[0] != ':' && !strings.Contains(s.Address, ":") {
		s.Address = ":" + s.Address
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"http://localhost:5173", "http://localhost:3000", "http://127.0.0.1:5173"}
	}
	return s
}

// BackendConfig describes the remote natural-language query service.
type BackendConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	QueryPath string        `mapstructure:"query_path"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

func (b BackendConfig) Validate() error {
	if strings.TrimSpace(b.BaseURL) == "" {
		return fmt.Errorf("backend.base_url required")
	}
	u, err := url.Parse(b.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute URL, got %q", b.BaseURL)
	}
	if b.Timeout < 0 {
		return fmt.Errorf("backend.timeout cannot be negative")
	}
	return nil
}

// AcquisitionConfig controls retries, backoff and scheduled refreshes of the dataset.
type AcquisitionConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BaseBackoff  time.Duration `mapstructure:"base_backoff"`
	InitialQuery string        `mapstructure:"initial_query"`
	RefreshCron  string        `mapstructure:"refresh_cron"`
}

func (a AcquisitionConfig) Validate() error {
	if a.MaxAttempts <= 0 {
		return fmt.Errorf("acquisition.max_attempts must be greater than zero")
	}
	if a.BaseBackoff < 0 {
		return fmt.Errorf("acquisition.base_backoff cannot be negative")
	}
	if strings.TrimSpace(a.InitialQuery) == "" {
		return fmt.Errorf("acquisition.initial_query required")
	}
	if spec := strings.TrimSpace(a.RefreshCron); spec != "" {
		if _, err := cronexpr.Parse(spec); err != nil {
			return fmt.Errorf("acquisition.refresh_cron: %w", err)
		}
	}
	return nil
}

// SessionConfig tunes the adaptive mode controller.
type SessionConfig struct {
	ExpertThreshold int `mapstructure:"expert_threshold"`
	RecentQueries   int `mapstructure:"recent_queries"`
}

func (s SessionConfig) Validate() error {
	if s.ExpertThreshold <= 0 {
		return fmt.Errorf("session.expert_threshold must be greater than zero")
	}
	if s.RecentQueries <= 0 {
		return fmt.Errorf("session.recent_queries must be greater than zero")
	}
	return nil
}

// StorageConfig selects where the last good dataset is cached.
type StorageConfig struct {
	Type        string       `mapstructure:"type"` // redis, memory, none
	SnapshotKey string       `mapstructure:"snapshot_key"`
	Redis       RedisConfig  `mapstructure:"redis"`
	Memory      MemoryConfig `mapstructure:"memory"`
}

func (s StorageConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Type)) {
	case "redis":
		if err := s.Redis.Validate(); err != nil {
			return err
		}
	case "memory", "none":
	default:
		return fmt.Errorf("storage.type must be one of redis, memory, none (got %q)", s.Type)
	}
	if strings.TrimSpace(s.SnapshotKey) == "" {
		return fmt.Errorf("storage.snapshot_key required")
	}
	return nil
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
	TTL      time.Duration `mapstructure:"ttl"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// MemoryConfig contains in-process cache settings
type MemoryConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// TelemetryConfig contains metrics settings
type TelemetryConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":10001")
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.query_path", "/api/query")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("acquisition.max_attempts", 3)
	v.SetDefault("acquisition.base_backoff", 500*time.Millisecond)
	v.SetDefault("acquisition.initial_query", "Show the latest profiles from active floats")
	v.SetDefault("acquisition.refresh_cron", "")
	v.SetDefault("session.expert_threshold", 4)
	v.SetDefault("session.recent_queries", 8)
	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.snapshot_key", "floatchat:snapshot:v1")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.timeout", 5*time.Second)
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.namespace", "floatchat")
}

// LoadConfig loads config from file and FLOATCHAT_* environment variables.
// A missing config file is fine when no explicit path was given.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("json")   // REQUIRED if the config file does not have the extension in the name
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config") // path to look for the config file in
		v.AddConfigPath(".")        // optionally look for config in the working directory
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		v.AddConfigPath(exeDir)                                // bin/
		v.AddConfigPath(filepath.Join(exeDir, "..", "config")) // repo root/config
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("FLOATCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // read in environment variables that match (FLOATCHAT_*)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	config.Server = config.Server.Normalize()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Backend.Validate(); err != nil {
		return err
	}
	if err := c.Acquisition.Validate(); err != nil {
		return err
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return nil
}
