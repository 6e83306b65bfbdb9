package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Device     DeviceConfig     `yaml:"device"`
	Polling    PollingConfig    `yaml:"polling"`
	Auto       AutoConfig       `yaml:"auto"`
	Training   TrainingConfig   `yaml:"training"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DeviceConfig holds connection parameters for the clothesline controller.
type DeviceConfig struct {
	BaseURL           string        `yaml:"base_url"`
	TimeoutSeconds    int           `yaml:"timeout_seconds"`
	Timeout           time.Duration `yaml:"-"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryDelaySeconds int           `yaml:"retry_delay_seconds"`
	RetryDelay        time.Duration `yaml:"-"`
}

// PollingConfig controls the background sensor polling loop.
type PollingConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
}

// AutoConfig holds the auto-control thresholds and command cooldown.
type AutoConfig struct {
	Enabled         bool          `yaml:"enabled"`
	LightThreshold  int           `yaml:"light_threshold"`
	RainThreshold   int           `yaml:"rain_threshold"`
	CooldownSeconds int           `yaml:"cooldown_seconds"`
	Cooldown        time.Duration `yaml:"-"`
}

// TrainingConfig controls the periodic model retraining loop.
type TrainingConfig struct {
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
	WindowSize      int           `yaml:"window_size"`
	ModelPath       string        `yaml:"model_path"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields and derives the duration fields.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}

	cfg.Device.BaseURL = NormalizeBaseURL(cfg.Device.BaseURL)
	if cfg.Device.TimeoutSeconds <= 0 {
		cfg.Device.TimeoutSeconds = 5
	}
	cfg.Device.Timeout = time.Duration(cfg.Device.TimeoutSeconds) * time.Second
	if cfg.Device.MaxRetries <= 0 {
		cfg.Device.MaxRetries = 3
	}
	if cfg.Device.RetryDelaySeconds <= 0 {
		cfg.Device.RetryDelaySeconds = 1
	}
	cfg.Device.RetryDelay = time.Duration(cfg.Device.RetryDelaySeconds) * time.Second

	if cfg.Polling.IntervalSeconds <= 0 {
		cfg.Polling.IntervalSeconds = 3
	}
	cfg.Polling.Interval = time.Duration(cfg.Polling.IntervalSeconds) * time.Second

	if cfg.Auto.LightThreshold <= 0 {
		cfg.Auto.LightThreshold = 500
	}
	if cfg.Auto.RainThreshold <= 0 {
		cfg.Auto.RainThreshold = 500
	}
	if cfg.Auto.CooldownSeconds <= 0 {
		cfg.Auto.CooldownSeconds = 60
	}
	cfg.Auto.Cooldown = time.Duration(cfg.Auto.CooldownSeconds) * time.Second

	if cfg.Training.IntervalSeconds <= 0 {
		cfg.Training.IntervalSeconds = 1800
	}
	cfg.Training.Interval = time.Duration(cfg.Training.IntervalSeconds) * time.Second
	if cfg.Training.WindowSize <= 0 {
		cfg.Training.WindowSize = 3
	}
	if cfg.Training.ModelPath == "" {
		cfg.Training.ModelPath = "models/rain_model.json"
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "data/sensor_data.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}

// NormalizeBaseURL prefixes a scheme when the operator supplied a bare host.
func NormalizeBaseURL(raw string) string {
	if raw == "" {
		return raw
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "http://" + raw
	}
	return raw
}
