package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TTL       time.Duration `yaml:"ttl"`
}

type PaymentConfig struct {
	Paystack struct {
		SecretKey   string `yaml:"secret_key"`
		BaseURL     string `yaml:"base_url"` // override for sandboxes/tests
		CallbackURL string `yaml:"callback_url"`
	} `yaml:"paystack"`
}

type SchedulerConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	StaleAfter        time.Duration `yaml:"stale_after"`
}

type RateLimitConfig struct {
	VerifyPerMinute int `yaml:"verify_per_minute"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Payment   PaymentConfig   `yaml:"payment"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads and validates the YAML config at path.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("config: database.url is required")
	}
	if cfg.Payment.Paystack.SecretKey == "" && !dev {
		return nil, fmt.Errorf("config: payment.paystack.secret_key is required outside dev mode")
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Auth.TTL <= 0 {
		cfg.Auth.TTL = 24 * time.Hour
	}
	if cfg.Payment.Paystack.BaseURL == "" {
		cfg.Payment.Paystack.BaseURL = "https://api.paystack.co"
	}
	if cfg.Scheduler.ReconcileInterval <= 0 {
		cfg.Scheduler.ReconcileInterval = time.Minute
	}
	if cfg.Scheduler.StaleAfter <= 0 {
		cfg.Scheduler.StaleAfter = 10 * time.Minute
	}
	if cfg.RateLimit.VerifyPerMinute <= 0 {
		cfg.RateLimit.VerifyPerMinute = 30
	}
}
