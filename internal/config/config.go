// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev     bool
	Migrate bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// RedisConfig is optional; an empty URL runs sessions and locks in process.
type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // results cache
}

// SessionConfig.LockTTL is raised to cover a full gateway call budget; see PaymentConfig.CallBudget.
type SessionConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

type PaymentConfig struct {
	Paystack struct {
		SecretKey   string        `yaml:"secret_key"`
		BaseURL     string        `yaml:"base_url"`
		CallbackURL string        `yaml:"callback_url"`
		Timeout     time.Duration `yaml:"timeout"`
		RatePerSec  float64       `yaml:"rate_per_sec"`
		Burst       int           `yaml:"burst"`
	} `yaml:"paystack"`
	Retry struct {
		Attempts  int           `yaml:"attempts"`
		BaseDelay time.Duration `yaml:"base_delay"`
		MaxDelay  time.Duration `yaml:"max_delay"`
	} `yaml:"retry"`
}

// CallBudget is the longest a retried gateway call can take: every attempt timing out,
// plus the capped backoff between attempts.
func (p PaymentConfig) CallBudget() time.Duration {
	n := time.Duration(p.Retry.Attempts)
	return n*p.Paystack.Timeout + (n-1)*p.Retry.MaxDelay
}

type AuthConfig struct {
	AdminKey  string        `yaml:"admin_key"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type ReconcilerConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Interval  time.Duration `yaml:"interval"`
	MinAge    time.Duration `yaml:"min_age"`
	MaxAge    time.Duration `yaml:"max_age"`
	BatchSize int           `yaml:"batch_size"`
}

type WorkersConfig struct {
	Size  int `yaml:"size"`
	Queue int `yaml:"queue"`
}

type USSDConfig struct {
	ServiceCode   string        `yaml:"service_code"` // e.g. *920*55
	DefaultRegion string        `yaml:"default_region"`
	Locale        string        `yaml:"locale"`
	RateLimit     int           `yaml:"rate_limit"`
	RateWindow    time.Duration `yaml:"rate_window"`
	PayerDomain   string        `yaml:"payer_domain"`
	Currency      string        `yaml:"currency"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Session    SessionConfig    `yaml:"session"`
	Payment    PaymentConfig    `yaml:"payment"`
	Auth       AuthConfig       `yaml:"auth"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Workers    WorkersConfig    `yaml:"workers"`
	USSD       USSDConfig       `yaml:"ussd"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string = ""
	var dev, migrate bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.BoolVar(&migrate, "migrate", false, "apply embedded migrations before serving")
	flag.Parse()

	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	cfg.Runtime.Migrate = migrate
	return cfg, nil
}

// Parse expands ${VAR} references from the environment, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Payment.Paystack.SecretKey == "" {
		return nil, errors.New("payment.paystack.secret_key is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if cfg.Reconciler.MinAge >= cfg.Reconciler.MaxAge {
		return nil, errors.New("reconciler.min_age must be below reconciler.max_age")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL, 5*time.Minute)
	cfg.Session.TTL = normalizeTTL(cfg.Session.TTL, 5*time.Minute)

	ps := &cfg.Payment.Paystack
	if ps.BaseURL == "" {
		ps.BaseURL = "https://api.paystack.co"
	}
	ps.Timeout = normalizeTTL(ps.Timeout, 10*time.Second)
	if ps.RatePerSec <= 0 {
		ps.RatePerSec = 10
	}
	if ps.Burst <= 0 {
		ps.Burst = 5
	}
	rt := &cfg.Payment.Retry
	if rt.Attempts <= 0 {
		rt.Attempts = 3
	}
	rt.BaseDelay = normalizeTTL(rt.BaseDelay, 200*time.Millisecond)
	rt.MaxDelay = normalizeTTL(rt.MaxDelay, 2*time.Second)

	// a USSD step holds the caller's lock across a paid-vote gateway call
	if floor := cfg.Payment.CallBudget() + 5*time.Second; cfg.Session.LockTTL < floor {
		cfg.Session.LockTTL = floor
	}

	cfg.Auth.TokenTTL = normalizeTTL(cfg.Auth.TokenTTL, 12*time.Hour)

	rc := &cfg.Reconciler
	rc.Interval = normalizeTTL(rc.Interval, time.Minute)
	rc.MinAge = normalizeTTL(rc.MinAge, 2*time.Minute)
	rc.MaxAge = normalizeTTL(rc.MaxAge, 24*time.Hour)
	if rc.BatchSize <= 0 {
		rc.BatchSize = 50
	}

	if cfg.Workers.Size <= 0 {
		cfg.Workers.Size = 4
	}
	if cfg.Workers.Queue <= 0 {
		cfg.Workers.Queue = 256
	}

	if cfg.USSD.DefaultRegion == "" {
		cfg.USSD.DefaultRegion = "GH"
	}
	if cfg.USSD.Locale == "" {
		cfg.USSD.Locale = "en"
	}
	if cfg.USSD.RateLimit <= 0 {
		cfg.USSD.RateLimit = 30
	}
	cfg.USSD.RateWindow = normalizeTTL(cfg.USSD.RateWindow, time.Minute)
	if cfg.USSD.PayerDomain == "" {
		cfg.USSD.PayerDomain = "votelab.com"
	}
	if cfg.USSD.Currency == "" {
		cfg.USSD.Currency = "GHS"
	}
}

func normalizeTTL(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
