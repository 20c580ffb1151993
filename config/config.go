package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // presence-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

// Redis — опциональный кэш снапшотов presence. Пустой url — кэш выключен.
type Redis struct {
	URL string `yaml:"url"`
	TTL string `yaml:"ttl"` // duration, default 120s
}

type Auth struct {
	PublicKeyPath string `yaml:"publicKeyPath"` // RS256 public key от auth-service
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
	ClockSkew     string `yaml:"clockSkew"` // duration, default 30s
}

type WS struct {
	SendBuffer   int    `yaml:"sendBuffer"`   // размер исходящей очереди на соединение
	PingInterval string `yaml:"pingInterval"` // duration, default 15s
}

type Prediction struct {
	DefaultSeconds  int64   `yaml:"defaultSeconds"`  // default 600
	StatusSampleMin int     `yaml:"statusSampleMin"` // default 5
	IdleAfter       string  `yaml:"idleAfter"`       // duration, default 1h
	IdleFactor      float64 `yaml:"idleFactor"`      // default 1.2
}

type Config struct {
	HTTP       HTTP       `yaml:"http"`
	Logging    Logging    `yaml:"logging"`
	Postgres   Postgres   `yaml:"postgres"`
	Redis      Redis      `yaml:"redis"`
	Auth       Auth       `yaml:"auth"`
	WS         WS         `yaml:"ws"`
	Prediction Prediction `yaml:"prediction"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Auth.PublicKeyPath == "" {
		return errors.New("auth.publicKeyPath is required")
	}
	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "presence-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.WS.SendBuffer <= 0 {
		c.WS.SendBuffer = 16
	}
	if c.Prediction.DefaultSeconds <= 0 {
		c.Prediction.DefaultSeconds = 600
	}
	if c.Prediction.StatusSampleMin <= 0 {
		c.Prediction.StatusSampleMin = 5
	}
	if c.Prediction.IdleFactor <= 0 {
		c.Prediction.IdleFactor = 1.2
	}
	return nil
}

func (c *Config) RedisTTL() time.Duration      { return parseDurationOr(120*time.Second, c.Redis.TTL) }
func (c *Config) AuthClockSkew() time.Duration { return parseDurationOr(30*time.Second, c.Auth.ClockSkew) }
func (c *Config) WSPingInterval() time.Duration {
	return parseDurationOr(15*time.Second, c.WS.PingInterval)
}
func (c *Config) PredictionIdleAfter() time.Duration {
	return parseDurationOr(time.Hour, c.Prediction.IdleAfter)
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
