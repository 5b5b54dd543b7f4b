package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           int           `env:"PORT" envDefault:"5000"`
	MongoURI       string        `env:"MONGO_URI"`
	MongoDB        string        `env:"MONGO_DB" envDefault:"civicreport"`
	StoreBackend   string        `env:"STORE_BACKEND" envDefault:"mongo"`
	JwtSecret      string        `env:"JWT_SECRET,required,notEmpty"`
	JwtExpires     time.Duration `env:"JWT_EXPIRES" envDefault:"168h"`
	RedisAddress   string        `env:"REDIS_ADDRESS"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	IssueLimitKey  string        `env:"REDIS_QUEUE_FOR_ISSUE_LIMIT" envDefault:"issue-limit"`
	IssueDailyMax  int           `env:"ISSUE_DAILY_LIMIT" envDefault:"20"`
	StatusRoles    []string      `env:"STATUS_UPDATE_ROLES" envSeparator:","`
	AllowSelfRoles bool          `env:"ALLOW_SELF_ASSIGNED_ROLES" envDefault:"false"`
	CorsOrigins    []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
}

// New loads .env when present and parses the environment into a Config.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_BACKEND=mongo")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.IssueDailyMax < 1 {
		return fmt.Errorf("ISSUE_DAILY_LIMIT must be positive, got %d", c.IssueDailyMax)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
