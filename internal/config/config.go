package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Address        string        `env:"RUN_ADDRESS"`
	APIAddress     string        `env:"PAYOUTS_API_ADDRESS"`
	DatabaseDSN    string        `env:"DATABASE_URI"`
	RedisAddress   string        `env:"REDIS_ADDRESS"`
	SessionSecret  string        `env:"SESSION_SECRET"`
	SessionTTL     time.Duration `env:"SESSION_TTL"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	LogLevel       string        `env:"LOG_LEVEL"`
	Timezone       string        `env:"TIMEZONE"`
}

func NewConfig() (*Config, error) {
	// .env не обязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed load .env: %w", err)
	}
	return parse(os.Args[0], os.Args[1:])
}

func parse(name string, args []string) (*Config, error) {
	var cfg Config

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.Address, "a", "localhost:8080", "server address")
	fs.StringVar(&cfg.APIAddress, "r", "", "payouts api address")
	fs.StringVar(&cfg.DatabaseDSN, "d", "", "database dsn for sessions")
	fs.StringVar(&cfg.RedisAddress, "redis", "", "redis address for sessions")
	fs.StringVar(&cfg.SessionSecret, "s", "", "secret for session cookie")
	fs.DurationVar(&cfg.SessionTTL, "ttl", time.Hour, "session ttl")
	fs.DurationVar(&cfg.RequestTimeout, "t", 5*time.Second, "payouts api request timeout")
	fs.StringVar(&cfg.LogLevel, "l", "info", "log level")
	fs.StringVar(&cfg.Timezone, "tz", "UTC", "timezone for monthly summary")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	if cfg.Address == "" {
		return nil, errors.New("server address is required")
	}
	_, port, err := net.SplitHostPort(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("bad format, use host:port: %w", err)
	}
	_, err = strconv.ParseUint(port, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("port required only digest: %w", err)
	}

	if cfg.APIAddress == "" {
		return nil, errors.New("payouts api address is required")
	}
	u, err := url.Parse(cfg.APIAddress)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("bad payouts api address %q, use scheme://host", cfg.APIAddress)
	}

	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, errors.New("request timeout must be positive")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("bad timezone: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
