package config

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Addr         string
	DatabasePath string

	LogLevel  string
	LogFormat string

	QueryTimeout    time.Duration
	ShutdownTimeout time.Duration

	BreakerFailures uint32
	BreakerCooldown time.Duration
}

var (
	ErrAddrIsRequired         = errors.New("addr is required")
	ErrDatabasePathIsRequired = errors.New("db is required")
	ErrInvalidLogLevel        = errors.New("log-level is not a valid level")
	ErrInvalidLogFormat       = errors.New("log-format must be text or json")
	ErrNegativeDuration       = errors.New("timeouts must not be negative")
)

func New(addr, databasePath, logLevel, logFormat string) *Config {
	return &Config{
		Addr:            addr,
		DatabasePath:    databasePath,
		LogLevel:        logLevel,
		LogFormat:       logFormat,
		ShutdownTimeout: 10 * time.Second,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrAddrIsRequired
	}

	if c.DatabasePath == "" {
		return ErrDatabasePathIsRequired
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return ErrInvalidLogLevel
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return ErrInvalidLogFormat
	}

	if c.QueryTimeout < 0 || c.ShutdownTimeout < 0 || c.BreakerCooldown < 0 {
		return ErrNegativeDuration
	}

	return nil
}
