package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const envPrefix = "storefront"

// Config is read from STOREFRONT_* environment variables. Command line flags
// win over the environment.
type Config struct {
	HTTPPort        string        `envconfig:"HTTP_PORT" default:"8080"`
	BackendURL      string        `envconfig:"BACKEND_URL" default:"http://localhost:5000/api"`
	BackendTimeout  time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`
	BreakerFailures uint32        `envconfig:"BREAKER_FAILURES" default:"5"`
	BreakerCooldown time.Duration `envconfig:"BREAKER_COOLDOWN" default:"30s"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	// Empty disables activity forwarding.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`

	TabIdleTTL        time.Duration `envconfig:"TAB_IDLE_TTL" default:"30m"`
	MaxTabsPerSession int           `envconfig:"MAX_TABS_PER_SESSION" default:"10"`

	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}

func loadConfig(c *cli.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}

	if c.IsSet("port") {
		cfg.HTTPPort = c.String("port")
	}
	if c.IsSet("backend-url") {
		cfg.BackendURL = c.String("backend-url")
	}
	if c.IsSet("redis-addr") {
		cfg.RedisAddr = c.String("redis-addr")
	}
	if c.IsSet("kafka-brokers") {
		cfg.KafkaBrokers = c.StringSlice("kafka-brokers")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	if cfg.BackendURL == "" {
		return nil, errors.New("backend url is required")
	}
	return &cfg, nil
}

var serveFlags = []cli.Flag{
	&cli.StringFlag{Name: "port", Usage: "HTTP listen port"},
	&cli.StringFlag{Name: "backend-url", Usage: "base URL of the shop REST API"},
	&cli.StringFlag{Name: "redis-addr", Usage: "Redis address for session tokens"},
	&cli.StringSliceFlag{Name: "kafka-brokers", Usage: "Kafka brokers for cart activity"},
	&cli.StringFlag{Name: "log-level", Usage: "log level (debug, info, warn, error)"},
}
