package ecsquery

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/argus-labs/ecsquery/gamestate"
	"github.com/argus-labs/ecsquery/query"
	"github.com/argus-labs/ecsquery/statsd"
	"github.com/argus-labs/ecsquery/storage/redis"
)

// Config holds the process level settings of the module. Configuration can be set via environment variables
// with the specified defaults.
type Config struct {
	// Log level, one of zerolog's level names.
	LogLevel string `env:"ECSQUERY_LOG_LEVEL" envDefault:"info"`

	// Human readable console output instead of JSON.
	PrettyLog bool `env:"ECSQUERY_PRETTY_LOG" envDefault:"false"`

	// Address of the statsd agent. Metrics are disabled when empty.
	StatsdAddress string `env:"ECSQUERY_STATSD_ADDRESS"`

	// Tags added to every metric, e.g. "env:prod,region:eu".
	StatsdTags []string `env:"ECSQUERY_STATSD_TAGS" envSeparator:","`

	// Send query spans to the datadog agent. The agent is located through the usual DD_* variables.
	TraceEnabled bool `env:"ECSQUERY_TRACE_ENABLED" envDefault:"false"`

	// Address of the redis server storing component schemas. Schema validation is disabled when empty.
	RedisAddress string `env:"ECSQUERY_REDIS_ADDRESS"`

	RedisPassword string `env:"ECSQUERY_REDIS_PASSWORD"`

	// Namespace of the redis keys.
	Namespace string `env:"ECSQUERY_NAMESPACE" envDefault:"ecsquery"`
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (Config, error) {
	cfg := Config{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse config")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate config")
	}

	return cfg, nil
}

// Validate performs validation on the loaded configuration.
func (cfg *Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return eris.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.RedisAddress != "" && cfg.Namespace == "" {
		return eris.New("namespace cannot be empty when redis is configured")
	}
	return nil
}

// Setup applies the logging, metrics and tracing settings to the process wide logger, statsd client and tracer.
// Library logging stays disabled until Setup runs. Call Shutdown before exiting to flush pending spans.
func Setup(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	zerolog.SetGlobalLevel(level)
	if cfg.PrettyLog {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	query.SetLogger(log.Logger)

	if cfg.StatsdAddress != "" {
		if err := statsd.Init(cfg.StatsdAddress, cfg.StatsdTags); err != nil {
			return eris.Wrap(err, "failed to init statsd")
		}
	}

	if cfg.TraceEnabled {
		tracer.Start(tracer.WithService("ecsquery"), tracer.WithRuntimeMetrics())
	}
	return nil
}

// Shutdown stops the tracer started by Setup. It is safe to call when tracing was never enabled.
func Shutdown() {
	tracer.Stop()
}

// NewState creates an entity store. When redis is configured, component schemas are persisted and validated
// on registration. The returned close function releases the redis connection.
func NewState(cfg Config) (*gamestate.State, func() error, error) {
	if cfg.RedisAddress == "" {
		return gamestate.New(gamestate.WithLogger(log.Logger)), func() error { return nil }, nil
	}

	rs := redis.NewRedisStorage(redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0, // use default DB
	}, cfg.Namespace)

	if err := rs.Ping(context.Background()); err != nil {
		_ = rs.Close()
		return nil, nil, err
	}

	s := gamestate.New(gamestate.WithSchemaStorage(rs.SchemaStorage), gamestate.WithLogger(log.Logger))
	return s, rs.Close, nil
}
