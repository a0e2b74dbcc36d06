package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the process-wide configuration, populated by Load from
// environment variables (DURABLEX_* prefix), an optional YAML file, and
// the defaults set in setDefaults.
type Config struct {
	Database DatabaseConfig
	Worker   WorkerConfig
	Notify   NotifyConfig
	API      APIConfig
	Metrics  MetricsConfig
	DSL      DSLConfig
	Defaults DefaultsConfig
	LogLevel string
}

// DefaultsConfig carries the engine specification §6 defaults that are
// not specific to any one worker process: per-task and per-workflow
// timeouts, the retry budget, and the exponential backoff bounds applied
// when an Execution's own fields don't override them.
type DefaultsConfig struct {
	Timeout          time.Duration
	WorkflowTimeout  time.Duration
	Retries          int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
}

// DatabaseConfig configures the Postgres connection pool backing the
// Store (engine specification §6, "database_url" plus this expansion's
// pool-sizing keys, SPEC_FULL §12).
type DatabaseConfig struct {
	URL         string
	MaxConns    int32
	MinConns    int32
	DialTimeout time.Duration
	AutoMigrate bool
}

// WorkerConfig configures one Worker process: which queues it serves, how
// many executions it runs concurrently, and its liveness cadence.
type WorkerConfig struct {
	ID                string
	Queues            []string
	Concurrency       int
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	ShutdownTimeout   time.Duration
	BatchSize         int
}

// NotifyConfig configures the LISTEN/NOTIFY wake-up channel namespace.
type NotifyConfig struct {
	ChannelPrefix string
}

// APIConfig configures the optional HTTP introspection surface (engine
// specification §6 over HTTP, SPEC_FULL §11 — "for client introspection,
// not an RPC surface between workers").
type APIConfig struct {
	Enabled      bool
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	AuthKeys     []string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

// DSLConfig points at the .flow workflow sources to parse and register at
// startup (SPEC_FULL §12, "dsl_sources").
type DSLConfig struct {
	Sources []string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/durablex")

	setDefaults()

	viper.SetEnvPrefix("DURABLEX")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	// Database defaults
	viper.SetDefault("database.url", "postgres://localhost:5432/durablex?sslmode=disable")
	viper.SetDefault("database.maxconns", 20)
	viper.SetDefault("database.minconns", 2)
	viper.SetDefault("database.dialtimeout", 5*time.Second)
	viper.SetDefault("database.automigrate", false)

	// Worker defaults
	viper.SetDefault("worker.id", "")
	viper.SetDefault("worker.queues", []string{"default"})
	viper.SetDefault("worker.concurrency", 10)
	viper.SetDefault("worker.pollinterval", 2*time.Second)
	viper.SetDefault("worker.batchsize", 10)
	viper.SetDefault("worker.heartbeatinterval", 5*time.Second)
	viper.SetDefault("worker.heartbeattimeout", 15*time.Second)
	viper.SetDefault("worker.shutdowntimeout", 30*time.Second)

	// Notify defaults
	viper.SetDefault("notify.channelprefix", "durablex_queue_")

	// API defaults
	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.addr", ":8080")
	viper.SetDefault("api.readtimeout", 30*time.Second)
	viper.SetDefault("api.writetimeout", 30*time.Second)
	viper.SetDefault("api.idletimeout", 120*time.Second)
	viper.SetDefault("api.authkeys", []string{})

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	// DSL defaults
	viper.SetDefault("dsl.sources", []string{})

	// Execution defaults (engine specification §6)
	viper.SetDefault("defaults.timeout", 30*time.Second)
	viper.SetDefault("defaults.workflowtimeout", 24*time.Hour)
	viper.SetDefault("defaults.retries", 3)
	viper.SetDefault("defaults.retrybackoffbase", 1*time.Second)
	viper.SetDefault("defaults.retrybackoffmax", 5*time.Minute)

	// Logging defaults
	viper.SetDefault("loglevel", "info")
}
