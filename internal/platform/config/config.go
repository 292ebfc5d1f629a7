// Package config loads server configuration from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	normalize "fitgap/pkg/platform/strings"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Auth     AuthConfig     `yaml:"auth"`
	SignOff  SignOffConfig  `yaml:"signoff"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"SERVER_ADDR"             env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL settings. An empty DSN selects in-memory stores.
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns         int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"20"`
	MinConns         int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	MigrateOnStartup bool          `yaml:"migrate_on_startup" env:"DATABASE_MIGRATE_ON_STARTUP" env-default:"true"`
}

// RedisConfig holds the comparison cache settings. An empty URL disables Redis.
type RedisConfig struct {
	URL           string        `yaml:"url"            env:"REDIS_URL"`
	PoolSize      int           `yaml:"pool_size"      env:"REDIS_POOL_SIZE"      env-default:"10"`
	MinIdleConns  int           `yaml:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" env-default:"2"`
	DialTimeout   time.Duration `yaml:"dial_timeout"   env:"REDIS_DIAL_TIMEOUT"   env-default:"5s"`
	ReadTimeout   time.Duration `yaml:"read_timeout"   env:"REDIS_READ_TIMEOUT"   env-default:"3s"`
	WriteTimeout  time.Duration `yaml:"write_timeout"  env:"REDIS_WRITE_TIMEOUT"  env-default:"3s"`
	ComparisonTTL time.Duration `yaml:"comparison_ttl" env:"REDIS_COMPARISON_TTL" env-default:"24h"`
}

// KafkaConfig holds decision log stream settings. No brokers disables streaming.
type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"            env:"KAFKA_BROKERS"            env-separator:","`
	DecisionLogTopic  string   `yaml:"decision_log_topic" env:"KAFKA_DECISION_LOG_TOPIC" env-default:"fitgap.decision-log"`
	Partitions        int32    `yaml:"partitions"         env:"KAFKA_PARTITIONS"         env-default:"6"`
	ReplicationFactor int16    `yaml:"replication_factor" env:"KAFKA_REPLICATION_FACTOR" env-default:"1"`

	// Consecutive publish failures before the stream stops calling the broker.
	BreakerThreshold int           `yaml:"breaker_threshold" env:"KAFKA_BREAKER_THRESHOLD" env-default:"5"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"  env:"KAFKA_BREAKER_COOLDOWN"  env-default:"1m"`
}

// AuthConfig holds bearer token validation settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-default:"dev-secret-key-change-in-production-32b"`
	JWTIssuer string `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER" env-default:"fitgap"`
}

// SignOffConfig holds the sign-off workflow rules.
type SignOffConfig struct {
	RequiredAreas      []string `yaml:"required_areas"        env:"SIGNOFF_REQUIRED_AREAS"        env-separator:"," env-default:"finance,controlling,sales_distribution,materials_management,production_planning"`
	InitiationStatuses []string `yaml:"initiation_statuses"   env:"SIGNOFF_INITIATION_STATUSES"   env-separator:"," env-default:"in_progress,reviewed,completed"`
	AuthorityMinLength int      `yaml:"authority_min_length"  env:"SIGNOFF_AUTHORITY_MIN_LENGTH"  env-default:"20"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults. The file path comes from CONFIG_PATH
// (fallback "./config.yaml"); a missing default file means ENV + defaults only.
func Load() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	explicitPath := path != ""
	if !explicitPath {
		path = "./config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks business rules that struct tags cannot express.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}
	c.SignOff.RequiredAreas = normalize.KeyList(c.SignOff.RequiredAreas)
	if len(c.SignOff.RequiredAreas) == 0 {
		return fmt.Errorf("signoff.required_areas must not be empty")
	}
	c.SignOff.InitiationStatuses = normalize.KeyList(c.SignOff.InitiationStatuses)
	if len(c.SignOff.InitiationStatuses) == 0 {
		return fmt.Errorf("signoff.initiation_statuses must not be empty")
	}
	if c.SignOff.AuthorityMinLength < 1 {
		return fmt.Errorf("signoff.authority_min_length must be > 0 (got %d)", c.SignOff.AuthorityMinLength)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.DecisionLogTopic == "" {
		return fmt.Errorf("kafka.decision_log_topic is required when brokers are set")
	}
	return nil
}
