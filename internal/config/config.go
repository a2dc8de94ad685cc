package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	Kafka     KafkaConfig     `toml:"kafka"`
	Quotes    QuotesConfig    `toml:"quotes"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string   `toml:"port"`
	Host            string   `toml:"host"`
	CORSOrigins     []string `toml:"cors_origins"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DBName   string `toml:"dbname"`
	SSLMode  string `toml:"sslmode"`
}

// RedisConfig holds the quote cache connection
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	PoolSize int    `toml:"pool_size"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled       bool     `toml:"enabled"`
	Brokers       []string `toml:"brokers"`
	Topic         string   `toml:"topic"`
	InboundTopic  string   `toml:"inbound_topic"`
	ConsumerGroup string   `toml:"consumer_group"`
}

// QuotesConfig controls the market data client and quote resolution
type QuotesConfig struct {
	RateLimit      int      `toml:"rate_limit"`
	RequestTimeout duration `toml:"request_timeout"`
	Concurrency    int      `toml:"concurrency"`
	SymbolTimeout  duration `toml:"symbol_timeout"`
	BatchTimeout   duration `toml:"batch_timeout"`
	RetryBackoff   duration `toml:"retry_backoff"`
	CacheTTL       duration `toml:"cache_ttl"`
}

// SchedulerConfig controls background jobs
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	WarmSpec string `toml:"warm_spec"`
}

// LogConfig controls logging output
type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// duration decodes TOML strings like "5m" or "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the configuration used when nothing is overridden
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: duration{10 * time.Second},
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "portfolio",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Enabled:  true,
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			Topic:         "portfolio-events",
			InboundTopic:  "broker-events",
			ConsumerGroup: "portfolio-service",
		},
		Quotes: QuotesConfig{
			RateLimit:      10,
			RequestTimeout: duration{10 * time.Second},
			Concurrency:    8,
			SymbolTimeout:  duration{10 * time.Second},
			BatchTimeout:   duration{20 * time.Second},
			RetryBackoff:   duration{500 * time.Millisecond},
			CacheTTL:       duration{10 * time.Minute},
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			WarmSpec: "@every 5m",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, then an optional TOML file
// named by CONFIG_FILE, then environment variables. A .env file, if present,
// is loaded into the environment first.
func Load() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setStr(&cfg.Server.Port, "SERVER_PORT")
	setStr(&cfg.Server.Host, "SERVER_HOST")
	setStringSlice(&cfg.Server.CORSOrigins, "CORS_ORIGINS")
	setDuration(&cfg.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")

	setStr(&cfg.Database.Host, "DB_HOST")
	setStr(&cfg.Database.Port, "DB_PORT")
	setStr(&cfg.Database.User, "DB_USER")
	setStr(&cfg.Database.Password, "DB_PASSWORD")
	setStr(&cfg.Database.DBName, "DB_NAME")
	setStr(&cfg.Database.SSLMode, "DB_SSLMODE")

	setBool(&cfg.Redis.Enabled, "REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "REDIS_POOL_SIZE")

	setBool(&cfg.Kafka.Enabled, "KAFKA_ENABLED")
	setStringSlice(&cfg.Kafka.Brokers, "KAFKA_BROKERS")
	setStr(&cfg.Kafka.Topic, "KAFKA_TOPIC")
	setStr(&cfg.Kafka.InboundTopic, "KAFKA_INBOUND_TOPIC")
	setStr(&cfg.Kafka.ConsumerGroup, "KAFKA_CONSUMER_GROUP")

	setInt(&cfg.Quotes.RateLimit, "QUOTES_RATE_LIMIT")
	setDuration(&cfg.Quotes.RequestTimeout, "QUOTES_REQUEST_TIMEOUT")
	setInt(&cfg.Quotes.Concurrency, "QUOTES_CONCURRENCY")
	setDuration(&cfg.Quotes.SymbolTimeout, "QUOTES_SYMBOL_TIMEOUT")
	setDuration(&cfg.Quotes.BatchTimeout, "QUOTES_BATCH_TIMEOUT")
	setDuration(&cfg.Quotes.RetryBackoff, "QUOTES_RETRY_BACKOFF")
	setDuration(&cfg.Quotes.CacheTTL, "QUOTES_CACHE_TTL")

	setBool(&cfg.Scheduler.Enabled, "SCHEDULER_ENABLED")
	setStr(&cfg.Scheduler.WarmSpec, "SCHEDULER_WARM_SPEC")

	setStr(&cfg.Log.Level, "LOG_LEVEL")
	setBool(&cfg.Log.Pretty, "LOG_PRETTY")
}

// Validate checks values that would otherwise fail late at startup
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("config: server port is required")
	}
	if c.Quotes.Concurrency <= 0 {
		return fmt.Errorf("config: quotes concurrency must be positive")
	}
	if c.Quotes.RateLimit <= 0 {
		return fmt.Errorf("config: quotes rate limit must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka brokers are required when kafka is enabled")
	}
	if c.Scheduler.Enabled {
		if c.Scheduler.WarmSpec == "" {
			return fmt.Errorf("config: scheduler warm schedule is required when the scheduler is enabled")
		}
		interval, err := c.Scheduler.WarmInterval()
		if err != nil {
			return fmt.Errorf("config: invalid scheduler warm schedule %q: %w", c.Scheduler.WarmSpec, err)
		}
		if c.Redis.Enabled && c.Quotes.CacheTTL.Duration <= interval {
			return fmt.Errorf("config: quotes cache ttl %s must exceed the warm interval %s",
				c.Quotes.CacheTTL.Duration, interval)
		}
	}
	return nil
}

// WarmInterval returns the longest gap between two consecutive warm runs
// over the next day of the schedule.
func (s *SchedulerConfig) WarmInterval() (time.Duration, error) {
	schedule, err := cron.ParseStandard(s.WarmSpec)
	if err != nil {
		return 0, err
	}

	var longest time.Duration
	prev := schedule.Next(time.Now())
	if prev.IsZero() {
		return 0, fmt.Errorf("schedule never fires")
	}
	end := prev.Add(24 * time.Hour)
	for prev.Before(end) {
		next := schedule.Next(prev)
		if next.IsZero() {
			break
		}
		if gap := next.Sub(prev); gap > longest {
			longest = gap
		}
		prev = next
	}
	return longest, nil
}

// Addr returns the HTTP listen address
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
