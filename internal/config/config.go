package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort              = "8080"
	DefaultTemporalTaskQueue = "ticket-booking-queue"
)

// Config holds all server settings. Values are layered: defaults, then
// the YAML file, then .env and the process environment, then flags.
type Config struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	SeatsPerSection int           `yaml:"seats_per_section"`
	UserCount       int           `yaml:"user_count"`
	WalletBalance   int64         `yaml:"wallet_balance"`
	TicketPrice     int64         `yaml:"ticket_price"`
	From            string        `yaml:"from"`
	To              string        `yaml:"to"`
	LockWait        time.Duration `yaml:"lock_wait"`
	BookingTimeout  time.Duration `yaml:"booking_timeout"`

	DatabaseURL string `yaml:"database_url"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	AMQPURL string `yaml:"amqp_url"`

	TemporalHost      string `yaml:"temporal_host"`
	TemporalTaskQueue string `yaml:"temporal_task_queue"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig configures the token bucket in front of booking routes
type RateLimitConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Capacity       int           `yaml:"capacity"`
	RefillTokens   int           `yaml:"refill_tokens"`
	RefillInterval time.Duration `yaml:"refill_interval"`
	TTL            time.Duration `yaml:"ttl"`
	Prefix         string        `yaml:"prefix"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Port:              DefaultPort,
		LogLevel:          "info",
		LogFormat:         "text",
		SeatsPerSection:   10,
		UserCount:         20,
		WalletBalance:     100,
		TicketPrice:       20,
		From:              "London",
		To:                "France",
		LockWait:          2 * time.Second,
		BookingTimeout:    5 * time.Second,
		TemporalTaskQueue: DefaultTemporalTaskQueue,
		RateLimit: RateLimitConfig{
			Enabled:        true,
			Capacity:       60,
			RefillTokens:   1,
			RefillInterval: time.Second,
			TTL:            10 * time.Minute,
			Prefix:         "rl",
		},
	}
}

// Load builds the configuration from args (without the program name).
func Load(args []string) (*Config, error) {
	cfg := Default()
	flagged := Default()

	flagSet := pflag.NewFlagSet("ticket-booking", pflag.ContinueOnError)
	configFile := flagSet.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	envFile := flagSet.String("env-file", ".env", "path to a dotenv file")
	registerFlags(flagSet, &flagged)
	if err := flagSet.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *configFile != "" {
		if err := loadFile(*configFile, &cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", *envFile, err)
	}
	applyEnv(&cfg)

	flagSet.Visit(func(f *pflag.Flag) {
		if set, ok := flagSetters[f.Name]; ok {
			set(&cfg, &flagged)
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func registerFlags(flagSet *pflag.FlagSet, c *Config) {
	flagSet.StringVar(&c.Port, "port", c.Port, "HTTP listen port")
	flagSet.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	flagSet.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format (text, json)")
	flagSet.IntVar(&c.SeatsPerSection, "seats", c.SeatsPerSection, "seats per section")
	flagSet.IntVar(&c.UserCount, "users", c.UserCount, "number of seeded users")
	flagSet.Int64Var(&c.WalletBalance, "wallet-balance", c.WalletBalance, "starting wallet balance per user")
	flagSet.Int64Var(&c.TicketPrice, "ticket-price", c.TicketPrice, "flat ticket price")
	flagSet.DurationVar(&c.LockWait, "lock-wait", c.LockWait, "maximum wait for a busy seat")
	flagSet.DurationVar(&c.BookingTimeout, "booking-timeout", c.BookingTimeout, "overall booking deadline")
	flagSet.StringVar(&c.DatabaseURL, "database-url", c.DatabaseURL, "Postgres URL for the booking ledger")
	flagSet.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address for rate limiting")
	flagSet.StringVar(&c.AMQPURL, "amqp-url", c.AMQPURL, "RabbitMQ URL for ticket events")
	flagSet.StringVar(&c.TemporalHost, "temporal-host", c.TemporalHost, "Temporal frontend host:port")
}

var flagSetters = map[string]func(dst, src *Config){
	"port":            func(d, s *Config) { d.Port = s.Port },
	"log-level":       func(d, s *Config) { d.LogLevel = s.LogLevel },
	"log-format":      func(d, s *Config) { d.LogFormat = s.LogFormat },
	"seats":           func(d, s *Config) { d.SeatsPerSection = s.SeatsPerSection },
	"users":           func(d, s *Config) { d.UserCount = s.UserCount },
	"wallet-balance":  func(d, s *Config) { d.WalletBalance = s.WalletBalance },
	"ticket-price":    func(d, s *Config) { d.TicketPrice = s.TicketPrice },
	"lock-wait":       func(d, s *Config) { d.LockWait = s.LockWait },
	"booking-timeout": func(d, s *Config) { d.BookingTimeout = s.BookingTimeout },
	"database-url":    func(d, s *Config) { d.DatabaseURL = s.DatabaseURL },
	"redis-addr":      func(d, s *Config) { d.RedisAddr = s.RedisAddr },
	"amqp-url":        func(d, s *Config) { d.AMQPURL = s.AMQPURL },
	"temporal-host":   func(d, s *Config) { d.TemporalHost = s.TemporalHost },
}

func applyEnv(c *Config) {
	c.Port = envStr("PORT", c.Port)
	c.LogLevel = envStr("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envStr("LOG_FORMAT", c.LogFormat)
	c.SeatsPerSection = envInt("SEAT_COUNT", c.SeatsPerSection)
	c.UserCount = envInt("USER_COUNT", c.UserCount)
	c.WalletBalance = envInt64("WALLET_BALANCE", c.WalletBalance)
	c.TicketPrice = envInt64("TICKET_PRICE", c.TicketPrice)
	c.From = envStr("TRAIN_FROM", c.From)
	c.To = envStr("TRAIN_TO", c.To)
	c.LockWait = envDur("LOCK_WAIT", c.LockWait)
	c.BookingTimeout = envDur("BOOKING_TIMEOUT", c.BookingTimeout)
	c.DatabaseURL = envStr("DATABASE_URL", c.DatabaseURL)
	c.RedisAddr = envStr("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = envStr("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = envInt("REDIS_DB", c.RedisDB)
	c.AMQPURL = envStr("AMQP_URL", envStr("RABBITMQ_URL", c.AMQPURL))
	c.TemporalHost = envStr("TEMPORAL_HOST", c.TemporalHost)
	c.TemporalTaskQueue = envStr("TEMPORAL_TASK_QUEUE", c.TemporalTaskQueue)

	rl := &c.RateLimit
	rl.Enabled = envBool("RATE_LIMIT_ENABLED", rl.Enabled)
	rl.Capacity = envInt("RATE_LIMIT_CAPACITY", rl.Capacity)
	rl.RefillTokens = envInt("RATE_LIMIT_REFILL_TOKENS", rl.RefillTokens)
	rl.RefillInterval = envDur("RATE_LIMIT_REFILL_INTERVAL", rl.RefillInterval)
	rl.TTL = envDur("RATE_LIMIT_TTL", rl.TTL)
	rl.Prefix = envStr("RATE_LIMIT_PREFIX", rl.Prefix)
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.SeatsPerSection <= 0 {
		errs = append(errs, fmt.Errorf("seats per section must be positive, got %d", c.SeatsPerSection))
	}
	if c.UserCount < 0 {
		errs = append(errs, fmt.Errorf("user count must not be negative, got %d", c.UserCount))
	}
	if c.WalletBalance < 0 {
		errs = append(errs, fmt.Errorf("wallet balance must not be negative, got %d", c.WalletBalance))
	}
	if c.TicketPrice <= 0 {
		errs = append(errs, fmt.Errorf("ticket price must be positive, got %d", c.TicketPrice))
	}
	if c.LockWait <= 0 {
		errs = append(errs, fmt.Errorf("lock wait must be positive, got %s", c.LockWait))
	}
	if c.BookingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("booking timeout must be positive, got %s", c.BookingTimeout))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.LogFormat))
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Capacity < 1 {
			errs = append(errs, errors.New("rate limit capacity must be at least 1"))
		}
		if c.RateLimit.RefillTokens < 1 {
			errs = append(errs, errors.New("rate limit refill tokens must be at least 1"))
		}
		if c.RateLimit.RefillInterval <= 0 {
			errs = append(errs, errors.New("rate limit refill interval must be positive"))
		}
	}
	return errors.Join(errs...)
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envInt64(k string, d int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
