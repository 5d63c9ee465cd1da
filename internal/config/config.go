package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var ErrMissingCredentials = errors.New("database credentials are not set")

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Chats    ChatsConfig
}

type ServerConfig struct {
	Port            string        `validate:"required"`
	Mode            string        `validate:"oneof=debug release test"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	RateLimitRPS    float64       `validate:"gte=0"`
	RateLimitBurst  int           `validate:"gte=0"`
}

type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

type DatabaseConfig struct {
	Driver   string `validate:"required,oneof=postgres mysql sqlite"`
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	// Path is the sqlite database file.
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int           `validate:"gte=0"`
	CacheTTL time.Duration `validate:"gt=0"`
}

type ChatsConfig struct {
	DefaultTimeout time.Duration `validate:"gt=0"`
	// Retention of zero keeps expired messages forever.
	Retention     time.Duration `validate:"gte=0"`
	SweepInterval time.Duration `validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_PATH", "chats.db")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "10m")

	v.SetDefault("DEFAULT_TIMEOUT_SECONDS", 60)
	v.SetDefault("RETENTION", "0s")
	v.SetDefault("SWEEP_INTERVAL", "2m")
}

// Load reads configuration from the environment, after .env files.
func Load() (*Config, error) {
	LoadDotEnv()

	v := viper.New()
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("PORT"),
			Mode:            v.GetString("GIN_MODE"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
			RateLimitRPS:    v.GetFloat64("RATE_LIMIT_RPS"),
			RateLimitBurst:  v.GetInt("RATE_LIMIT_BURST"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Database: DatabaseConfig{
			Driver:   v.GetString("DB_DRIVER"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			Path:     v.GetString("DB_PATH"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			CacheTTL: v.GetDuration("CACHE_TTL"),
		},
		Chats: ChatsConfig{
			DefaultTimeout: secondsToDuration(v.GetFloat64("DEFAULT_TIMEOUT_SECONDS")),
			Retention:      v.GetDuration("RETENTION"),
			SweepInterval:  v.GetDuration("SWEEP_INTERVAL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// secondsToDuration maps values a time.Duration cannot hold to -1 so that
// validation rejects them.
func secondsToDuration(seconds float64) time.Duration {
	if math.IsNaN(seconds) || math.Abs(seconds) > float64(math.MaxInt64/int64(time.Second)) {
		return -1
	}
	return time.Duration(seconds * float64(time.Second))
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Database.Driver != "sqlite" {
		if c.Database.Name == "" || c.Database.User == "" || c.Database.Password == "" {
			return ErrMissingCredentials
		}
	}
	return nil
}

func (d DatabaseConfig) PostgresDSN() string {
	return "host=" + d.Host +
		" port=" + d.Port +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=disable"
}

func (d DatabaseConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, net.JoinHostPort(d.Host, d.Port), d.Name)
}

func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}
