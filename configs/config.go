package configs

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"marketpulse/internal/adapter"
	"marketpulse/internal/adapter/kafka"
	"marketpulse/internal/adapter/source"
	"marketpulse/internal/infra"
	"marketpulse/internal/logger"
	"marketpulse/internal/service"
	"marketpulse/internal/usecase"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig           `yaml:"server"`
	Ops       OpsConfig              `yaml:"ops"`
	Database  infra.DatabaseConfig   `yaml:"database"`
	Redis     infra.RedisConfig      `yaml:"redis"`
	Kafka     kafka.Config           `yaml:"kafka"`
	Telemetry infra.TelemetryConfig  `yaml:"telemetry"`
	Log       logger.Config          `yaml:"log"`
	Cycle     CycleConfig            `yaml:"cycle"`
	Sources   source.Config          `yaml:"sources"`
	Signal    service.SignalPolicy   `yaml:"signal"`
	Telegram  TelegramConfig         `yaml:"telegram"`
	Delivery  service.DeliveryPolicy `yaml:"delivery"`
	Quote     adapter.QuoteConfig    `yaml:"quote"`
	Auth      AuthConfig             `yaml:"auth"`
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Port            string        `yaml:"port" default:"8080" validate:"required"`
	Env             string        `yaml:"env" default:"development" validate:"oneof=development staging production"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

// OpsConfig holds the health and metrics listener
type OpsConfig struct {
	Port string `yaml:"port" default:"9090" validate:"required"`
}

// CycleConfig groups scheduling and orchestration limits
type CycleConfig struct {
	infra.SchedulerConfig `yaml:",inline"`
	usecase.CycleConfig   `yaml:",inline"`
}

// TelegramConfig holds Bot API settings
type TelegramConfig struct {
	BotToken      string        `yaml:"bot_token"`
	APIBase       string        `yaml:"api_base" default:"https://api.telegram.org" validate:"url"`
	Timeout       time.Duration `yaml:"timeout" default:"10s"`
	WebhookSecret string        `yaml:"webhook_secret"`
}

// AuthConfig holds admin API credentials
type AuthConfig struct {
	JWTSecret    string `yaml:"jwt_secret"`
	AdminKeyHash string `yaml:"admin_key_hash"`
}

// Location resolves the market timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Cycle.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Cycle.Timezone, err)
	}
	return loc, nil
}

// envOverrides lists the settings that may be supplied through the environment.
// Unset variables leave the file value untouched.
type envOverrides struct {
	Port           string   `envconfig:"PORT"`
	Env            string   `envconfig:"GO_ENV"`
	DatabaseURL    string   `envconfig:"DATABASE_URL"`
	RedisAddr      string   `envconfig:"REDIS_ADDR"`
	RedisPassword  string   `envconfig:"REDIS_PASSWORD"`
	KafkaBrokers   []string `envconfig:"KAFKA_BROKERS"`
	LogLevel       string   `envconfig:"LOG_LEVEL"`
	Timezone       string   `envconfig:"CYCLE_TIMEZONE"`
	Schedules      []string `envconfig:"CYCLE_SCHEDULES"`
	GoldAPIKey     string   `envconfig:"GOLD_API_KEY"`
	TelegramToken  string   `envconfig:"TELEGRAM_BOT_TOKEN"`
	WebhookSecret  string   `envconfig:"TELEGRAM_WEBHOOK_SECRET"`
	OpenAIKey      string   `envconfig:"OPENAI_API_KEY"`
	JWTSecret      string   `envconfig:"JWT_SECRET"`
	AdminKeyHash   string   `envconfig:"ADMIN_KEY_HASH"`
	TracingEnabled *bool    `envconfig:"TRACING_ENABLED"`
}

var validate = validator.New()

// Load builds the configuration from struct defaults, then the YAML file at
// path (optional when empty or missing), then environment variables.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	env.apply(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

func (e envOverrides) apply(c *Config) {
	setString(&c.Server.Port, e.Port)
	setString(&c.Server.Env, e.Env)
	setString(&c.Database.URL, e.DatabaseURL)
	setString(&c.Redis.Addr, e.RedisAddr)
	setString(&c.Redis.Password, e.RedisPassword)
	setString(&c.Log.Level, e.LogLevel)
	setString(&c.Cycle.Timezone, e.Timezone)
	setString(&c.Sources.GoldAPIKey, e.GoldAPIKey)
	setString(&c.Telegram.BotToken, e.TelegramToken)
	setString(&c.Telegram.WebhookSecret, e.WebhookSecret)
	setString(&c.Quote.APIKey, e.OpenAIKey)
	setString(&c.Auth.JWTSecret, e.JWTSecret)
	setString(&c.Auth.AdminKeyHash, e.AdminKeyHash)

	if len(e.KafkaBrokers) > 0 {
		c.Kafka.Brokers = e.KafkaBrokers
		c.Kafka.Enabled = true
	}
	if len(e.Schedules) > 0 {
		c.Cycle.Schedules = e.Schedules
	}
	if e.TracingEnabled != nil {
		c.Telemetry.Enabled = *e.TracingEnabled
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks struct constraints and cross-field rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.Server.Env == "production" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required in production")
	}
	return nil
}
