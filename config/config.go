package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Scheduling SchedulingConfig
	Notifier   NotifierConfig
}

type AppConfig struct {
	Port           string
	Env            string
	Timezone       string
	LogLevel       string
	AllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// SchedulingConfig holds the booking grid and queue defaults
type SchedulingConfig struct {
	SlotDuration        time.Duration
	SlotStride          time.Duration
	HorizonDays         int
	DefaultWaitMinutes  int
	RecommendationLimit int
}

// NotifierConfig selects how real-time events leave the process.
// Transport is "local" for a single node or "redis" to fan out across nodes.
type NotifierConfig struct {
	Transport  string
	BufferSize int
}

const (
	NotifierTransportLocal = "local"
	NotifierTransportRedis = "redis"
)

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_TIMEZONE", "UTC")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("JWT_ACCESS_EXPIRY", "15m")

	viper.SetDefault("SLOT_DURATION", "30m")
	viper.SetDefault("SLOT_STRIDE", "30m")
	viper.SetDefault("SCHEDULING_HORIZON_DAYS", 7)
	viper.SetDefault("QUEUE_DEFAULT_WAIT_MINUTES", 30)
	viper.SetDefault("RECOMMENDATION_LIMIT", 10)

	viper.SetDefault("NOTIFIER_TRANSPORT", NotifierTransportLocal)
	viper.SetDefault("NOTIFIER_BUFFER_SIZE", 256)
}

// LoadConfig reads settings from the environment. A .env file in the working
// directory is loaded first when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	setDefaults()

	config := &Config{
		App: AppConfig{
			Port:           viper.GetString("APP_PORT"),
			Env:            viper.GetString("APP_ENV"),
			Timezone:       viper.GetString("APP_TIMEZONE"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			AccessExpiry: viper.GetDuration("JWT_ACCESS_EXPIRY"),
		},
		Scheduling: SchedulingConfig{
			SlotDuration:        viper.GetDuration("SLOT_DURATION"),
			SlotStride:          viper.GetDuration("SLOT_STRIDE"),
			HorizonDays:         viper.GetInt("SCHEDULING_HORIZON_DAYS"),
			DefaultWaitMinutes:  viper.GetInt("QUEUE_DEFAULT_WAIT_MINUTES"),
			RecommendationLimit: viper.GetInt("RECOMMENDATION_LIMIT"),
		},
		Notifier: NotifierConfig{
			Transport:  viper.GetString("NOTIFIER_TRANSPORT"),
			BufferSize: viper.GetInt("NOTIFIER_BUFFER_SIZE"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the scheduling engine cannot run with
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.App.Timezone, err)
	}
	if c.Scheduling.SlotDuration <= 0 || c.Scheduling.SlotStride <= 0 {
		return errors.New("SLOT_DURATION and SLOT_STRIDE must be positive")
	}
	if c.Scheduling.HorizonDays < 1 {
		return errors.New("SCHEDULING_HORIZON_DAYS must be at least 1")
	}
	switch c.Notifier.Transport {
	case NotifierTransportLocal, NotifierTransportRedis:
	default:
		return fmt.Errorf("unknown NOTIFIER_TRANSPORT %q", c.Notifier.Transport)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
