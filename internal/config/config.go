package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dietaryapp/dietary-bot/internal/logger"
)

type Config struct {
	TelegramToken string
	OpenAIAPIKey  string
	DB            DBConfig
	Redis         RedisConfig
	Logger        LoggerConfig
	Session       SessionConfig
	Reminders     ReminderConfig
	// DefaultTimezone is applied to users who have not set their own.
	DefaultTimezone string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// RedisConfig selects the session store backend. An empty Host means
// sessions are kept in process memory.
type RedisConfig struct {
	Host string
	Port string
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

type SessionConfig struct {
	// Timeout after which an idle dialogue session is discarded.
	Timeout time.Duration
}

type ReminderConfig struct {
	TickInterval time.Duration
	// RetryWindow bounds redelivery attempts for a single occurrence.
	RetryWindow time.Duration
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvMinutes(key string, defaultMinutes int) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(defaultMinutes) * time.Minute
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return time.Duration(defaultMinutes) * time.Minute
	}
	return time.Duration(minutes) * time.Minute
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(defaultSeconds) * time.Second
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return time.Duration(defaultSeconds) * time.Second
	}
	return time.Duration(seconds) * time.Second
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warn", "warning":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		DB: DBConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrDefault("DB_NAME", "dietary_app"),
		},
		Redis: RedisConfig{
			Host: os.Getenv("REDIS_HOST"),
			Port: getEnvOrDefault("REDIS_PORT", "6379"),
		},
		Logger: LoggerConfig{
			Level:      parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "logs/app.log"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Session: SessionConfig{
			Timeout: getEnvMinutes("SESSION_TIMEOUT_MINUTES", 15),
		},
		Reminders: ReminderConfig{
			TickInterval: getEnvSeconds("REMINDER_TICK_SECONDS", 60),
			RetryWindow:  getEnvMinutes("REMINDER_RETRY_MINUTES", 10),
		},
		DefaultTimezone: getEnvOrDefault("DEFAULT_TIMEZONE", "Europe/Moscow"),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}

	return cfg, nil
}
