package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Port            string        `validate:"required"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

type WebSocketConfig struct {
	AllowedOrigins  []string      `validate:"min=1,dive,required"`
	SendBufferSize  int           `validate:"gt=0"`
	MaxMessageBytes int64         `validate:"gt=0"`
	PongWait        time.Duration `validate:"gt=0"`
	PingPeriod      time.Duration `validate:"gt=0,ltfield=PongWait"`
	WriteWait       time.Duration `validate:"gt=0"`
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

type MetricsConfig struct {
	Enabled bool
}

// Load reads an optional .env file, then the environment, and validates the result.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (*Config, error) {
	var errs []error
	duration := func(key, def string) time.Duration {
		d, err := getDurationOrDefault(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}
	integer := func(key string, def int) int {
		i, err := getIntOrDefault(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return i
	}
	boolean := func(key string, def bool) bool {
		b, err := getBoolOrDefault(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return b
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("PORT", ":3000"),
			ReadTimeout:     duration("READ_TIMEOUT", "15s"),
			WriteTimeout:    duration("WRITE_TIMEOUT", "15s"),
			ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", "10s"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  splitList(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:5173")),
			SendBufferSize:  integer("SEND_BUFFER_SIZE", 256),
			MaxMessageBytes: int64(integer("MAX_MESSAGE_BYTES", 64*1024)),
			PongWait:        duration("PONG_WAIT", "60s"),
			PingPeriod:      duration("PING_PERIOD", "54s"),
			WriteWait:       duration("WRITE_WAIT", "10s"),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		},
		Metrics: MetricsConfig{
			Enabled: boolean("METRICS_ENABLED", true),
		},
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// AllowsOrigin reports whether a websocket handshake from origin is accepted.
// Requests without an Origin header (non-browser clients) are always accepted.
func (c WebSocketConfig) AllowsOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return duration, nil
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return intValue, nil
}

func getBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
