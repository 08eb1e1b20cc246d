package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Party    PartyConfig
	Realtime RealtimeConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Secure      bool   // Use HTTPS-only cookies
	Environment string // "development", "production", "test"
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type PartyConfig struct {
	ActiveCacheTTL     time.Duration // how long the dashboard's active-party list is cached
	SweepInterval      time.Duration // how often expired parties are deactivated
	NotificationCap    int           // per-user in-memory notification limit
	JoinRateLimit      int64         // join/request attempts per user per minute
	MaxExtendMinutes   int
	MaxDurationMinutes int
}

type RealtimeConfig struct {
	Channel        string
	AllowedOrigins []string
}

type LogConfig struct {
	Level string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvInt("SERVER_PORT", 8080),
			Secure:      getEnvBool("SERVER_SECURE", false),
			Environment: getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "rideparty"),
			Password: getEnv("DB_PASSWORD", "rideparty"),
			DBName:   getEnv("DB_NAME", "rideparty"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Party: PartyConfig{
			ActiveCacheTTL:     getEnvDuration("PARTY_CACHE_TTL", 15*time.Second),
			SweepInterval:      getEnvDuration("PARTY_SWEEP_INTERVAL", time.Minute),
			NotificationCap:    getEnvInt("NOTIFY_MAX_PER_USER", 100),
			JoinRateLimit:      int64(getEnvInt("JOIN_RATE_LIMIT", 20)),
			MaxExtendMinutes:   getEnvInt("PARTY_MAX_EXTEND_MINUTES", 60),
			MaxDurationMinutes: getEnvInt("PARTY_MAX_DURATION_MINUTES", 180),
		},
		Realtime: RealtimeConfig{
			Channel:        getEnv("REALTIME_CHANNEL", "rideparty:changes"),
			AllowedOrigins: getEnvList("REALTIME_ALLOWED_ORIGINS", nil),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Party.SweepInterval < time.Second {
		return fmt.Errorf("PARTY_SWEEP_INTERVAL must be at least 1s, got %s", c.Party.SweepInterval)
	}
	if c.Party.NotificationCap <= 0 {
		return fmt.Errorf("NOTIFY_MAX_PER_USER must be positive, got %d", c.Party.NotificationCap)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Realtime.Channel == "" {
		return fmt.Errorf("REALTIME_CHANNEL must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
