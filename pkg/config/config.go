package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
)

// Config holds the configuration for a flushd agent
type Config struct {
	// MQTT configuration
	MQTTBroker   string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	MQTTClientID string

	// Redis configuration
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Postgres configuration (flush episode journal)
	PostgresHost               string
	PostgresPort               int
	PostgresUser               string
	PostgresPassword           string
	PostgresDB                 string
	PostgresMaxConnections     int
	PostgresMaxIdleConnections int

	// Service configuration
	ServiceName string
	HealthPort  int
	LogLevel    string

	// Flush agent configuration
	Location          string
	PollIntervalMs    int
	MinUseSeconds     float64
	FlushDelaySeconds float64
	CooldownSeconds   float64
	MaxSampleHistory  int
	JournalEnabled    bool
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		MQTTBroker:    "localhost",
		MQTTPort:      1883,
		MQTTUser:      "",
		MQTTPassword:  "",
		MQTTClientID:  "",
		RedisHost:     "localhost",
		RedisPort:     6379,
		RedisPassword: "",
		RedisDB:       0,
		PostgresHost:               "localhost",
		PostgresPort:               5432,
		PostgresUser:               "flushd",
		PostgresPassword:           "",
		PostgresDB:                 "flushd",
		PostgresMaxConnections:     5,
		PostgresMaxIdleConnections: 2,
		ServiceName: "flush-agent",
		HealthPort:  8080,
		LogLevel:    "info",
		// Flush agent defaults match a typical restroom fixture: a visit
		// shorter than 2s is a passer-by, the valve fires 1s after the
		// visitor leaves, and at most one flush every 8s.
		Location:          "restroom",
		PollIntervalMs:    100,
		MinUseSeconds:     2.0,
		FlushDelaySeconds: 1.0,
		CooldownSeconds:   8.0,
		MaxSampleHistory:  1000,
		JournalEnabled:    false,
	}
}

// LoadFromEnv loads configuration from environment variables with FLUSHD_ prefix
func (c *Config) LoadFromEnv() {
	// MQTT configuration
	if v := os.Getenv("FLUSHD_MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	if v := os.Getenv("FLUSHD_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MQTTPort = port
		}
	}
	if v := os.Getenv("FLUSHD_MQTT_USER"); v != "" {
		c.MQTTUser = v
	}
	if v := os.Getenv("FLUSHD_MQTT_PASSWORD"); v != "" {
		c.MQTTPassword = v
	}
	if v := os.Getenv("FLUSHD_MQTT_CLIENT_ID"); v != "" {
		c.MQTTClientID = v
	}

	// Redis configuration
	if v := os.Getenv("FLUSHD_REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("FLUSHD_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.RedisPort = port
		}
	}
	if v := os.Getenv("FLUSHD_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("FLUSHD_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.RedisDB = db
		}
	}

	// Postgres configuration
	if v := os.Getenv("FLUSHD_POSTGRES_HOST"); v != "" {
		c.PostgresHost = v
	}
	if v := os.Getenv("FLUSHD_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.PostgresPort = port
		}
	}
	if v := os.Getenv("FLUSHD_POSTGRES_USER"); v != "" {
		c.PostgresUser = v
	}
	if v := os.Getenv("FLUSHD_POSTGRES_PASSWORD"); v != "" {
		c.PostgresPassword = v
	}
	if v := os.Getenv("FLUSHD_POSTGRES_DB"); v != "" {
		c.PostgresDB = v
	}

	// Service configuration
	if v := os.Getenv("FLUSHD_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("FLUSHD_HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HealthPort = port
		}
	}
	if v := os.Getenv("FLUSHD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	// Flush agent configuration
	if v := os.Getenv("FLUSHD_LOCATION"); v != "" {
		c.Location = v
	}
	if v := os.Getenv("FLUSHD_POLL_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.PollIntervalMs = ms
		}
	}
	if v := os.Getenv("FLUSHD_MIN_USE_SECONDS"); v != "" {
		if sec, err := strconv.ParseFloat(v, 64); err == nil {
			c.MinUseSeconds = sec
		}
	}
	if v := os.Getenv("FLUSHD_FLUSH_DELAY_SECONDS"); v != "" {
		if sec, err := strconv.ParseFloat(v, 64); err == nil {
			c.FlushDelaySeconds = sec
		}
	}
	if v := os.Getenv("FLUSHD_COOLDOWN_SECONDS"); v != "" {
		if sec, err := strconv.ParseFloat(v, 64); err == nil {
			c.CooldownSeconds = sec
		}
	}
	if v := os.Getenv("FLUSHD_MAX_SAMPLE_HISTORY"); v != "" {
		if max, err := strconv.Atoi(v); err == nil {
			c.MaxSampleHistory = max
		}
	}
	if v := os.Getenv("FLUSHD_JOURNAL_ENABLED"); v != "" {
		if enable, err := strconv.ParseBool(v); err == nil {
			c.JournalEnabled = enable
		}
	}
}

// LoadFromFlags parses command-line flags and overrides config values
func (c *Config) LoadFromFlags() {
	// MQTT flags
	pflag.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname")
	pflag.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	pflag.StringVar(&c.MQTTUser, "mqtt-user", c.MQTTUser, "MQTT username")
	pflag.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	pflag.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")

	// Redis flags
	pflag.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	pflag.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	pflag.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	pflag.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")

	// Postgres flags
	pflag.StringVar(&c.PostgresHost, "postgres-host", c.PostgresHost, "Postgres hostname")
	pflag.IntVar(&c.PostgresPort, "postgres-port", c.PostgresPort, "Postgres port")
	pflag.StringVar(&c.PostgresUser, "postgres-user", c.PostgresUser, "Postgres username")
	pflag.StringVar(&c.PostgresPassword, "postgres-password", c.PostgresPassword, "Postgres password")
	pflag.StringVar(&c.PostgresDB, "postgres-db", c.PostgresDB, "Postgres database name")

	// Service flags
	pflag.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	pflag.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port")
	pflag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")

	// Flush agent flags
	pflag.StringVar(&c.Location, "location", c.Location, "Fixture location served by this agent")
	pflag.IntVar(&c.PollIntervalMs, "poll-interval-ms", c.PollIntervalMs, "Presence sampling interval (ms)")
	pflag.Float64Var(&c.MinUseSeconds, "min-use-seconds", c.MinUseSeconds, "Continuous presence required to confirm use")
	pflag.Float64Var(&c.FlushDelaySeconds, "flush-delay-seconds", c.FlushDelaySeconds, "Absence required before the valve fires")
	pflag.Float64Var(&c.CooldownSeconds, "cooldown-seconds", c.CooldownSeconds, "Minimum interval between flushes")
	pflag.IntVar(&c.MaxSampleHistory, "max-sample-history", c.MaxSampleHistory, "Maximum presence samples kept in Redis")
	pflag.BoolVar(&c.JournalEnabled, "journal-enabled", c.JournalEnabled, "Record flush episodes in Postgres")

	pflag.Parse()
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT broker is required")
	}
	if c.MQTTPort <= 0 || c.MQTTPort > 65535 {
		return fmt.Errorf("MQTT port must be between 1 and 65535")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("Redis host is required")
	}
	if c.RedisPort <= 0 || c.RedisPort > 65535 {
		return fmt.Errorf("Redis port must be between 1 and 65535")
	}
	if c.JournalEnabled {
		if c.PostgresHost == "" {
			return fmt.Errorf("Postgres host is required when the journal is enabled")
		}
		if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
			return fmt.Errorf("Postgres port must be between 1 and 65535")
		}
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("Health port must be between 1 and 65535")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("Service name is required")
	}
	if c.Location == "" {
		return fmt.Errorf("Location is required")
	}
	if c.PollIntervalMs <= 0 {
		return fmt.Errorf("Poll interval must be positive")
	}
	if c.MinUseSeconds < 0 {
		return fmt.Errorf("Minimum use duration must be >= 0")
	}
	if c.FlushDelaySeconds < 0 {
		return fmt.Errorf("Flush delay must be >= 0")
	}
	if c.CooldownSeconds < 0 {
		return fmt.Errorf("Cooldown must be >= 0")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// MQTTAddress returns the full MQTT broker address
func (c *Config) MQTTAddress() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresConnectionString returns the lib/pq connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB)
}
