package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Config holds the configuration for a WakeWise agent
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

	// Postgres configuration (wake-event history)
	PostgresHost               string
	PostgresPort               int
	PostgresUser               string
	PostgresPassword           string
	PostgresDB                 string
	PostgresSSLMode            string
	PostgresMaxConnections     int
	PostgresMaxIdleConnections int
	PostgresConnMaxLifetime    time.Duration

	// Service configuration
	ServiceName string
	HealthPort  int
	LogLevel    string

	// Alarm definitions file (YAML)
	AlarmConfigPath string

	// Learning configuration
	LearningRate  float64
	MinDataPoints int

	// Prediction configuration
	MaxAdjustmentMinutes       int
	FactorConfidenceFloor      float64
	ReasoningConfidenceFloor   float64
	PatternConfidenceThreshold float64
	ProviderTimeout            time.Duration

	// Insight configuration
	MaxInsightHistory int
	TopInsightCount   int

	// Re-analysis scheduling
	AnalysisIntervalSec     int
	AnalysisEveryNBehaviors int

	// Alarm evaluation loop
	EvaluationIntervalSec int

	// Home coordinates for sun times and location factors
	Latitude  float64
	Longitude float64

	// Rule engine
	DefaultMaxOptimizationMinutes int
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		MQTTBroker:   "localhost",
		MQTTPort:     1883,
		MQTTUser:     "",
		MQTTPassword: "",
		MQTTClientID: "",

		RedisHost:     "localhost",
		RedisPort:     6379,
		RedisPassword: "",
		RedisDB:       0,

		PostgresHost:               "localhost",
		PostgresPort:               5432,
		PostgresUser:               "wakewise",
		PostgresPassword:           "",
		PostgresDB:                 "wakewise",
		PostgresSSLMode:            "disable",
		PostgresMaxConnections:     10,
		PostgresMaxIdleConnections: 5,
		PostgresConnMaxLifetime:    30 * time.Minute,

		ServiceName: "wake-agent",
		HealthPort:  8080,
		LogLevel:    "info",

		AlarmConfigPath: "",

		LearningRate:  0.1,
		MinDataPoints: 5,

		MaxAdjustmentMinutes:       30,
		FactorConfidenceFloor:      0.3,
		ReasoningConfidenceFloor:   0.4,
		PatternConfidenceThreshold: 0.6,
		ProviderTimeout:            5 * time.Second,

		MaxInsightHistory: 200,
		TopInsightCount:   10,

		AnalysisIntervalSec:     3600,
		AnalysisEveryNBehaviors: 10,

		EvaluationIntervalSec: 60,

		// Helsinki coordinates
		Latitude:  60.1695,
		Longitude: 24.9354,

		DefaultMaxOptimizationMinutes: 15,
	}
}

// LoadFromEnv loads configuration from environment variables with WAKEWISE_ prefix
func (c *Config) LoadFromEnv() {
	// MQTT configuration
	if v := os.Getenv("WAKEWISE_MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	if v := os.Getenv("WAKEWISE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MQTTPort = port
		}
	}
	if v := os.Getenv("WAKEWISE_MQTT_USER"); v != "" {
		c.MQTTUser = v
	}
	if v := os.Getenv("WAKEWISE_MQTT_PASSWORD"); v != "" {
		c.MQTTPassword = v
	}
	if v := os.Getenv("WAKEWISE_MQTT_CLIENT_ID"); v != "" {
		c.MQTTClientID = v
	}

	// Redis configuration
	if v := os.Getenv("WAKEWISE_REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("WAKEWISE_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.RedisPort = port
		}
	}
	if v := os.Getenv("WAKEWISE_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("WAKEWISE_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.RedisDB = db
		}
	}

	// Postgres configuration
	if v := os.Getenv("WAKEWISE_POSTGRES_HOST"); v != "" {
		c.PostgresHost = v
	}
	if v := os.Getenv("WAKEWISE_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.PostgresPort = port
		}
	}
	if v := os.Getenv("WAKEWISE_POSTGRES_USER"); v != "" {
		c.PostgresUser = v
	}
	if v := os.Getenv("WAKEWISE_POSTGRES_PASSWORD"); v != "" {
		c.PostgresPassword = v
	}
	if v := os.Getenv("WAKEWISE_POSTGRES_DB"); v != "" {
		c.PostgresDB = v
	}
	if v := os.Getenv("WAKEWISE_POSTGRES_SSLMODE"); v != "" {
		c.PostgresSSLMode = v
	}

	// Service configuration
	if v := os.Getenv("WAKEWISE_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("WAKEWISE_HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HealthPort = port
		}
	}
	if v := os.Getenv("WAKEWISE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("WAKEWISE_ALARM_CONFIG"); v != "" {
		c.AlarmConfigPath = v
	}

	// Learning configuration
	if v := os.Getenv("WAKEWISE_LEARNING_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			c.LearningRate = rate
		}
	}
	if v := os.Getenv("WAKEWISE_MIN_DATA_POINTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MinDataPoints = n
		}
	}

	// Prediction configuration
	if v := os.Getenv("WAKEWISE_MAX_ADJUSTMENT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAdjustmentMinutes = n
		}
	}
	if v := os.Getenv("WAKEWISE_FACTOR_CONFIDENCE_FLOOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.FactorConfidenceFloor = f
		}
	}
	if v := os.Getenv("WAKEWISE_PATTERN_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.PatternConfidenceThreshold = f
		}
	}
	if v := os.Getenv("WAKEWISE_PROVIDER_TIMEOUT_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			c.ProviderTimeout = time.Duration(sec) * time.Second
		}
	}

	// Insight configuration
	if v := os.Getenv("WAKEWISE_MAX_INSIGHT_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxInsightHistory = n
		}
	}
	if v := os.Getenv("WAKEWISE_TOP_INSIGHT_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TopInsightCount = n
		}
	}

	// Scheduling configuration
	if v := os.Getenv("WAKEWISE_ANALYSIS_INTERVAL_SEC"); v != "" {
		if interval, err := strconv.Atoi(v); err == nil {
			c.AnalysisIntervalSec = interval
		}
	}
	if v := os.Getenv("WAKEWISE_ANALYSIS_EVERY_N_BEHAVIORS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.AnalysisEveryNBehaviors = n
		}
	}
	if v := os.Getenv("WAKEWISE_EVALUATION_INTERVAL_SEC"); v != "" {
		if interval, err := strconv.Atoi(v); err == nil {
			c.EvaluationIntervalSec = interval
		}
	}

	// Coordinates
	if v := os.Getenv("WAKEWISE_LATITUDE"); v != "" {
		if lat, err := strconv.ParseFloat(v, 64); err == nil {
			c.Latitude = lat
		}
	}
	if v := os.Getenv("WAKEWISE_LONGITUDE"); v != "" {
		if lon, err := strconv.ParseFloat(v, 64); err == nil {
			c.Longitude = lon
		}
	}

	// Rule engine
	if v := os.Getenv("WAKEWISE_DEFAULT_MAX_OPTIMIZATION_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DefaultMaxOptimizationMinutes = n
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
	pflag.StringVar(&c.PostgresSSLMode, "postgres-sslmode", c.PostgresSSLMode, "Postgres SSL mode")

	// Service flags
	pflag.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	pflag.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port")
	pflag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	pflag.StringVar(&c.AlarmConfigPath, "alarm-config", c.AlarmConfigPath, "Path to alarm definitions YAML file")

	// Learning flags
	pflag.Float64Var(&c.LearningRate, "learning-rate", c.LearningRate, "Exponential moving average learning rate for behavior patterns")
	pflag.IntVar(&c.MinDataPoints, "min-data-points", c.MinDataPoints, "Observations required before pattern confidence ramps up")

	// Prediction flags
	pflag.IntVar(&c.MaxAdjustmentMinutes, "max-adjustment-minutes", c.MaxAdjustmentMinutes, "Global clamp for prediction adjustments (minutes)")
	pflag.Float64Var(&c.FactorConfidenceFloor, "factor-confidence-floor", c.FactorConfidenceFloor, "Factors at or below this confidence are excluded")
	pflag.Float64Var(&c.PatternConfidenceThreshold, "pattern-confidence-threshold", c.PatternConfidenceThreshold, "Minimum confidence for a detected pattern to be retained")
	pflag.DurationVar(&c.ProviderTimeout, "provider-timeout", c.ProviderTimeout, "Timeout for external provider calls")

	// Insight flags
	pflag.IntVar(&c.MaxInsightHistory, "max-insight-history", c.MaxInsightHistory, "Maximum insight history entries per user")
	pflag.IntVar(&c.TopInsightCount, "top-insight-count", c.TopInsightCount, "Number of insights returned per generation pass")

	// Scheduling flags
	pflag.IntVar(&c.AnalysisIntervalSec, "analysis-interval", c.AnalysisIntervalSec, "Background pattern re-analysis interval in seconds")
	pflag.IntVar(&c.AnalysisEveryNBehaviors, "analysis-every-n-behaviors", c.AnalysisEveryNBehaviors, "Trigger re-analysis after this many recorded behaviors")
	pflag.IntVar(&c.EvaluationIntervalSec, "evaluation-interval", c.EvaluationIntervalSec, "Alarm evaluation loop interval in seconds")

	// Coordinate flags
	pflag.Float64Var(&c.Latitude, "latitude", c.Latitude, "Geographic latitude for sun time calculation")
	pflag.Float64Var(&c.Longitude, "longitude", c.Longitude, "Geographic longitude for sun time calculation")

	// Rule engine flags
	pflag.IntVar(&c.DefaultMaxOptimizationMinutes, "default-max-optimization-minutes", c.DefaultMaxOptimizationMinutes, "Default per-optimization adjustment cap (minutes)")

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
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("Health port must be between 1 and 65535")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("Service name is required")
	}
	if c.LearningRate <= 0 || c.LearningRate >= 1 {
		return fmt.Errorf("learning rate must be between 0 and 1 exclusive")
	}
	if c.MinDataPoints <= 0 {
		return fmt.Errorf("min data points must be positive")
	}
	if c.MaxAdjustmentMinutes <= 0 {
		return fmt.Errorf("max adjustment minutes must be positive")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
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

// PostgresConnectionString returns the Postgres connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode)
}
