// pkg/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents the application configuration
type Config struct {
	// Export sink (optional; nil when no endpoint is configured)
	Minio *MinioConfig

	// Dashboard server
	ServerAddr string

	// Logging
	LogLevel  string
	LogFormat string
}

// Timeout and retry constants. The target database sits behind a slow,
// VPN-gated network, so the connection timeouts are deliberately generous.
const (
	ConnectTimeout = 5 * time.Minute
	ReadTimeout    = 5 * time.Minute
	WriteTimeout   = 5 * time.Minute
	QueryTimeout   = 5 * time.Minute

	// Retry budget for the reconnect-and-retry wrapper
	MaxRetries   = 2
	RetryBackoff = 2 * time.Second
)

// MinioConfig holds object-storage settings for report artifact uploads
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Load reads the application configuration from environment variables
func Load() *Config {
	cfg := &Config{
		ServerAddr: getEnv("DBPULSE_SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "console"),
	}

	if endpoint := os.Getenv("DBPULSE_MINIO_ENDPOINT"); endpoint != "" {
		cfg.Minio = &MinioConfig{
			Endpoint:  endpoint,
			AccessKey: os.Getenv("DBPULSE_MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("DBPULSE_MINIO_SECRET_KEY"),
			Bucket:    getEnv("DBPULSE_MINIO_BUCKET", "dbpulse-reports"),
			Region:    getEnv("DBPULSE_MINIO_REGION", "us-east-1"),
			UseSSL:    getEnvAsBool("DBPULSE_MINIO_USE_SSL", false),
		}
	}

	return cfg
}

// BuildLogger constructs the application logger from the configured level
// and format.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(c.LogLevel); err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if c.LogFormat == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
