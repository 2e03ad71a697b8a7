// pkg/config/database.go
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// DatabaseConfig holds connection parameters for one target environment
type DatabaseConfig struct {
	Environment string
	Host        string
	Port        int
	User        string
	Password    string
}

// LoadDatabaseConfig loads connection parameters for the named environment
// from environment variables (DBPULSE_<ENV>_DB_HOST and friends).
//
// Credentials are never embedded in code or configuration files; a missing
// required variable is a hard error so a misconfigured process fails before
// touching the network.
func LoadDatabaseConfig(env string) (*DatabaseConfig, error) {
	if env == "" {
		return nil, errors.New("environment name is required")
	}

	prefix := "DBPULSE_" + strings.ToUpper(env) + "_DB_"

	host := getEnv(prefix+"HOST", "")
	if host == "" {
		return nil, fmt.Errorf("%sHOST environment variable is required", prefix)
	}

	user := getEnv(prefix+"USER", "")
	if user == "" {
		return nil, fmt.Errorf("%sUSER environment variable is required", prefix)
	}

	password := getEnv(prefix+"PASSWORD", "")
	if password == "" {
		return nil, fmt.Errorf("%sPASSWORD environment variable is required", prefix)
	}

	port := getEnvAsInt(prefix+"PORT", 3306)

	return &DatabaseConfig{
		Environment: env,
		Host:        host,
		Port:        port,
		User:        user,
		Password:    password,
	}, nil
}

// DSN builds the MySQL connection string. parseTime is off on purpose: the
// scanner normalizes every value to a string at collection time, and raw
// []byte values keep the server's own date formatting.
func (c *DatabaseConfig) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	mc.Timeout = ConnectTimeout
	mc.ReadTimeout = ReadTimeout
	mc.WriteTimeout = WriteTimeout
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
