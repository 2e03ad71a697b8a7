// pkg/connector/mysql.go
package connector

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"dbpulse/pkg/config"
)

// MySQLConnector implements the DatabaseConnector interface for MySQL
type MySQLConnector struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.DatabaseConfig
}

// NewMySQLConnector creates and validates a new MySQL connection. A failure
// here is the distinguished "no document" signal: nothing was enumerated yet,
// so the caller aborts the scan instead of emitting a partial result.
func NewMySQLConnector(ctx context.Context, cfg *config.DatabaseConfig) (*MySQLConnector, error) {
	logger := zap.L().Named("mysql-connector")

	// Log connection attempt (without credentials)
	logger.Info("Connecting to MySQL",
		zap.String("environment", cfg.Environment),
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MySQL connection: %w", err)
	}

	ApplySingleConnection(db.DB)

	if err := PingWithTimeout(ctx, db.DB, config.ConnectTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL at %s: %w", cfg.Host, err)
	}

	connector := &MySQLConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	LogConnectionStats(logger, cfg.Host, db.DB)
	return connector, nil
}

// DB returns the underlying database handle
func (c *MySQLConnector) DB() *sqlx.DB {
	return c.db
}

// Ping verifies the connection with a short liveness probe. The driver
// re-establishes a dead pooled connection transparently when it can.
func (c *MySQLConnector) Ping(ctx context.Context) error {
	return PingWithTimeout(ctx, c.db.DB, 30*time.Second)
}

// Reconnect discards the current handle and opens a brand new connection.
// Used when the liveness probe itself fails: dead handles are replaced,
// never reused.
func (c *MySQLConnector) Reconnect(ctx context.Context) error {
	c.logger.Warn("Reopening MySQL connection",
		zap.String("host", c.cfg.Host))

	if err := c.db.Close(); err != nil {
		c.logger.Debug("Error closing dead connection", zap.Error(err))
	}

	db, err := sqlx.Open("mysql", c.cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to reopen MySQL connection: %w", err)
	}

	ApplySingleConnection(db.DB)

	if err := PingWithTimeout(ctx, db.DB, config.ConnectTimeout); err != nil {
		db.Close()
		return fmt.Errorf("failed to reconnect to MySQL at %s: %w", c.cfg.Host, err)
	}

	c.db = db
	c.logger.Info("MySQL connection re-established", zap.String("host", c.cfg.Host))
	return nil
}

// Close closes the database connection
func (c *MySQLConnector) Close() error {
	c.logger.Info("Closing MySQL connection", zap.String("host", c.cfg.Host))
	LogConnectionStats(c.logger, c.cfg.Host, c.db.DB)
	return c.db.Close()
}
