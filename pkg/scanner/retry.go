// pkg/scanner/retry.go
package scanner

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"dbpulse/pkg/config"
)

// pinger is the slice of the connector a retried operation needs: liveness
// probing and handle replacement.
type pinger interface {
	Ping(ctx context.Context) error
	Reconnect(ctx context.Context) error
}

// execWithReconnect runs fn, retrying up to config.MaxRetries extra attempts
// when it fails with a connection-level error. Before each retry it waits
// config.RetryBackoff, probes the connection, and replaces the handle if the
// probe fails. Non-connection errors return immediately: a broken table is
// not a broken link.
func execWithReconnect(ctx context.Context, conn pinger, logger *zap.Logger, op string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Connection error, retrying",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", config.MaxRetries),
				zap.Error(lastErr))

			select {
			case <-time.After(config.RetryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}

			if err := conn.Ping(ctx); err != nil {
				if err := conn.Reconnect(ctx); err != nil {
					logger.Warn("Reconnect failed",
						zap.String("operation", op),
						zap.Int("attempt", attempt),
						zap.Error(err))
					lastErr = err
					continue
				}
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !IsConnectionError(err) {
			return err
		}
		lastErr = err
	}

	return lastErr
}

// IsConnectionError reports whether err indicates a lost or unusable
// connection, the only class of failure worth a reconnect-and-retry.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, io.EOF) {
		return true
	}

	// A timed-out query is slow, not disconnected; re-running a minutes-long
	// statement would only burn the retry budget. Only non-timeout network
	// failures count as connection loss.
	var netErr net.Error
	if errors.As(err, &netErr) && !netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{
		"invalid connection",
		"connection refused",
		"connection reset",
		"broken pipe",
		"server has gone away",
		"bad connection",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
