package registry

import (
	"context"
	"database/sql/driver"
	"time"

	"github.com/pkg/errors"
	"github.com/sqlmate/dbcore/backoff"
	"github.com/sqlmate/dbcore/logging"
	"github.com/sqlmate/dbcore/retry"
	"go.uber.org/zap"
)

// retryConnector wraps a driver.Connector so that pool construction retries transient
// connect failures with backoff instead of failing the first time a database is briefly
// unreachable (e.g. mid-restart, or an SSH tunnel not yet fully warmed up).
type retryConnector struct {
	driver.Connector

	logger *logging.Logger
}

// newRetryConnector wraps c, logging retries and reconnects through logger.
func newRetryConnector(c driver.Connector, logger *logging.Logger) *retryConnector {
	return &retryConnector{Connector: c, logger: logger}
}

// Connect implements driver.Connector.
func (c *retryConnector) Connect(ctx context.Context) (driver.Conn, error) {
	var conn driver.Conn
	err := errors.Wrap(retry.WithBackoff(
		ctx,
		func(ctx context.Context) (err error) {
			conn, err = c.Connector.Connect(ctx)
			return err
		},
		shouldRetryConnect,
		backoff.NewExponentialWithJitter(time.Millisecond*128, time.Second*10),
		retry.Settings{
			Timeout: 30 * time.Second,
			OnRetryableError: func(elapsed time.Duration, attempt uint64, err, lastErr error) {
				if lastErr == nil || err.Error() != lastErr.Error() {
					c.logger.Warnw("Can't connect to database. Retrying", zap.Error(err))
				}
			},
			OnSuccess: func(elapsed time.Duration, attempt uint64, lastErr error) {
				if attempt > 1 {
					c.logger.Infow("Reconnected to database",
						zap.Duration("after", elapsed), zap.Uint64("attempts", attempt))
				}
			},
		},
	), "can't connect to database")

	return conn, err
}

// Driver implements driver.Connector.
func (c *retryConnector) Driver() driver.Driver {
	return c.Connector.Driver()
}

func shouldRetryConnect(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	return retry.Retryable(err)
}
