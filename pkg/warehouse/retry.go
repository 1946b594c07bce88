package warehouse

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const pingMaxTries = 8

// pingWithRetry waits for the database to become reachable. Postgres in
// particular may still be starting when a scheduled run begins.
func pingWithRetry(ctx context.Context, log *slog.Logger, db *sql.DB) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := db.PingContext(ctx); err != nil {
			log.Debug("database not ready, retrying ping", "attempt", attempt, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(newPingBackOff()),
		backoff.WithMaxTries(pingMaxTries),
	)
	return err
}

func newPingBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}
