package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/durablex/durablex/internal/logger"
)

const defaultChannelPrefix = "durablex_queue_"

// ChannelPrefix is namespace for LISTEN/NOTIFY channels, one per queue.
// Overridable via configuration (notify_channel_prefix) so multiple
// deployments can share a database without colliding on channel names.
var ChannelPrefix = defaultChannelPrefix

func channelName(queue string) string {
	return ChannelPrefix + queue
}

// quoteIdent double-quotes a Postgres identifier built from a queue name.
// Queue names are operator-controlled configuration, not untrusted input,
// but channel identifiers are still quoted defensively since NOTIFY does
// not accept bind parameters for the channel name.
func quoteIdent(s string) string {
	return `"` + s + `"`
}

// Listener maintains a single dedicated connection LISTENing on one or
// more queue channels, delivering wake-ups to Notifications(). Workers
// use this as their primary wake-up source, falling back to polling (see
// internal/worker) when no notification arrives within the configured
// poll interval.
type Listener struct {
	conn *pgxpool.Conn
}

// Listen acquires a dedicated pooled connection and issues LISTEN for
// every queue. The connection is held for the lifetime of the Listener
// (pgx requires a single connection to receive notifications, which a
// shared pool connection cannot provide across Exec calls).
func Listen(ctx context.Context, s *Store, queues []string) (*Listener, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: acquire listen connection: %w", err)
	}

	for _, q := range queues {
		if _, err := conn.Exec(ctx, fmt.Sprintf("LISTEN %s", quoteIdent(channelName(q)))); err != nil {
			conn.Release()
			return nil, fmt.Errorf("store: listen on %s: %w", q, err)
		}
	}

	return &Listener{conn: conn}, nil
}

// WaitForNotification blocks until a notification arrives, ctx is
// cancelled, or an error occurs. Callers typically race this against a
// poll-interval timer.
func (l *Listener) WaitForNotification(ctx context.Context) error {
	_, err := l.conn.Conn().WaitForNotification(ctx)
	return err
}

// Close releases the underlying connection back to the pool.
func (l *Listener) Close() {
	l.conn.Release()
}

func logNotifyFailure(queue string, err error) {
	logger.Warn().Err(err).Str("queue", queue).Msg("store: failed to emit wake-up notification")
}
