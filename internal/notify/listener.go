// internal/notify/listener.go
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// reconnectDelay is how long the listener waits before redialing Postgres
// after its connection drops.
const reconnectDelay = 2 * time.Second

// Listener bridges the store's row-level change feed into Redis. It holds a
// dedicated Postgres connection on LISTEN and republishes every notification
// to the per-lobby channel watchers subscribe to.
type Listener struct {
	connString string
	rdb        *redis.Client
	logger     *logrus.Logger
}

func NewListener(connString string, rdb *redis.Client, logger *logrus.Logger) *Listener {
	return &Listener{connString: connString, rdb: rdb, logger: logger}
}

// Run blocks, forwarding notifications until ctx is cancelled. Connection
// loss is retried with a fixed delay; notifications missed during the gap
// are tolerable because watchers converge on the next event's re-fetch.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.WithError(err).Warn("change listener disconnected, reconnecting")
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgChannel); err != nil {
		return err
	}
	l.logger.WithField("channel", pgChannel).Info("change listener attached")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var ev ChangeEvent
		if err := json.Unmarshal([]byte(n.Payload), &ev); err != nil {
			l.logger.WithError(err).WithField("payload", n.Payload).Warn("malformed change notification, skipping")
			continue
		}

		if err := l.rdb.Publish(ctx, lobbyChannel(ev.LobbyID), n.Payload).Err(); err != nil {
			l.logger.WithError(err).WithField("lobby_id", ev.LobbyID).Warn("failed to fan out change event")
		}
	}
}
