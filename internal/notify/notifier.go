// internal/notify/notifier.go
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Notifier hands out per-lobby subscriptions to the membership change feed.
type Notifier struct {
	rdb    *redis.Client
	logger *logrus.Logger
}

func NewNotifier(rdb *redis.Client, logger *logrus.Logger) *Notifier {
	return &Notifier{rdb: rdb, logger: logger}
}

// Subscribe opens a subscription scoped to one lobby's membership rows. It
// returns once the subscription is acknowledged by Redis, so a caller that
// mutates the lobby after Subscribe returns will see the resulting event.
//
// The event channel closes when the subscription ends. The returned close
// function is idempotent and safe from any goroutine; after it returns no
// further events are delivered.
func (n *Notifier) Subscribe(ctx context.Context, lobbyID uuid.UUID) (<-chan ChangeEvent, func(), error) {
	sub := n.rdb.Subscribe(ctx, lobbyChannel(lobbyID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, err
	}

	out := make(chan ChangeEvent, 1)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				n.logger.WithError(err).WithField("payload", msg.Payload).Warn("malformed change event, skipping")
				continue
			}
			select {
			case out <- ev:
			default:
				// A wake-up is already pending. Its re-fetch runs after this
				// event's mutation committed, so coalescing loses nothing.
			}
		}
	}()

	var once sync.Once
	closeFn := func() {
		once.Do(func() {
			if err := sub.Close(); err != nil {
				n.logger.WithError(err).WithField("lobby_id", lobbyID).Warn("closing change subscription")
			}
		})
	}
	return out, closeFn, nil
}
