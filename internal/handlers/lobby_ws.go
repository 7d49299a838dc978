// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/quickjoin/lobbyd/internal/lobbycode"
	"github.com/quickjoin/lobbyd/internal/middleware"
	"github.com/quickjoin/lobbyd/internal/models"
	"github.com/quickjoin/lobbyd/internal/notify"
	"github.com/quickjoin/lobbyd/internal/service"
	"github.com/quickjoin/lobbyd/internal/watch"
)

const snapshotWriteTimeout = 10 * time.Second

// snapshotMessage is what the watcher endpoint pushes on every membership
// change: the full current snapshot, tagged with the session's sequence so a
// client buffering messages can drop stale ones.
type snapshotMessage struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	models.LobbySnapshot
}

// WatchLobbyHandler serves /lobby/ws/{code}: it upgrades to a WebSocket,
// runs a watcher session for the lobby, sends the initial snapshot, and then
// one snapshot per change event until the client goes away. Every exit path
// tears the session down.
func WatchLobbyHandler(logger *logrus.Logger, svc *service.LobbyService, notifier *notify.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := lobbycode.Normalize(strings.TrimPrefix(r.URL.Path, "/lobby/ws/"))
		if code == "" {
			http.Error(w, "missing lobby code", http.StatusBadRequest)
			return
		}

		// Resolve the lobby before upgrading so an unknown code gets a
		// plain 404 and the subscription can be scoped by lobby id.
		snap, err := svc.FetchLobby(r.Context(), code)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "lobby" {
			c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := watch.NewSession(watch.Config{
			Code:      code,
			LobbyID:   snap.ID,
			Fetch:     svc.FetchLobby,
			Subscribe: notifier.Subscribe,
			Apply: func(seq uint64, snap *models.LobbySnapshot) {
				if err := writeSnapshot(ctx, c, seq, snap); err != nil {
					logEntry(logger, r).WithError(err).Warn("snapshot push failed, dropping watcher")
					cancel()
				}
			},
			Logger: logger,
		})
		if err := sess.Start(ctx); err != nil {
			logEntry(logger, r).WithError(err).Warn("watcher subscription failed")
			c.Close(WatcherSetupError, "could not subscribe to lobby changes")
			return
		}
		// Cancel before Close: a snapshot write blocked on a dead client
		// holds the session busy, and cancellation is what unblocks it.
		defer func() {
			cancel()
			sess.Close()
		}()

		// Read pump: the client sends nothing meaningful; reading only
		// detects the close handshake or a dead connection.
		readErr := readUntilClosed(ctx, c)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)

		c.Close(websocket.StatusNormalClosure, "")
	}
}

func writeSnapshot(ctx context.Context, c *websocket.Conn, seq uint64, snap *models.LobbySnapshot) error {
	data, err := json.Marshal(snapshotMessage{
		Type:          "lobby_snapshot",
		Seq:           seq,
		LobbySnapshot: *snap,
	})
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, snapshotWriteTimeout)
	defer cancel()
	return c.Write(writeCtx, websocket.MessageText, data)
}

func readUntilClosed(ctx context.Context, c *websocket.Conn) error {
	for {
		if _, _, err := c.Read(ctx); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}
