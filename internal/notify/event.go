// internal/notify/event.go
package notify

import (
	"fmt"

	"github.com/google/uuid"
)

// pgChannel is the Postgres NOTIFY channel the lobby_players trigger fires on.
const pgChannel = "lobby_players_changes"

// ChangeEvent is one membership mutation as carried by the change feed.
// It is a wake-up signal only: Op is informational and subscribers must
// re-fetch full state rather than patch from it.
type ChangeEvent struct {
	LobbyID uuid.UUID `json:"lobby_id"`
	Op      string    `json:"op"` // INSERT, UPDATE or DELETE
}

// lobbyChannel names the per-lobby Redis pub/sub channel.
func lobbyChannel(lobbyID uuid.UUID) string {
	return fmt.Sprintf("lobby:%s:players", lobbyID)
}
