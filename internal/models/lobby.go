// internal/models/lobby.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Lobby represents a row in the lobbies table. The code is the 6-character
// human-shareable identifier; it is stored upper-cased and unique.
type Lobby struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// LobbyPlayer represents one user's membership row in a lobby.
// FID is the caller-supplied identifier (a platform id or "wallet:0x..."),
// opaque to us. WalletAddress is a display attribute and may change on
// re-join; JoinedAt never does.
type LobbyPlayer struct {
	ID            uuid.UUID `json:"id"`
	LobbyID       uuid.UUID `json:"lobby_id"`
	FID           string    `json:"fid"`
	WalletAddress *string   `json:"wallet_address"`
	JoinedAt      time.Time `json:"joined_at"`
}

// LobbySnapshot is a lobby plus its full member list as of one fetch.
// Players are ordered oldest joiner first. Snapshots are transient; they
// are never written back to the store.
type LobbySnapshot struct {
	Lobby
	Players []LobbyPlayer `json:"lobby_players"`
}
