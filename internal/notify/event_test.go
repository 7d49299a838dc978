// internal/notify/event_test.go
package notify

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeEventDecodesTriggerPayload(t *testing.T) {
	// shape produced by the notify_lobby_players_change trigger
	payload := `{"lobby_id":"7f6c2f91-11c2-4f0e-9c3a-8a1b5b6d2e01","op":"INSERT"}`

	var ev ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &ev))
	assert.Equal(t, "INSERT", ev.Op)
	assert.Equal(t, uuid.MustParse("7f6c2f91-11c2-4f0e-9c3a-8a1b5b6d2e01"), ev.LobbyID)
}

func TestLobbyChannelName(t *testing.T) {
	id := uuid.MustParse("7f6c2f91-11c2-4f0e-9c3a-8a1b5b6d2e01")
	assert.Equal(t, "lobby:7f6c2f91-11c2-4f0e-9c3a-8a1b5b6d2e01:players", lobbyChannel(id))
}
