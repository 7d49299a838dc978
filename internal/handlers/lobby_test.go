// internal/handlers/lobby_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickjoin/lobbyd/internal/database"
	"github.com/quickjoin/lobbyd/internal/lobbycode"
	"github.com/quickjoin/lobbyd/internal/models"
	"github.com/quickjoin/lobbyd/internal/service"
)

// memStore backs the handler tests with an in-memory service.Store.
type memStore struct {
	lobbies map[string]*models.Lobby
	players map[uuid.UUID][]models.LobbyPlayer
}

func newMemStore() *memStore {
	return &memStore{
		lobbies: make(map[string]*models.Lobby),
		players: make(map[uuid.UUID][]models.LobbyPlayer),
	}
}

func (m *memStore) InsertLobby(ctx context.Context, code string) (*models.Lobby, error) {
	if _, ok := m.lobbies[code]; ok {
		return nil, database.ErrUniqueViolation
	}
	l := &models.Lobby{ID: uuid.New(), Code: code, CreatedAt: time.Now()}
	m.lobbies[code] = l
	return l, nil
}

func (m *memStore) GetLobbyByCode(ctx context.Context, code string) (*models.Lobby, error) {
	l, ok := m.lobbies[code]
	if !ok {
		return nil, database.ErrNotFound
	}
	return l, nil
}

func (m *memStore) GetLobbySnapshot(ctx context.Context, code string) (*models.LobbySnapshot, error) {
	l, ok := m.lobbies[code]
	if !ok {
		return nil, database.ErrNotFound
	}
	snap := &models.LobbySnapshot{Lobby: *l}
	snap.Players = append(snap.Players, m.players[l.ID]...)
	return snap, nil
}

func (m *memStore) UpsertPlayer(ctx context.Context, lobbyID uuid.UUID, fid string, walletAddress *string) error {
	for i, p := range m.players[lobbyID] {
		if p.FID == fid {
			m.players[lobbyID][i].WalletAddress = walletAddress
			return nil
		}
	}
	m.players[lobbyID] = append(m.players[lobbyID], models.LobbyPlayer{
		ID: uuid.New(), LobbyID: lobbyID, FID: fid, WalletAddress: walletAddress, JoinedAt: time.Now(),
	})
	return nil
}

func (m *memStore) DeletePlayer(ctx context.Context, lobbyID uuid.UUID, fid string) error {
	kept := m.players[lobbyID][:0]
	for _, p := range m.players[lobbyID] {
		if p.FID != fid {
			kept = append(kept, p)
		}
	}
	m.players[lobbyID] = kept
	return nil
}

// collidingStore reports a code collision on every insert, driving the
// create loop to exhaustion.
type collidingStore struct{ *memStore }

func (c *collidingStore) InsertLobby(ctx context.Context, code string) (*models.Lobby, error) {
	return nil, database.ErrUniqueViolation
}

// unreachableStore fails every insert the way a dead pool would.
type unreachableStore struct{ *memStore }

func (u *unreachableStore) InsertLobby(ctx context.Context, code string) (*models.Lobby, error) {
	return nil, errors.New("dial tcp 127.0.0.1:5432: connection refused")
}

// conflictingStore rejects membership upserts with an integrity violation.
type conflictingStore struct{ *memStore }

func (c *conflictingStore) UpsertPlayer(ctx context.Context, lobbyID uuid.UUID, fid string, walletAddress *string) error {
	return database.ErrConstraintViolation
}

func newTestService(store service.Store) *service.LobbyService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return service.NewLobbyService(store, logger)
}

func TestCreateLobbyHandler(t *testing.T) {
	svc := newTestService(newMemStore())

	req := httptest.NewRequest("POST", "/lobby/create", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	CreateLobbyHandler(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var lobby models.Lobby
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lobby))
	assert.NotEqual(t, uuid.Nil, lobby.ID)
	assert.Len(t, lobby.Code, lobbycode.Length)
	for _, r := range lobby.Code {
		assert.True(t, strings.ContainsRune(lobbycode.Alphabet, r))
	}
}

func TestCreateLobbyHandlerWithOwner(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	body := `{"owner_fid":"wallet:0xabc","owner_wallet":"0xabc"}`
	req := httptest.NewRequest("POST", "/lobby/create", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	CreateLobbyHandler(svc).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var lobby models.Lobby
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lobby))

	req = httptest.NewRequest("GET", "/lobby/fetch?code="+lobby.Code, nil)
	w = httptest.NewRecorder()
	FetchLobbyHandler(svc).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var snap models.LobbySnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "wallet:0xabc", snap.Players[0].FID)
}

func TestJoinLobbyHandlerNormalizesCode(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	store.lobbies["AB2K9Z"] = &models.Lobby{ID: uuid.New(), Code: "AB2K9Z", CreatedAt: time.Now()}

	body := `{"code":" ab2k9z ","fid":"fid-1"}`
	req := httptest.NewRequest("POST", "/lobby/join", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	JoinLobbyHandler(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var lobby models.Lobby
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lobby))
	assert.Equal(t, "AB2K9Z", lobby.Code)
}

func TestJoinLobbyHandlerUnknownCode(t *testing.T) {
	svc := newTestService(newMemStore())

	body := `{"code":"ZZZZZZ","fid":"fid-1"}`
	req := httptest.NewRequest("POST", "/lobby/join", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	JoinLobbyHandler(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoinLobbyHandlerMissingFields(t *testing.T) {
	svc := newTestService(newMemStore())

	req := httptest.NewRequest("POST", "/lobby/join", bytes.NewBufferString(`{"code":"AB2K9Z"}`))
	w := httptest.NewRecorder()
	JoinLobbyHandler(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeaveLobbyHandler(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	lobby := &models.Lobby{ID: uuid.New(), Code: "AB2K9Z", CreatedAt: time.Now()}
	store.lobbies[lobby.Code] = lobby
	require.NoError(t, store.UpsertPlayer(context.Background(), lobby.ID, "fid-1", nil))

	body := `{"lobby_id":"` + lobby.ID.String() + `","fid":"fid-1"}`
	req := httptest.NewRequest("POST", "/lobby/leave", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	LeaveLobbyHandler(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, store.players[lobby.ID])

	// leaving again is still a 204
	req = httptest.NewRequest("POST", "/lobby/leave", bytes.NewBufferString(body))
	w = httptest.NewRecorder()
	LeaveLobbyHandler(svc).ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestFetchLobbyHandlerUnknownCode(t *testing.T) {
	svc := newTestService(newMemStore())

	req := httptest.NewRequest("GET", "/lobby/fetch?code=ZZZZZZ", nil)
	w := httptest.NewRecorder()
	FetchLobbyHandler(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateLobbyHandlerAllocationExhausted(t *testing.T) {
	svc := newTestService(&collidingStore{newMemStore()})

	req := httptest.NewRequest("POST", "/lobby/create", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	CreateLobbyHandler(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateLobbyHandlerStoreUnavailable(t *testing.T) {
	svc := newTestService(&unreachableStore{newMemStore()})

	req := httptest.NewRequest("POST", "/lobby/create", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	CreateLobbyHandler(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestJoinLobbyHandlerConstraintViolation(t *testing.T) {
	store := newMemStore()
	store.lobbies["AB2K9Z"] = &models.Lobby{ID: uuid.New(), Code: "AB2K9Z", CreatedAt: time.Now()}
	svc := newTestService(&conflictingStore{store})

	body := `{"code":"AB2K9Z","fid":"fid-1"}`
	req := httptest.NewRequest("POST", "/lobby/join", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	JoinLobbyHandler(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFetchLobbyHandlerMissingCode(t *testing.T) {
	svc := newTestService(newMemStore())

	req := httptest.NewRequest("GET", "/lobby/fetch", nil)
	w := httptest.NewRecorder()
	FetchLobbyHandler(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
