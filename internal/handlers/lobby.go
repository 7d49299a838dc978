// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quickjoin/lobbyd/internal/service"
)

type createLobbyRequest struct {
	OwnerFID    *string `json:"owner_fid"`
	OwnerWallet *string `json:"owner_wallet"`
}

type joinLobbyRequest struct {
	Code          string  `json:"code"`
	FID           string  `json:"fid"`
	WalletAddress *string `json:"wallet_address"`
}

type leaveLobbyRequest struct {
	LobbyID uuid.UUID `json:"lobby_id"`
	FID     string    `json:"fid"`
}

// CreateLobbyHandler allocates a lobby, optionally seating the owner as its
// first member.
func CreateLobbyHandler(svc *service.LobbyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req createLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
			http.Error(w, "bad request payload", http.StatusBadRequest)
			return
		}

		lobby, err := svc.CreateLobby(r.Context(), req.OwnerFID, req.OwnerWallet)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(lobby)
	}
}

// JoinLobbyHandler adds the caller to the lobby identified by code. The code
// is normalized by the service, so " ab2k9z " joins AB2K9Z.
func JoinLobbyHandler(svc *service.LobbyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req joinLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request payload", http.StatusBadRequest)
			return
		}
		if req.Code == "" || req.FID == "" {
			http.Error(w, "code and fid are required", http.StatusBadRequest)
			return
		}

		lobby, err := svc.JoinLobby(r.Context(), req.Code, req.FID, req.WalletAddress)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(lobby)
	}
}

// LeaveLobbyHandler removes the caller's membership row. Leaving a lobby the
// caller never joined still returns 204.
func LeaveLobbyHandler(svc *service.LobbyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req leaveLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request payload", http.StatusBadRequest)
			return
		}
		if req.LobbyID == uuid.Nil || req.FID == "" {
			http.Error(w, "lobby_id and fid are required", http.StatusBadRequest)
			return
		}

		if err := svc.LeaveLobby(r.Context(), req.LobbyID, req.FID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// FetchLobbyHandler returns the full snapshot for ?code=, members oldest
// first. Watchers call this on every change event.
func FetchLobbyHandler(svc *service.LobbyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "code is required", http.StatusBadRequest)
			return
		}

		snap, err := svc.FetchLobby(r.Context(), code)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	}
}

// writeServiceError maps service error kinds onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrLobbyNotFound):
		http.Error(w, "lobby not found", http.StatusNotFound)
	case errors.Is(err, service.ErrAllocationExhausted):
		http.Error(w, "could not allocate a lobby code, try again", http.StatusServiceUnavailable)
	case errors.Is(err, service.ErrConstraintViolation):
		http.Error(w, "conflicting lobby state", http.StatusConflict)
	case errors.Is(err, service.ErrStoreUnavailable):
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// logEntry is a small helper for handlers that want request-scoped fields.
func logEntry(logger *logrus.Logger, r *http.Request) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"remote": r.RemoteAddr,
	})
}
