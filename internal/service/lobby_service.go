// internal/service/lobby_service.go
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quickjoin/lobbyd/internal/database"
	"github.com/quickjoin/lobbyd/internal/lobbycode"
	"github.com/quickjoin/lobbyd/internal/models"
)

// maxCodeAttempts bounds the insert-and-retry loop in CreateLobby.
const maxCodeAttempts = 5

// Store is the persistence surface LobbyService needs. *database.Store is
// the production implementation; tests plug in an in-memory fake.
type Store interface {
	InsertLobby(ctx context.Context, code string) (*models.Lobby, error)
	GetLobbyByCode(ctx context.Context, code string) (*models.Lobby, error)
	GetLobbySnapshot(ctx context.Context, code string) (*models.LobbySnapshot, error)
	UpsertPlayer(ctx context.Context, lobbyID uuid.UUID, fid string, walletAddress *string) error
	DeletePlayer(ctx context.Context, lobbyID uuid.UUID, fid string) error
}

// LobbyService composes the code allocator and the membership store into the
// create/join/leave/fetch operations.
type LobbyService struct {
	store  Store
	logger *logrus.Logger
}

func NewLobbyService(store Store, logger *logrus.Logger) *LobbyService {
	return &LobbyService{store: store, logger: logger}
}

// CreateLobby allocates a fresh code and inserts the lobby, regenerating on
// code collision up to maxCodeAttempts. When ownerFID is set, the owner is
// added as the first member via the same upsert join uses, so a retried
// create call for the same owner stays harmless.
func (s *LobbyService) CreateLobby(ctx context.Context, ownerFID, ownerWallet *string) (*models.Lobby, error) {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code := lobbycode.Generate()
		lobby, err := s.store.InsertLobby(ctx, code)
		if errors.Is(err, database.ErrUniqueViolation) {
			s.logger.WithFields(logrus.Fields{
				"code":    code,
				"attempt": attempt,
			}).Debug("lobby code collision, regenerating")
			continue
		}
		if err != nil {
			return nil, mapStoreError(err)
		}

		if ownerFID != nil && *ownerFID != "" {
			if err := s.store.UpsertPlayer(ctx, lobby.ID, *ownerFID, ownerWallet); err != nil {
				return nil, mapStoreError(err)
			}
		}

		s.logger.WithFields(logrus.Fields{
			"lobby_id": lobby.ID,
			"code":     lobby.Code,
		}).Info("lobby created")
		return lobby, nil
	}
	return nil, ErrAllocationExhausted
}

// JoinLobby resolves the normalized code and upserts the caller's membership.
// Re-joining with the same fid updates wallet_address and nothing else, so
// join is idempotent and joined_at is preserved.
func (s *LobbyService) JoinLobby(ctx context.Context, code, fid string, walletAddress *string) (*models.Lobby, error) {
	normalized := lobbycode.Normalize(code)
	lobby, err := s.store.GetLobbyByCode(ctx, normalized)
	if err != nil {
		// A failed lookup and a missing lobby collapse into one error kind;
		// the caller re-enters the code either way.
		return nil, fmt.Errorf("%w: code %q", ErrLobbyNotFound, normalized)
	}

	if err := s.store.UpsertPlayer(ctx, lobby.ID, fid, walletAddress); err != nil {
		return nil, mapStoreError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"lobby_id": lobby.ID,
		"fid":      fid,
	}).Info("player joined lobby")
	return lobby, nil
}

// LeaveLobby removes the membership row if present. Leaving a lobby the user
// was never in succeeds; the asserted outcome is "no membership".
func (s *LobbyService) LeaveLobby(ctx context.Context, lobbyID uuid.UUID, fid string) error {
	if err := s.store.DeletePlayer(ctx, lobbyID, fid); err != nil {
		return mapStoreError(err)
	}
	s.logger.WithFields(logrus.Fields{
		"lobby_id": lobbyID,
		"fid":      fid,
	}).Info("player left lobby")
	return nil
}

// FetchLobby returns the lobby and its members as one consistent snapshot,
// members ordered by join time ascending. Safe to call arbitrarily often;
// watchers use it to re-synchronize after every change event.
func (s *LobbyService) FetchLobby(ctx context.Context, code string) (*models.LobbySnapshot, error) {
	normalized := lobbycode.Normalize(code)
	snap, err := s.store.GetLobbySnapshot(ctx, normalized)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: code %q", ErrLobbyNotFound, normalized)
		}
		return nil, mapStoreError(err)
	}
	return snap, nil
}

// mapStoreError lifts database sentinels into the service error kinds.
// Constraint failures keep the driver error in the chain; everything else
// from the store is a connectivity-class failure. Cancellation passes
// through untouched.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, database.ErrUniqueViolation), errors.Is(err, database.ErrConstraintViolation):
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}
