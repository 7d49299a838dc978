// internal/database/lobby.go
package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickjoin/lobbyd/internal/models"
)

// Store provides lobby and membership access over a pgx pool. All methods
// map driver errors through the package sentinels.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InsertLobby creates a new lobby row with the given code. A code collision
// surfaces as ErrUniqueViolation.
func (s *Store) InsertLobby(ctx context.Context, code string) (*models.Lobby, error) {
	q := `
	INSERT INTO lobbies (code)
	VALUES ($1)
	RETURNING id, code, created_at
	`
	var l models.Lobby
	err := s.pool.QueryRow(ctx, q, code).Scan(&l.ID, &l.Code, &l.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &l, nil
}

// GetLobbyByCode fetches a lobby row by its canonical (normalized) code.
func (s *Store) GetLobbyByCode(ctx context.Context, code string) (*models.Lobby, error) {
	q := `SELECT id, code, created_at FROM lobbies WHERE code = $1`
	var l models.Lobby
	err := s.pool.QueryRow(ctx, q, code).Scan(&l.ID, &l.Code, &l.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &l, nil
}

// GetLobbySnapshot reads the lobby and its full player list inside one
// transaction so the result is never a half-applied view. Players come back
// oldest joiner first.
func (s *Store) GetLobbySnapshot(ctx context.Context, code string) (*models.LobbySnapshot, error) {
	var snap models.LobbySnapshot
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		q := `SELECT id, code, created_at FROM lobbies WHERE code = $1`
		if err := tx.QueryRow(ctx, q, code).Scan(&snap.ID, &snap.Code, &snap.CreatedAt); err != nil {
			return err
		}

		q = `
		SELECT id, lobby_id, fid, wallet_address, joined_at
		FROM lobby_players
		WHERE lobby_id = $1
		ORDER BY joined_at ASC
		`
		rows, err := tx.Query(ctx, q, snap.ID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p models.LobbyPlayer
			if err := rows.Scan(&p.ID, &p.LobbyID, &p.FID, &p.WalletAddress, &p.JoinedAt); err != nil {
				return err
			}
			snap.Players = append(snap.Players, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &snap, nil
}

// UpsertPlayer inserts a membership row keyed on (lobby_id, fid). On
// conflict only wallet_address is refreshed; joined_at keeps its original
// value so the oldest-first ordering is stable across re-joins.
func (s *Store) UpsertPlayer(ctx context.Context, lobbyID uuid.UUID, fid string, walletAddress *string) error {
	q := `
	INSERT INTO lobby_players (lobby_id, fid, wallet_address)
	VALUES ($1, $2, $3)
	ON CONFLICT (lobby_id, fid)
	DO UPDATE SET wallet_address = EXCLUDED.wallet_address
	`
	if _, err := s.pool.Exec(ctx, q, lobbyID, fid, walletAddress); err != nil {
		return mapError(err)
	}
	return nil
}

// DeletePlayer removes a membership row. Deleting a row that does not exist
// is not an error; leave asserts the end state, not the prior one.
func (s *Store) DeletePlayer(ctx context.Context, lobbyID uuid.UUID, fid string) error {
	q := `DELETE FROM lobby_players WHERE lobby_id = $1 AND fid = $2`
	if _, err := s.pool.Exec(ctx, q, lobbyID, fid); err != nil {
		return mapError(err)
	}
	return nil
}
