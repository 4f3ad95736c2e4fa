// Package postgres is the PostgreSQL-backed implementation of the
// repository contracts declared in internal/repo, for deployments that
// need party/round state to survive a process restart. Adapted from the
// teacher's internal/storage/postgres package: same db *sql.DB
// injection, $N-placeholder queries, and pq import-for-side-effects
// style as postgres_sessions.go, generalized from session records to
// parties, seats, rounds, and game state.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"zapzap/internal/domain"
	"zapzap/internal/repo"
)

// PartyRepository implements repo.PartyRepository against PostgreSQL.
type PartyRepository struct {
	db *sql.DB
}

// NewPartyRepository wraps an already-open connection pool. The caller
// owns the pool's lifecycle (sql.Open, SetMaxOpenConns, Close).
func NewPartyRepository(db *sql.DB) *PartyRepository {
	return &PartyRepository{db: db}
}

var _ repo.PartyRepository = (*PartyRepository)(nil)

// CreateSchema creates the tables and indexes this repository needs, if
// they don't already exist. Mirrors the teacher's
// SessionPostgresStorage.CreateSessionTable bootstrap pattern.
func (r *PartyRepository) CreateSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS parties (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(128) NOT NULL,
			owner_id VARCHAR(64) NOT NULL,
			invite_code VARCHAR(16) NOT NULL,
			visibility SMALLINT NOT NULL,
			status SMALLINT NOT NULL,
			player_count INTEGER NOT NULL,
			hand_size INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_parties_invite_code ON parties(invite_code);
		CREATE INDEX IF NOT EXISTS idx_parties_status_visibility ON parties(status, visibility);

		CREATE TABLE IF NOT EXISTS party_seats (
			party_id VARCHAR(64) NOT NULL REFERENCES parties(id) ON DELETE CASCADE,
			user_id VARCHAR(64) NOT NULL,
			player_index INTEGER NOT NULL,
			joined_at TIMESTAMP NOT NULL,
			is_bot BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (party_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_party_seats_party_id ON party_seats(party_id);

		CREATE TABLE IF NOT EXISTS rounds (
			id VARCHAR(64) PRIMARY KEY,
			party_id VARCHAR(64) NOT NULL REFERENCES parties(id) ON DELETE CASCADE,
			round_number INTEGER NOT NULL,
			status SMALLINT NOT NULL,
			current_turn INTEGER NOT NULL,
			current_action SMALLINT NOT NULL,
			starting_player INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_rounds_party_id ON rounds(party_id, created_at);

		CREATE TABLE IF NOT EXISTS game_states (
			party_id VARCHAR(64) PRIMARY KEY REFERENCES parties(id) ON DELETE CASCADE,
			state_json JSONB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
	`)
	return err
}

func (r *PartyRepository) CreateParty(ctx context.Context, party *domain.Party) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO parties (
			id, name, owner_id, invite_code, visibility, status,
			player_count, hand_size, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		party.ID, party.Name, party.OwnerID, party.InviteCode,
		int(party.Visibility), int(party.Status),
		party.Settings.PlayerCount, party.Settings.HandSize,
		party.CreatedAt, party.UpdatedAt,
	)
	return err
}

func (r *PartyRepository) scanParty(row interface {
	Scan(dest ...any) error
}) (*domain.Party, error) {
	p := &domain.Party{}
	var visibility, status int
	err := row.Scan(
		&p.ID, &p.Name, &p.OwnerID, &p.InviteCode, &visibility, &status,
		&p.Settings.PlayerCount, &p.Settings.HandSize, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Visibility = domain.Visibility(visibility)
	p.Status = domain.PartyStatus(status)
	return p, nil
}

const partyColumns = `id, name, owner_id, invite_code, visibility, status, player_count, hand_size, created_at, updated_at`

func (r *PartyRepository) GetParty(ctx context.Context, partyID string) (*domain.Party, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+partyColumns+` FROM parties WHERE id = $1`, partyID)
	return r.scanParty(row)
}

func (r *PartyRepository) UpdateParty(ctx context.Context, party *domain.Party) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE parties
		SET name = $1, owner_id = $2, invite_code = $3, visibility = $4,
		    status = $5, player_count = $6, hand_size = $7, updated_at = $8
		WHERE id = $9
	`,
		party.Name, party.OwnerID, party.InviteCode, int(party.Visibility),
		int(party.Status), party.Settings.PlayerCount, party.Settings.HandSize,
		party.UpdatedAt, party.ID,
	)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PartyRepository) DeleteParty(ctx context.Context, partyID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM parties WHERE id = $1`, partyID)
	return err
}

func (r *PartyRepository) FindByInviteCode(ctx context.Context, code string) (*domain.Party, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+partyColumns+` FROM parties WHERE invite_code = $1`, code)
	return r.scanParty(row)
}

func (r *PartyRepository) FindPublic(ctx context.Context, status domain.PartyStatus, paging repo.Paging) ([]*domain.Party, error) {
	limit := paging.Limit
	if limit <= 0 {
		limit = 1 << 30
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+partyColumns+` FROM parties
		WHERE visibility = $1 AND status = $2
		ORDER BY created_at ASC
		OFFSET $3 LIMIT $4
	`, int(domain.VisibilityPublic), int(status), paging.Offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Party
	for rows.Next() {
		p, err := r.scanParty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PartyRepository) CountPublic(ctx context.Context, status domain.PartyStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM parties WHERE visibility = $1 AND status = $2
	`, int(domain.VisibilityPublic), int(status)).Scan(&count)
	return count, err
}

func (r *PartyRepository) FindByStatus(ctx context.Context, status domain.PartyStatus) ([]*domain.Party, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+partyColumns+` FROM parties WHERE status = $1 ORDER BY id
	`, int(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Party
	for rows.Next() {
		p, err := r.scanParty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PartyRepository) AddPlayer(ctx context.Context, seat *domain.Seat) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO party_seats (party_id, user_id, player_index, joined_at, is_bot)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (party_id, user_id) DO UPDATE
		SET player_index = EXCLUDED.player_index, is_bot = EXCLUDED.is_bot
	`, seat.PartyID, seat.UserID, seat.PlayerIndex, seat.JoinedAt, seat.IsBot)
	return err
}

func (r *PartyRepository) RemovePlayer(ctx context.Context, partyID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM party_seats WHERE party_id = $1 AND user_id = $2
	`, partyID, userID)
	return err
}

// ReplacePlayers atomically overwrites a party's seat list inside a
// transaction, so a waiting-room re-index is never observed half-applied.
func (r *PartyRepository) ReplacePlayers(ctx context.Context, partyID string, seats []*domain.Seat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM party_seats WHERE party_id = $1`, partyID); err != nil {
		return err
	}
	for _, s := range seats {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO party_seats (party_id, user_id, player_index, joined_at, is_bot)
			VALUES ($1, $2, $3, $4, $5)
		`, s.PartyID, s.UserID, s.PlayerIndex, s.JoinedAt, s.IsBot); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PartyRepository) GetPlayers(ctx context.Context, partyID string) ([]*domain.Seat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT party_id, user_id, player_index, joined_at, is_bot
		FROM party_seats WHERE party_id = $1 ORDER BY player_index
	`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Seat
	for rows.Next() {
		s := &domain.Seat{}
		if err := rows.Scan(&s.PartyID, &s.UserID, &s.PlayerIndex, &s.JoinedAt, &s.IsBot); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PartyRepository) GetPlayerCount(ctx context.Context, partyID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM party_seats WHERE party_id = $1`, partyID).Scan(&count)
	return count, err
}

func (r *PartyRepository) IsUserInParty(ctx context.Context, partyID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM party_seats WHERE party_id = $1 AND user_id = $2)
	`, partyID, userID).Scan(&exists)
	return exists, err
}

func (r *PartyRepository) GetUserPlayerIndex(ctx context.Context, partyID, userID string) (int, bool, error) {
	var idx int
	err := r.db.QueryRowContext(ctx, `
		SELECT player_index FROM party_seats WHERE party_id = $1 AND user_id = $2
	`, partyID, userID).Scan(&idx)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return idx, true, nil
}

func (r *PartyRepository) SaveRound(ctx context.Context, round *domain.Round) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rounds (
			id, party_id, round_number, status, current_turn,
			current_action, starting_player, created_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, current_turn = EXCLUDED.current_turn,
		    current_action = EXCLUDED.current_action, finished_at = EXCLUDED.finished_at
	`,
		round.ID, round.PartyID, round.RoundNumber, int(round.Status),
		round.CurrentTurn, int(round.CurrentAction), round.StartingPlayer,
		round.CreatedAt, round.FinishedAt,
	)
	return err
}

func (r *PartyRepository) scanRound(row interface {
	Scan(dest ...any) error
}) (*domain.Round, error) {
	rnd := &domain.Round{}
	var status, action int
	var finishedAt sql.NullTime
	err := row.Scan(
		&rnd.ID, &rnd.PartyID, &rnd.RoundNumber, &status, &rnd.CurrentTurn,
		&action, &rnd.StartingPlayer, &rnd.CreatedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rnd.Status = domain.RoundStatus(status)
	rnd.CurrentAction = domain.Phase(action)
	if finishedAt.Valid {
		rnd.FinishedAt = &finishedAt.Time
	}
	return rnd, nil
}

const roundColumns = `id, party_id, round_number, status, current_turn, current_action, starting_player, created_at, finished_at`

// GetActiveRound returns the party's current round, regardless of
// whether it is still `active` or has `finished` awaiting an
// AdvanceRound call (spec §6): the highest round_number row for the party.
func (r *PartyRepository) GetActiveRound(ctx context.Context, partyID string) (*domain.Round, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+roundColumns+` FROM rounds
		WHERE party_id = $1
		ORDER BY round_number DESC LIMIT 1
	`, partyID)
	return r.scanRound(row)
}

func (r *PartyRepository) GetRounds(ctx context.Context, partyID string) ([]*domain.Round, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+roundColumns+` FROM rounds WHERE party_id = $1 ORDER BY round_number ASC
	`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Round
	for rows.Next() {
		rnd, err := r.scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rnd)
	}
	return out, rows.Err()
}

func (r *PartyRepository) SaveGameState(ctx context.Context, partyID string, state *domain.GameState) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal game state: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO game_states (party_id, state_json, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (party_id) DO UPDATE
		SET state_json = EXCLUDED.state_json, updated_at = EXCLUDED.updated_at
	`, partyID, blob, time.Now())
	return err
}

func (r *PartyRepository) GetGameState(ctx context.Context, partyID string) (*domain.GameState, error) {
	var blob []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT state_json FROM game_states WHERE party_id = $1
	`, partyID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	state := domain.NewGameState()
	if err := json.Unmarshal(blob, state); err != nil {
		return nil, fmt.Errorf("unmarshal game state: %w", err)
	}
	return state, nil
}
