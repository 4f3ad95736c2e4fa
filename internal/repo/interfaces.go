// Package repo declares the narrow persistence interfaces the core
// consumes (spec §4.8): user lookups, party/seat/round CRUD, and
// per-round game-state storage. Implementations are free to be relational
// or in-memory; every call from within an Action API operation executes
// inside that party's lock. Adapted from the teacher's narrow-interface
// storage contracts in internal/storage/interfaces.go.
package repo

import (
	"context"

	"zapzap/internal/domain"
)

// UserRepository resolves identities and bot configuration.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Exists(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	Count(ctx context.Context) (int, error)
	IsBot(ctx context.Context, userID string) (bool, error)
	BotDifficulty(ctx context.Context, userID string) (domain.BotDifficulty, error)
}

// User is the narrow identity record the core needs.
type User struct {
	ID            string
	Username      string
	IsBot         bool
	BotDifficulty domain.BotDifficulty
}

// Paging bounds a listing query.
type Paging struct {
	Offset int
	Limit  int
}

// PartyRepository is the core's persistence contract for parties, seats,
// rounds, and per-round game state (spec §4.8).
type PartyRepository interface {
	CreateParty(ctx context.Context, party *domain.Party) error
	GetParty(ctx context.Context, partyID string) (*domain.Party, error)
	UpdateParty(ctx context.Context, party *domain.Party) error
	DeleteParty(ctx context.Context, partyID string) error
	FindByInviteCode(ctx context.Context, code string) (*domain.Party, error)
	FindPublic(ctx context.Context, status domain.PartyStatus, paging Paging) ([]*domain.Party, error)
	CountPublic(ctx context.Context, status domain.PartyStatus) (int, error)
	FindByStatus(ctx context.Context, status domain.PartyStatus) ([]*domain.Party, error)

	AddPlayer(ctx context.Context, seat *domain.Seat) error
	RemovePlayer(ctx context.Context, partyID, userID string) error
	ReplacePlayers(ctx context.Context, partyID string, seats []*domain.Seat) error
	GetPlayers(ctx context.Context, partyID string) ([]*domain.Seat, error)
	GetPlayerCount(ctx context.Context, partyID string) (int, error)
	IsUserInParty(ctx context.Context, partyID, userID string) (bool, error)
	GetUserPlayerIndex(ctx context.Context, partyID, userID string) (int, bool, error)

	SaveRound(ctx context.Context, round *domain.Round) error
	GetActiveRound(ctx context.Context, partyID string) (*domain.Round, error)
	GetRounds(ctx context.Context, partyID string) ([]*domain.Round, error)

	SaveGameState(ctx context.Context, partyID string, state *domain.GameState) error
	GetGameState(ctx context.Context, partyID string) (*domain.GameState, error)
}
