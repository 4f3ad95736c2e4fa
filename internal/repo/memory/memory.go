// Package memory is the reference in-memory implementation of the
// repository contracts declared in internal/repo, suitable for tests and
// single-node deployments that restart cold.
package memory

import (
	"context"
	"sort"
	"sync"

	"zapzap/internal/domain"
	"zapzap/internal/repo"
)

// PartyRepository is a goroutine-safe in-memory PartyRepository.
type PartyRepository struct {
	mu           sync.RWMutex
	parties      map[string]*domain.Party
	seats        map[string][]*domain.Seat // partyID -> seats ordered by index
	activeRounds map[string]*domain.Round
	allRounds    map[string][]*domain.Round
	gameStates   map[string]*domain.GameState
}

// New creates an empty in-memory PartyRepository.
func New() *PartyRepository {
	return &PartyRepository{
		parties:      make(map[string]*domain.Party),
		seats:        make(map[string][]*domain.Seat),
		activeRounds: make(map[string]*domain.Round),
		allRounds:    make(map[string][]*domain.Round),
		gameStates:   make(map[string]*domain.GameState),
	}
}

var _ repo.PartyRepository = (*PartyRepository)(nil)

func (r *PartyRepository) CreateParty(ctx context.Context, party *domain.Party) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *party
	r.parties[party.ID] = &cp
	return nil
}

func (r *PartyRepository) GetParty(ctx context.Context, partyID string) (*domain.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parties[partyID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PartyRepository) UpdateParty(ctx context.Context, party *domain.Party) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.parties[party.ID]; !ok {
		return repo.ErrNotFound
	}
	cp := *party
	r.parties[party.ID] = &cp
	return nil
}

func (r *PartyRepository) DeleteParty(ctx context.Context, partyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.parties, partyID)
	delete(r.seats, partyID)
	delete(r.activeRounds, partyID)
	delete(r.allRounds, partyID)
	delete(r.gameStates, partyID)
	return nil
}

func (r *PartyRepository) FindByInviteCode(ctx context.Context, code string) (*domain.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.parties {
		if p.InviteCode == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *PartyRepository) FindPublic(ctx context.Context, status domain.PartyStatus, paging repo.Paging) ([]*domain.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*domain.Party
	for _, p := range r.parties {
		if p.Visibility == domain.VisibilityPublic && p.Status == status {
			cp := *p
			matches = append(matches, &cp)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })

	start := paging.Offset
	if start > len(matches) {
		start = len(matches)
	}
	end := start + paging.Limit
	if paging.Limit <= 0 || end > len(matches) {
		end = len(matches)
	}
	return matches[start:end], nil
}

func (r *PartyRepository) CountPublic(ctx context.Context, status domain.PartyStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, p := range r.parties {
		if p.Visibility == domain.VisibilityPublic && p.Status == status {
			count++
		}
	}
	return count, nil
}

// FindByStatus returns every party in the given status regardless of
// visibility, used by the bot orchestrator to scan for parties to tick.
func (r *PartyRepository) FindByStatus(ctx context.Context, status domain.PartyStatus) ([]*domain.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []*domain.Party
	for _, p := range r.parties {
		if p.Status == status {
			cp := *p
			matches = append(matches, &cp)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (r *PartyRepository) AddPlayer(ctx context.Context, seat *domain.Seat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *seat
	r.seats[seat.PartyID] = append(r.seats[seat.PartyID], &cp)
	return nil
}

func (r *PartyRepository) RemovePlayer(ctx context.Context, partyID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seats := r.seats[partyID]
	filtered := seats[:0]
	for _, s := range seats {
		if s.UserID != userID {
			filtered = append(filtered, s)
		}
	}
	r.seats[partyID] = filtered
	return nil
}

// ReplacePlayers atomically replaces the full seat list for a party, used
// when re-indexing seats after a waiting-room departure (spec §4.3).
func (r *PartyRepository) ReplacePlayers(ctx context.Context, partyID string, seats []*domain.Seat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Seat, len(seats))
	for i, s := range seats {
		cp := *s
		out[i] = &cp
	}
	r.seats[partyID] = out
	return nil
}

func (r *PartyRepository) GetPlayers(ctx context.Context, partyID string) ([]*domain.Seat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seats := r.seats[partyID]
	out := make([]*domain.Seat, len(seats))
	for i, s := range seats {
		cp := *s
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerIndex < out[j].PlayerIndex })
	return out, nil
}

func (r *PartyRepository) GetPlayerCount(ctx context.Context, partyID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.seats[partyID]), nil
}

func (r *PartyRepository) IsUserInParty(ctx context.Context, partyID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.seats[partyID] {
		if s.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *PartyRepository) GetUserPlayerIndex(ctx context.Context, partyID, userID string) (int, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.seats[partyID] {
		if s.UserID == userID {
			return s.PlayerIndex, true, nil
		}
	}
	return 0, false, nil
}

// SaveRound upserts round as its party's current round (spec §3: a party
// has exactly one operative Round at a time, whether its status is
// `active` or `finished`-awaiting-AdvanceRound) and keeps the per-party
// history in allRounds free of duplicates across repeated saves of the
// same in-flight round.
func (r *PartyRepository) SaveRound(ctx context.Context, round *domain.Round) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *round
	r.activeRounds[round.PartyID] = &cp

	rounds := r.allRounds[round.PartyID]
	for i, existing := range rounds {
		if existing.ID == round.ID {
			rounds[i] = &cp
			return nil
		}
	}
	r.allRounds[round.PartyID] = append(rounds, &cp)
	return nil
}

// GetActiveRound returns the party's current round, regardless of
// whether it is still `active` or has `finished` awaiting an
// AdvanceRound call (spec §6).
func (r *PartyRepository) GetActiveRound(ctx context.Context, partyID string) (*domain.Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	round, ok := r.activeRounds[partyID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *round
	return &cp, nil
}

func (r *PartyRepository) GetRounds(ctx context.Context, partyID string) ([]*domain.Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rounds := r.allRounds[partyID]
	out := make([]*domain.Round, len(rounds))
	copy(out, rounds)
	return out, nil
}

func (r *PartyRepository) SaveGameState(ctx context.Context, partyID string, state *domain.GameState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gameStates[partyID] = cloneGameState(state)
	return nil
}

func (r *PartyRepository) GetGameState(ctx context.Context, partyID string) (*domain.GameState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.gameStates[partyID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneGameState(state), nil
}

// cloneGameState deep-copies a GameState so callers outside the party lock
// (the bot orchestrator builds a GameView from a fresh GetGameState call
// while another goroutine may be mutating the stored state under the
// party lock) never observe or race against in-progress mutation.
func cloneGameState(state *domain.GameState) *domain.GameState {
	cp := *state
	cp.Deck = append([]int(nil), state.Deck...)
	cp.DiscardTop = append([]int(nil), state.DiscardTop...)
	cp.PlayedHistory = append([]int(nil), state.PlayedHistory...)
	cp.Hands = make(map[int][]int, len(state.Hands))
	for seat, hand := range state.Hands {
		cp.Hands[seat] = append([]int(nil), hand...)
	}
	cp.ScoresCumulative = make(map[int]int, len(state.ScoresCumulative))
	for seat, score := range state.ScoresCumulative {
		cp.ScoresCumulative[seat] = score
	}
	cp.Eliminated = make(map[int]bool, len(state.Eliminated))
	for seat, elim := range state.Eliminated {
		cp.Eliminated[seat] = elim
	}
	if state.LastAction != nil {
		la := *state.LastAction
		la.CardIDs = append([]int(nil), state.LastAction.CardIDs...)
		cp.LastAction = &la
	}
	if state.ZapZapCaller != nil {
		v := *state.ZapZapCaller
		cp.ZapZapCaller = &v
	}
	return &cp
}

// UserRepository is a goroutine-safe in-memory UserRepository, pre-seeded
// with whatever users the caller registers (humans and bots alike).
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*repo.User
}

// NewUserRepository creates an empty in-memory UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*repo.User)}
}

var _ repo.UserRepository = (*UserRepository)(nil)

// Put registers or replaces a user record; a test/bootstrap helper, not
// part of the repo.UserRepository contract.
func (r *UserRepository) Put(u *repo.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (*repo.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*repo.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *UserRepository) Exists(ctx context.Context, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok, nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*repo.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*repo.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}

func (r *UserRepository) IsBot(ctx context.Context, userID string) (bool, error) {
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.IsBot, nil
}

func (r *UserRepository) BotDifficulty(ctx context.Context, userID string) (domain.BotDifficulty, error) {
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.BotDifficulty, nil
}
