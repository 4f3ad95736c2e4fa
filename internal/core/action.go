package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"zapzap/internal/domain"
	"zapzap/internal/metrics"
	"zapzap/internal/repo"
	"zapzap/pkg/cards"
	"zapzap/pkg/rng"
)

// instrument records ActionLatency/ActionTotal for one named operation,
// classifying the outcome as "ok" or "error" (spec §4.6).
func instrument(operation string, start time.Time, err error) {
	metrics.ActionLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ActionTotal.WithLabelValues(operation, result).Inc()
}

// EventPublisher is the narrow slice of internal/bus.Bus the Action API
// needs: one event published per successful mutation, from inside the
// party lock, so subscribers observe the same order the core applied
// (spec §4.5). Declared here rather than imported from internal/bus to
// keep internal/core free of a dependency on the bus's transport
// concerns, mirroring the narrow-interface style of internal/repo.
type EventPublisher interface {
	Publish(evt domain.Event)
}

// RoundHistory is the narrow record handed to an optional HistorySink
// once a round finishes (spec §4.2). Declared with plain types rather
// than importing internal/repo/chanalytics directly, mirroring
// EventPublisher's narrow-interface isolation from internal/bus.
type RoundHistory struct {
	RoundID         string
	PartyID         string
	RoundNumber     int
	SeatUserIDs     map[int]string
	ZapCallerSeat   *int
	GoldenScore     bool
	PerSeatDelta    map[int]int
	EliminatedSeats []int
	CreatedAt       time.Time
	FinishedAt      time.Time
}

// GameHistory is the narrow record handed to an optional HistorySink
// once EndGame decides a winner.
type GameHistory struct {
	PartyID    string
	WinnerSeat int
	RoundCount int
	FinishedAt time.Time
}

// HistorySink is the optional warehouse consumer for completed rounds
// and games (SPEC_FULL.md's ClickHouse analytics sink); a nil Core.History
// is a valid no-op configuration.
type HistorySink interface {
	RecordRound(ctx context.Context, rec RoundHistory) error
	RecordGame(ctx context.Context, rec GameHistory) error
}

// Core is the Action API (spec §4.6): the single entry point every
// transport adapter (HTTP handler, bot tick) calls through. It holds the
// party lock registry so that, for any one party, at most one operation
// is ever mutating state at a time. Adapted from table.go's
// SubmitAction/handleAction dispatch and main.go's GameServer wiring,
// generalized from a single in-process table to repository-backed
// parties behind a lock-per-party registry.
type Core struct {
	Parties repo.PartyRepository
	Users   repo.UserRepository
	Locks   *MutexRegistry
	Events  EventPublisher
	RNG     *rng.System
	History HistorySink // optional; nil disables round/game warehousing

	versionMu sync.Mutex
	versions  map[string]uint64
}

// New wires a Core from its dependencies.
func New(parties repo.PartyRepository, users repo.UserRepository, events EventPublisher, r *rng.System) *Core {
	return &Core{
		Parties:  parties,
		Users:    users,
		Locks:    NewMutexRegistry(),
		Events:   events,
		RNG:      r,
		versions: make(map[string]uint64),
	}
}

// checkDeadline aborts the in-flight action with a Timeout CoreError once
// the caller-supplied context deadline has passed (spec §5). Every
// mutating operation calls this immediately after acquiring the party
// lock. PlayCards, DrawCard, CallZapZap and AdvanceRound call it again
// immediately before their first persistence write, so a deadline that
// expires while queued for the lock, or while the pure rule functions
// ran, is caught before any of their state becomes durable. CreateParty,
// JoinParty, LeaveParty and StartParty check only once, right after
// locking; a deadline that expires after that check does not stop their
// writes.
func checkDeadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return wrapErr(CodeTimeout, "action deadline exceeded", err)
	}
	return nil
}

func (c *Core) publish(evt domain.Event) {
	if c.Events == nil {
		return
	}
	evt.Timestamp = time.Now()
	c.Events.Publish(evt)
}

// nextVersion returns the next monotonically increasing version number
// for partyID, for the `stateChanged` event's version field (spec §4.5).
// Every call site runs inside that party's lock, so no extra
// synchronization against concurrent mutation of the same party is
// needed; versionMu only guards the shared map against other parties'
// concurrent calls.
func (c *Core) nextVersion(partyID string) uint64 {
	c.versionMu.Lock()
	defer c.versionMu.Unlock()
	c.versions[partyID]++
	return c.versions[partyID]
}

// publishStateChanged emits the stateChanged event (spec §4.5): a
// monotonically increasing per-party version plus a short cause tag.
func (c *Core) publishStateChanged(partyID, userID, cause string) {
	c.publish(domain.Event{
		Type:    domain.EventStateChanged,
		PartyID: partyID,
		UserID:  userID,
		Payload: map[string]any{"version": c.nextVersion(partyID), "cause": cause},
	})
}

// activeSeatIndices returns the player indices of seats not yet
// eliminated in state, or every seat index when state is nil (pre-game).
func activeSeatIndices(seats []*domain.Seat, state *domain.GameState) []int {
	out := make([]int, 0, len(seats))
	for _, s := range seats {
		if state != nil && state.Eliminated[s.PlayerIndex] {
			continue
		}
		out = append(out, s.PlayerIndex)
	}
	return out
}

// CreateParty applies the CreateParty operation (spec §4.6, §6): a fresh
// party in the waiting state, owned by callerID, with the caller seated
// first, followed by any pre-reserved bot seats (spec §4.3). Every
// botSeatID must resolve to a bot user in the user repository or the
// whole operation fails with NotFound, per spec §6's error column for
// CreateParty; no partial party is left behind because persistence for
// this operation is entirely local to this one locked call.
func (c *Core) CreateParty(ctx context.Context, callerID, name string, visibility domain.Visibility, settings domain.Settings, botSeatIDs []string) (party *domain.Party, err error) {
	defer func(start time.Time) { instrument("CreateParty", start, err) }(time.Now())

	if err = ValidateSettings(settings); err != nil {
		return nil, err
	}
	if len(botSeatIDs)+1 > settings.PlayerCount {
		return nil, newErr(CodeInvalidInput, "botSeatIds exceed playerCount")
	}
	for _, botID := range botSeatIDs {
		isBot, err := c.Users.IsBot(ctx, botID)
		if err != nil {
			return nil, wrapErr(CodeNotFound, "reserved bot seat not found", err)
		}
		if !isBot {
			return nil, newErr(CodeNotFound, "reserved seat "+botID+" is not a bot")
		}
	}

	partyID := uuid.NewString()
	unlock := c.Locks.Lock(partyID)
	defer unlock()
	if err := checkDeadline(ctx); err != nil {
		return nil, err
	}

	party = NewParty(partyID, callerID, name, visibility, settings, GenerateInviteCode(c.RNG))
	if err := c.Parties.CreateParty(ctx, party); err != nil {
		return nil, wrapErr(CodeInternal, "failed to create party", err)
	}
	isBot, _ := c.Users.IsBot(ctx, callerID)
	seat := &domain.Seat{PartyID: partyID, UserID: callerID, PlayerIndex: 0, JoinedAt: time.Now(), IsBot: isBot}
	if err := c.Parties.AddPlayer(ctx, seat); err != nil {
		return nil, wrapErr(CodeInternal, "failed to seat owner", err)
	}
	for i, botID := range botSeatIDs {
		botSeat := &domain.Seat{PartyID: partyID, UserID: botID, PlayerIndex: i + 1, JoinedAt: time.Now(), IsBot: true}
		if err := c.Parties.AddPlayer(ctx, botSeat); err != nil {
			return nil, wrapErr(CodeInternal, "failed to seat reserved bot", err)
		}
	}

	c.publish(domain.Event{Type: domain.EventPartyCreated, PartyID: partyID, UserID: callerID})
	return party, nil
}

// JoinParty applies the Join operation (spec §4.3/§6).
func (c *Core) JoinParty(ctx context.Context, partyID, userID string) (party *domain.Party, err error) {
	defer func(start time.Time) { instrument("JoinParty", start, err) }(time.Now())

	unlock := c.Locks.Lock(partyID)
	defer unlock()
	if err := checkDeadline(ctx); err != nil {
		return nil, err
	}

	party, err = c.Parties.GetParty(ctx, partyID)
	if err != nil {
		return nil, wrapErr(CodeNotFound, "party not found", err)
	}
	seats, err := c.Parties.GetPlayers(ctx, partyID)
	if err != nil {
		return nil, wrapErr(CodeInternal, "failed to load seats", err)
	}
	if err := CanJoin(party, seats, userID); err != nil {
		if err == ErrAlreadyInParty {
			// Join is the only idempotent Action API operation (spec
			// §4.6): an already-seated caller gets the existing party
			// back instead of a Conflict error.
			return party, nil
		}
		return nil, toCoreError(err)
	}

	isBot, _ := c.Users.IsBot(ctx, userID)
	seat := &domain.Seat{
		PartyID:     partyID,
		UserID:      userID,
		PlayerIndex: NextSeatIndex(seats),
		JoinedAt:    time.Now(),
		IsBot:       isBot,
	}
	if err := c.Parties.AddPlayer(ctx, seat); err != nil {
		return nil, wrapErr(CodeInternal, "failed to seat player", err)
	}

	c.publish(domain.Event{Type: domain.EventPlayerJoined, PartyID: partyID, UserID: userID})
	return party, nil
}

// LeaveParty applies the Leave operation (spec §4.3/§6). Leaving a
// playing party is a forfeit: the seat is marked eliminated rather than
// removed, so round turn-order math stays stable.
func (c *Core) LeaveParty(ctx context.Context, partyID, userID string) (err error) {
	defer func(start time.Time) { instrument("LeaveParty", start, err) }(time.Now())

	unlock := c.Locks.Lock(partyID)
	defer unlock()
	if err := checkDeadline(ctx); err != nil {
		return err
	}

	party, err := c.Parties.GetParty(ctx, partyID)
	if err != nil {
		return wrapErr(CodeNotFound, "party not found", err)
	}

	if party.Status == domain.PartyWaiting {
		seats, err := c.Parties.GetPlayers(ctx, partyID)
		if err != nil {
			return wrapErr(CodeInternal, "failed to load seats", err)
		}
		remaining := LeaveDuringWaiting(seats, userID)
		if err := c.Parties.ReplacePlayers(ctx, partyID, remaining); err != nil {
			return wrapErr(CodeInternal, "failed to re-seat remaining players", err)
		}
		c.publish(domain.Event{Type: domain.EventPlayerLeft, PartyID: partyID, UserID: userID})
		return nil
	}

	idx, found, err := c.Parties.GetUserPlayerIndex(ctx, partyID, userID)
	if err != nil {
		return wrapErr(CodeInternal, "failed to resolve seat", err)
	}
	if !found {
		return toCoreError(ErrNotInParty)
	}
	state, err := c.Parties.GetGameState(ctx, partyID)
	if err != nil {
		return wrapErr(CodeInternal, "failed to load game state", err)
	}
	state.Eliminated[idx] = true
	if err := c.Parties.SaveGameState(ctx, partyID, state); err != nil {
		return wrapErr(CodeInternal, "failed to save game state", err)
	}

	c.publish(domain.Event{Type: domain.EventPlayerLeft, PartyID: partyID, UserID: userID})
	return c.checkGameEnd(ctx, party, state)
}

// StartParty applies the Start operation (spec §4.3/§6): deals the first
// round and flips the party into the playing state.
func (c *Core) StartParty(ctx context.Context, partyID, callerID string) (round *domain.Round, err error) {
	defer func(start time.Time) { instrument("StartParty", start, err) }(time.Now())

	unlock := c.Locks.Lock(partyID)
	defer unlock()
	if err := checkDeadline(ctx); err != nil {
		return nil, err
	}

	party, err := c.Parties.GetParty(ctx, partyID)
	if err != nil {
		return nil, wrapErr(CodeNotFound, "party not found", err)
	}
	seats, err := c.Parties.GetPlayers(ctx, partyID)
	if err != nil {
		return nil, wrapErr(CodeInternal, "failed to load seats", err)
	}
	if err := CanStart(party, seats, callerID); err != nil {
		return nil, toCoreError(err)
	}

	activeSeats := activeSeatIndices(seats, nil)
	state := DealRound(c.RNG, activeSeats, party.Settings.HandSize, nil, nil)
	round = &domain.Round{
		ID:             uuid.NewString(),
		PartyID:        partyID,
		RoundNumber:    1,
		Status:         domain.RoundActive,
		CurrentTurn:    0,
		CurrentAction:  domain.PhaseDraw,
		StartingPlayer: activeSeats[0],
		CreatedAt:      time.Now(),
	}

	party.Status = domain.PartyPlaying
	party.UpdatedAt = time.Now()
	if err := c.Parties.UpdateParty(ctx, party); err != nil {
		return nil, wrapErr(CodeInternal, "failed to update party", err)
	}
	if err := c.Parties.SaveRound(ctx, round); err != nil {
		return nil, wrapErr(CodeInternal, "failed to save round", err)
	}
	if err := c.Parties.SaveGameState(ctx, partyID, state); err != nil {
		return nil, wrapErr(CodeInternal, "failed to save game state", err)
	}

	c.publish(domain.Event{Type: domain.EventRoundStarted, PartyID: partyID, Payload: map[string]any{"round": round.RoundNumber}})
	return round, nil
}

// loadActive loads the party, its seats, the active round, and game
// state, and returns them together with the active-seat set, the
// standard precondition bundle for the three in-round operations.
func (c *Core) loadActive(ctx context.Context, partyID string) (*domain.Party, *domain.Round, *domain.GameState, []int, error) {
	party, err := c.Parties.GetParty(ctx, partyID)
	if err != nil {
		return nil, nil, nil, nil, wrapErr(CodeNotFound, "party not found", err)
	}
	if party.Status != domain.PartyPlaying {
		return nil, nil, nil, nil, toCoreError(ErrWrongState)
	}
	round, err := c.Parties.GetActiveRound(ctx, partyID)
	if err != nil {
		return nil, nil, nil, nil, wrapErr(CodeNotFound, "no active round", err)
	}
	if round.Status != domain.RoundActive {
		// The round has scored out and is waiting on AdvanceRound; Play,
		// Draw, and CallZapZap are not valid until the next hand is dealt.
		return nil, nil, nil, nil, toCoreError(ErrWrongState)
	}
	state, err := c.Parties.GetGameState(ctx, partyID)
	if err != nil {
		return nil, nil, nil, nil, wrapErr(CodeInternal, "failed to load game state", err)
	}
	seats, err := c.Parties.GetPlayers(ctx, partyID)
	if err != nil {
		return nil, nil, nil, nil, wrapErr(CodeInternal, "failed to load seats", err)
	}
	return party, round, state, activeSeatIndices(seats, state), nil
}

func (c *Core) seatOf(ctx context.Context, partyID, userID string) (int, error) {
	idx, found, err := c.Parties.GetUserPlayerIndex(ctx, partyID, userID)
	if err != nil {
		return 0, wrapErr(CodeInternal, "failed to resolve seat", err)
	}
	if !found {
		return 0, toCoreError(ErrNotInParty)
	}
	return idx, nil
}

// PlayCards applies the PlayCards operation (spec §4.2/§6).
func (c *Core) PlayCards(ctx context.Context, partyID, userID string, cardIDs []int) (err error) {
	defer func(start time.Time) { instrument("PlayCards", start, err) }(time.Now())

	unlock := c.Locks.Lock(partyID)
	defer unlock()
	if err := checkDeadline(ctx); err != nil {
		return err
	}

	party, round, state, activeSeats, err := c.loadActive(ctx, partyID)
	if err != nil {
		return err
	}
	seat, err := c.seatOf(ctx, partyID, userID)
	if err != nil {
		return err
	}

	result, err := Play(state, round, activeSeats, seat, cardIDs)
	if err != nil {
		return toCoreError(err)
	}
	if err := checkDeadline(ctx); err != nil {
		return err
	}

	if err := c.Parties.SaveRound(ctx, round); err != nil {
		return wrapErr(CodeInternal, "failed to save round", err)
	}
	if err := c.Parties.SaveGameState(ctx, partyID, state); err != nil {
		return wrapErr(CodeInternal, "failed to save game state", err)
	}

	c.publishStateChanged(partyID, userID, "play")

	if result != nil {
		c.publish(domain.Event{Type: domain.EventRoundEnded, PartyID: partyID, Payload: map[string]any{"scores": result.Score.PerSeatDelta}})
		return c.settleRound(ctx, party, round, state, activeSeats, result.Score)
	}
	return nil
}

// DrawCard applies the DrawCard operation (spec §4.2/§6).
func (c *Core) DrawCard(ctx context.Context, partyID, userID string, source domain.DrawSource, cardID *int) (err error) {
	defer func(start time.Time) { instrument("DrawCard", start, err) }(time.Now())

	unlock := c.Locks.Lock(partyID)
	defer unlock()
	if err := checkDeadline(ctx); err != nil {
		return err
	}

	_, round, state, activeSeats, err := c.loadActive(ctx, partyID)
	if err != nil {
		return err
	}
	seat, err := c.seatOf(ctx, partyID, userID)
	if err != nil {
		return err
	}

	if err := Draw(state, round, activeSeats, seat, source, cardID, c.RNG); err != nil {
		return toCoreError(err)
	}
	if err := checkDeadline(ctx); err != nil {
		return err
	}

	if err := c.Parties.SaveRound(ctx, round); err != nil {
		return wrapErr(CodeInternal, "failed to save round", err)
	}
	if err := c.Parties.SaveGameState(ctx, partyID, state); err != nil {
		return wrapErr(CodeInternal, "failed to save game state", err)
	}

	c.publishStateChanged(partyID, userID, "draw")
	return nil
}

// CallZapZap applies the CallZapZap operation (spec §4.2/§6).
func (c *Core) CallZapZap(ctx context.Context, partyID, userID string) (err error) {
	defer func(start time.Time) { instrument("CallZapZap", start, err) }(time.Now())

	unlock := c.Locks.Lock(partyID)
	defer unlock()
	if err := checkDeadline(ctx); err != nil {
		return err
	}

	party, round, state, activeSeats, err := c.loadActive(ctx, partyID)
	if err != nil {
		return err
	}
	seat, err := c.seatOf(ctx, partyID, userID)
	if err != nil {
		return err
	}

	score, err := CallZapZap(state, round, activeSeats, seat)
	if err != nil {
		return toCoreError(err)
	}
	if err := checkDeadline(ctx); err != nil {
		return err
	}

	if err := c.Parties.SaveRound(ctx, round); err != nil {
		return wrapErr(CodeInternal, "failed to save round", err)
	}
	if err := c.Parties.SaveGameState(ctx, partyID, state); err != nil {
		return wrapErr(CodeInternal, "failed to save game state", err)
	}

	c.publish(domain.Event{Type: domain.EventRoundEnded, PartyID: partyID, UserID: userID, Payload: map[string]any{"scores": score.PerSeatDelta}})
	return c.settleRound(ctx, party, round, state, activeSeats, score)
}

// AdvanceRound applies the AdvanceRound operation (spec §4.2/§6): the
// caller-invoked transition from a finished round to a freshly dealt one.
// EndGame is decided automatically as part of scoring a round (it is not
// one of the 7 Action API operations, per spec §6); this operation only
// ever runs for a party that EndGame has left in play.
func (c *Core) AdvanceRound(ctx context.Context, partyID string) (round *domain.Round, err error) {
	defer func(start time.Time) { instrument("AdvanceRound", start, err) }(time.Now())

	unlock := c.Locks.Lock(partyID)
	defer unlock()
	if err := checkDeadline(ctx); err != nil {
		return nil, err
	}

	party, err := c.Parties.GetParty(ctx, partyID)
	if err != nil {
		return nil, wrapErr(CodeNotFound, "party not found", err)
	}
	if party.Status == domain.PartyFinished {
		return nil, toCoreError(ErrGameOver)
	}
	if party.Status != domain.PartyPlaying {
		return nil, toCoreError(ErrWrongState)
	}
	prior, err := c.Parties.GetActiveRound(ctx, partyID)
	if err != nil {
		return nil, wrapErr(CodeNotFound, "no active round", err)
	}
	if prior.Status != domain.RoundFinished {
		return nil, toCoreError(ErrRoundNotFinished)
	}
	state, err := c.Parties.GetGameState(ctx, partyID)
	if err != nil {
		return nil, wrapErr(CodeInternal, "failed to load game state", err)
	}
	seats, err := c.Parties.GetPlayers(ctx, partyID)
	if err != nil {
		return nil, wrapErr(CodeInternal, "failed to load seats", err)
	}
	activeSeats := activeSeatIndices(seats, state)
	if len(activeSeats) < 2 {
		return nil, toCoreError(ErrGameOver)
	}

	next, nextState := AdvanceRound(c.RNG, partyID, prior.StartingPlayer, activeSeats, prior.RoundNumber+1, party.Settings.HandSize, state.ScoresCumulative, state.Eliminated)
	next.ID = uuid.NewString()
	if err := checkDeadline(ctx); err != nil {
		return nil, err
	}
	if err := c.Parties.SaveRound(ctx, next); err != nil {
		return nil, wrapErr(CodeInternal, "failed to save round", err)
	}
	if err := c.Parties.SaveGameState(ctx, partyID, nextState); err != nil {
		return nil, wrapErr(CodeInternal, "failed to save game state", err)
	}
	c.publish(domain.Event{Type: domain.EventRoundStarted, PartyID: partyID, Payload: map[string]any{"round": next.RoundNumber}})
	return next, nil
}

// settleRound is called the instant a round finishes (by empty hand or
// an explicit CallZapZap): it records the round to the optional history
// sink and, if EndGame decides a winner, ends the game. EndGame is not
// itself an Action API operation (spec §6 lists 7, not 8) so when the
// game is not over the round is simply left finished; the next
// AdvanceRound call deals the next hand.
func (c *Core) settleRound(ctx context.Context, party *domain.Party, finishedRound *domain.Round, state *domain.GameState, activeSeats []int, score cards.RoundScore) error {
	c.recordRoundHistory(ctx, party, finishedRound, state, score)

	stillActive := make([]int, 0, len(activeSeats))
	for _, s := range activeSeats {
		if !state.Eliminated[s] {
			stillActive = append(stillActive, s)
		}
	}

	if winner, decided := EndGame(state, stillActive); decided {
		party.Status = domain.PartyFinished
		party.UpdatedAt = time.Now()
		if err := c.Parties.UpdateParty(ctx, party); err != nil {
			return wrapErr(CodeInternal, "failed to update party", err)
		}
		c.publish(domain.Event{Type: domain.EventGameEnded, PartyID: party.ID, Payload: map[string]any{"winnerSeat": winner}})
		c.recordGameHistory(ctx, party, finishedRound.RoundNumber, winner)
	}
	return nil
}

// recordRoundHistory best-effort forwards a finished round to the
// optional history sink; a nil sink or a write failure never fails the
// Action API call that triggered it.
func (c *Core) recordRoundHistory(ctx context.Context, party *domain.Party, finishedRound *domain.Round, state *domain.GameState, score cards.RoundScore) {
	if c.History == nil {
		return
	}
	seats, err := c.Parties.GetPlayers(ctx, party.ID)
	if err != nil {
		return
	}
	seatUserIDs := make(map[int]string, len(seats))
	for _, s := range seats {
		seatUserIDs[s.PlayerIndex] = s.UserID
	}
	var eliminatedSeats []int
	for seat, elim := range state.Eliminated {
		if elim {
			eliminatedSeats = append(eliminatedSeats, seat)
		}
	}
	finishedAt := time.Now()
	if finishedRound.FinishedAt != nil {
		finishedAt = *finishedRound.FinishedAt
	}
	_ = c.History.RecordRound(ctx, RoundHistory{
		RoundID:         finishedRound.ID,
		PartyID:         party.ID,
		RoundNumber:     finishedRound.RoundNumber,
		SeatUserIDs:     seatUserIDs,
		ZapCallerSeat:   state.ZapZapCaller,
		GoldenScore:     state.GoldenScore,
		PerSeatDelta:    score.PerSeatDelta,
		EliminatedSeats: eliminatedSeats,
		CreatedAt:       finishedRound.CreatedAt,
		FinishedAt:      finishedAt,
	})
}

// recordGameHistory best-effort forwards a finished game to the optional
// history sink.
func (c *Core) recordGameHistory(ctx context.Context, party *domain.Party, roundCount, winnerSeat int) {
	if c.History == nil {
		return
	}
	_ = c.History.RecordGame(ctx, GameHistory{
		PartyID:    party.ID,
		WinnerSeat: winnerSeat,
		RoundCount: roundCount,
		FinishedAt: time.Now(),
	})
}

// checkGameEnd re-evaluates EndGame after a forfeit leave removes a seat
// mid-round, without dealing a fresh round (the remaining round continues).
func (c *Core) checkGameEnd(ctx context.Context, party *domain.Party, state *domain.GameState) error {
	seats, err := c.Parties.GetPlayers(ctx, party.ID)
	if err != nil {
		return wrapErr(CodeInternal, "failed to load seats", err)
	}
	activeSeats := activeSeatIndices(seats, state)

	winner, decided := EndGame(state, activeSeats)
	if !decided {
		return nil
	}

	party.Status = domain.PartyFinished
	party.UpdatedAt = time.Now()
	if err := c.Parties.UpdateParty(ctx, party); err != nil {
		return wrapErr(CodeInternal, "failed to update party", err)
	}
	c.publish(domain.Event{Type: domain.EventGameEnded, PartyID: party.ID, Payload: map[string]any{"winnerSeat": winner}})
	rounds, err := c.Parties.GetRounds(ctx, party.ID)
	roundCount := len(rounds)
	if err != nil {
		roundCount = 0
	}
	c.recordGameHistory(ctx, party, roundCount, winner)
	return nil
}

// toCoreError maps a pure-function sentinel error into the matching
// CoreError code (spec §7), so Action API callers only ever see
// *CoreError, never the internal sentinels directly.
func toCoreError(err error) error {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*CoreError); ok {
		return ce
	}
	switch err {
	case ErrPartyFull, ErrAlreadyInParty:
		return wrapErr(CodeConflict, err.Error(), err)
	case ErrPartyStarted, ErrPartyFinished, ErrWrongState, ErrRoundNotFinished, ErrGameOver:
		return wrapErr(CodeWrongState, err.Error(), err)
	case ErrNotOwner:
		return wrapErr(CodeUnauthorized, err.Error(), err)
	case ErrNotInParty:
		return wrapErr(CodeNotFound, err.Error(), err)
	case ErrTooFewPlayers:
		return wrapErr(CodeInvalidInput, err.Error(), err)
	case ErrNotYourTurn, ErrWrongPhase, ErrNotInHand, ErrInvalidSource, ErrCardNotInDiscard, ErrNotEligible:
		return wrapErr(CodeRuleViolation, err.Error(), err)
	default:
		return wrapErr(CodeInternal, "unclassified error", err)
	}
}
