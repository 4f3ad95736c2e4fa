package bot

import (
	"context"
	"log"
	"sync"
	"time"

	"zapzap/internal/core"
	"zapzap/internal/domain"
	"zapzap/internal/metrics"
	"zapzap/internal/repo"
)

// Orchestrator is the single control goroutine that ticks over every
// `playing` party and commits a move for whichever bot seat is
// currently on turn (spec §4.7). Modeled on internal/game/table.go's
// ticker-driven gameLoop, generalized from one table's internal loop to
// a fleet scan across parties, and on main.go's fire-and-forget
// goroutine pattern for per-party work that must not block the scan.
type Orchestrator struct {
	core       *core.Core
	parties    repo.PartyRepository
	users      repo.UserRepository
	strategies map[domain.BotDifficulty]Strategy

	tickInterval   time.Duration
	actionDelay    time.Duration
	actionDeadline time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup

	inFlightMu sync.Mutex
	inFlight   map[string]struct{}
}

// New wires an Orchestrator. tickInterval is how often the fleet is
// scanned; actionDelay is the pause between a strategy deciding its move
// and the orchestrator committing it, so play is observable (spec
// §4.7.3); actionDeadline bounds how long a single bot tick (decide +
// actionDelay + commit) may take before it is abandoned in favor of a
// forfeit draw.
func New(c *core.Core, parties repo.PartyRepository, users repo.UserRepository, strategies map[domain.BotDifficulty]Strategy, tickInterval, actionDelay, actionDeadline time.Duration) *Orchestrator {
	return &Orchestrator{
		core:           c,
		parties:        parties,
		users:          users,
		strategies:     strategies,
		tickInterval:   tickInterval,
		actionDelay:    actionDelay,
		actionDeadline: actionDeadline,
		stopChan:       make(chan struct{}),
		inFlight:       make(map[string]struct{}),
	}
}

// Start begins the scan loop in a goroutine.
func (o *Orchestrator) Start(ctx context.Context) {
	o.wg.Add(1)
	go o.loop(ctx)
}

// Stop signals the loop to exit and waits for it to drain.
func (o *Orchestrator) Stop() {
	close(o.stopChan)
	o.wg.Wait()
}

func (o *Orchestrator) loop(ctx context.Context) {
	defer o.wg.Done()
	ticker := time.NewTicker(o.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopChan:
			return
		case <-ticker.C:
			o.scan(ctx)
		}
	}
}

// scan loads every playing party and fires a tick for each one
// concurrently, so one party's slow bot does not delay the next scan. A
// party already mid-tick is skipped (spec §4.7.2: no bot action may be
// in-flight for a party at the same time as another).
func (o *Orchestrator) scan(ctx context.Context) {
	parties, err := o.parties.FindByStatus(ctx, domain.PartyPlaying)
	if err != nil {
		log.Printf("bot orchestrator: failed to list playing parties: %v", err)
		return
	}
	for _, party := range parties {
		if !o.markInFlight(party.ID) {
			continue
		}
		go func(partyID string) {
			defer o.clearInFlight(partyID)
			o.tickParty(ctx, partyID)
		}(party.ID)
	}
}

// markInFlight claims partyID for the caller, returning false if another
// tick is already running for it.
func (o *Orchestrator) markInFlight(partyID string) bool {
	o.inFlightMu.Lock()
	defer o.inFlightMu.Unlock()
	if _, busy := o.inFlight[partyID]; busy {
		return false
	}
	o.inFlight[partyID] = struct{}{}
	return true
}

func (o *Orchestrator) clearInFlight(partyID string) {
	o.inFlightMu.Lock()
	defer o.inFlightMu.Unlock()
	delete(o.inFlight, partyID)
}

// tickParty commits one move for the acting seat of partyID, if and
// only if that seat is a bot. A deadline bounds the decision+commit
// step; on timeout, it falls back to a forfeit draw from the deck so
// the round never stalls on a misbehaving strategy.
func (o *Orchestrator) tickParty(ctx context.Context, partyID string) {
	round, err := o.parties.GetActiveRound(ctx, partyID)
	if err != nil {
		return
	}
	if round.Status == domain.RoundFinished {
		// The round scored out without ending the game (spec §4.2's
		// EndGame); nudge the party into its next hand the same way a
		// human client's "continue" call would.
		if _, err := o.core.AdvanceRound(ctx, partyID); err != nil {
			log.Printf("bot orchestrator: failed to advance round for party %s: %v", partyID, err)
		}
		return
	}
	state, err := o.parties.GetGameState(ctx, partyID)
	if err != nil {
		return
	}
	seats, err := o.parties.GetPlayers(ctx, partyID)
	if err != nil {
		return
	}
	party, err := o.parties.GetParty(ctx, partyID)
	if err != nil {
		return
	}

	activeSeats := make([]int, 0, len(seats))
	var acting *domain.Seat
	for _, s := range seats {
		if state.Eliminated[s.PlayerIndex] {
			continue
		}
		activeSeats = append(activeSeats, s.PlayerIndex)
	}
	currentSeat := round.CurrentSeat(activeSeats)
	for _, s := range seats {
		if s.PlayerIndex == currentSeat {
			acting = s
			break
		}
	}
	if acting == nil || !acting.IsBot {
		return
	}

	difficulty, err := o.users.BotDifficulty(ctx, acting.UserID)
	if err != nil {
		return
	}
	strategy, ok := o.strategies[difficulty]
	if !ok {
		return
	}

	opponentHandSizes := make(map[int]int, len(activeSeats))
	opponentCumulatives := make(map[int]int, len(activeSeats))
	for _, seat := range activeSeats {
		if seat == currentSeat {
			continue
		}
		opponentHandSizes[seat] = len(state.Hands[seat])
		opponentCumulatives[seat] = state.ScoresCumulative[seat]
	}

	view := GameView{
		Seat:                currentSeat,
		Hand:                state.Hands[currentSeat],
		OwnCumulative:       state.ScoresCumulative[currentSeat],
		OpponentHandSizes:   opponentHandSizes,
		OpponentCumulatives: opponentCumulatives,
		DiscardTop:          state.DiscardTop,
		DeckSize:            len(state.Deck),
		Round:               round.RoundNumber,
		Phase:               round.CurrentAction,
		Settings:            party.Settings,
	}

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		decision := strategy.Decide(view)
		delay := o.actionDelay
		if delay > o.actionDeadline {
			delay = o.actionDeadline
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
		done <- o.commit(ctx, partyID, acting.UserID, decision)
	}()

	select {
	case <-done:
		metrics.BotTickLatency.WithLabelValues(difficulty.String()).Observe(time.Since(start).Seconds())
	case <-time.After(o.actionDeadline):
		metrics.BotTickLatency.WithLabelValues(difficulty.String()).Observe(time.Since(start).Seconds())
		metrics.BotTickForfeits.Inc()
		log.Printf("bot orchestrator: seat %d in party %s missed its deadline, forfeiting a draw", currentSeat, partyID)
		o.forfeit(ctx, partyID, acting.UserID, round.CurrentAction, state.Hands[currentSeat])
	}
}

// forfeit is the deadline-exceeded fallback (spec §4.7, §8's "always
// produces a visible Draw(deck) action" property): drawing requires the
// seat to be in its draw phase, so a seat caught mid-play first forfeits
// by playing its first held card (always a legal single) to reach the
// draw phase it can then forfeit-draw from.
func (o *Orchestrator) forfeit(ctx context.Context, partyID, userID string, phase domain.Phase, hand []int) {
	if phase == domain.PhasePlay {
		if len(hand) == 0 {
			return
		}
		if err := o.core.PlayCards(ctx, partyID, userID, []int{hand[0]}); err != nil {
			log.Printf("bot orchestrator: forfeit play failed for party %s: %v", partyID, err)
			return
		}
	}
	if err := o.core.DrawCard(ctx, partyID, userID, domain.DrawFromDeck, nil); err != nil {
		log.Printf("bot orchestrator: forfeit draw failed for party %s: %v", partyID, err)
	}
}

func (o *Orchestrator) commit(ctx context.Context, partyID, userID string, d Decision) error {
	switch d.Action {
	case ActionPlay:
		return o.core.PlayCards(ctx, partyID, userID, d.CardIDs)
	case ActionCallZapZap:
		return o.core.CallZapZap(ctx, partyID, userID)
	default:
		return o.core.DrawCard(ctx, partyID, userID, d.Source, d.DiscardCardID)
	}
}
