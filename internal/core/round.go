package core

import (
	"time"

	"zapzap/internal/domain"
	"zapzap/internal/metrics"
	"zapzap/pkg/cards"
	"zapzap/pkg/rng"
)

// DealRound deals a fresh shuffled deck to activeSeats, handSize cards
// each, and returns the resulting GameState (spec §4.2 AdvanceRound
// effect). carryScores/carryEliminated are the prior round's
// ScoresCumulative/Eliminated maps (nil for a party's first round); they
// are copied onto the new state so a party's cumulative scores and
// eliminations persist across rounds instead of resetting to zero every
// deal (spec §1, §4.1's cumulative > 100 elimination, §4.2 Golden Score).
func DealRound(r *rng.System, activeSeats []int, handSize int, carryScores map[int]int, carryEliminated map[int]bool) *domain.GameState {
	deck := r.NewDeck()
	state := domain.NewGameState()

	for _, seat := range activeSeats {
		state.Hands[seat] = append([]int{}, deck[:handSize]...)
		deck = deck[handSize:]
	}
	state.Deck = deck
	for seat, score := range carryScores {
		state.ScoresCumulative[seat] = score
	}
	for seat, eliminated := range carryEliminated {
		state.Eliminated[seat] = eliminated
	}
	return state
}

// removeCards removes each id in toRemove from hand (multiset semantics:
// each occurrence removes exactly one matching card) and reports whether
// every id was found.
func removeCards(hand []int, toRemove []int) ([]int, bool) {
	remaining := append([]int{}, hand...)
	for _, want := range toRemove {
		found := false
		for i, have := range remaining {
			if have == want {
				remaining = append(remaining[:i], remaining[i+1:]...)
				found = true
				break
			}
		}
		if !found {
			return hand, false
		}
	}
	return remaining, true
}

// Play applies the Play(cards) operation (spec §4.2). seat must be the
// round's current seat and the round's phase must be `play`. A return of
// *CoreError with Code == CodeRuleViolation carries the human-readable
// reason from pkg/cards.AnalyzePlay.
// autoZapResult is returned by Play when it empties a hand and the round
// auto-resolves instead of moving on to the draw phase (SPEC_FULL.md §E.2).
type autoZapResult struct {
	Score cards.RoundScore
}

func Play(state *domain.GameState, round *domain.Round, activeSeats []int, seat int, cardIDs []int) (*autoZapResult, error) {
	if round.CurrentSeat(activeSeats) != seat {
		return nil, ErrNotYourTurn
	}
	if round.CurrentAction != domain.PhasePlay {
		return nil, ErrWrongPhase
	}

	hand := state.Hands[seat]
	remaining, ok := removeCards(hand, cardIDs)
	if !ok {
		return nil, ErrNotInHand
	}

	ids := make([]cards.ID, len(cardIDs))
	for i, c := range cardIDs {
		ids[i] = cards.ID(c)
	}
	analysis := cards.AnalyzePlay(ids)
	if !analysis.Valid {
		return nil, wrapErr(CodeRuleViolation, analysis.Reason, nil)
	}

	state.PlayedHistory = append(state.PlayedHistory, state.DiscardTop...)
	state.DiscardTop = append([]int{}, cardIDs...)
	state.Hands[seat] = remaining
	state.LastAction = &domain.LastAction{
		Type:        domain.ActionPlay,
		PlayerIndex: seat,
		CardIDs:     append([]int{}, cardIDs...),
		Timestamp:   time.Now(),
	}

	if len(remaining) == 0 {
		// Open question §E.2: an emptied hand auto-resolves as a zero-
		// penalty ZapZap call instead of entering the draw phase, since
		// the seat has nothing left to draw into.
		state.ZapZapCaller = &seat
		score := finishRound(state, round, activeSeats, &seat)
		return &autoZapResult{Score: score}, nil
	}

	round.CurrentAction = domain.PhaseDraw
	return nil, nil
}

// Draw applies the Draw(source, cardId?) operation, including the
// reshuffle protocol (spec §4.2). It advances the turn cursor to the next
// non-eliminated seat and resets phase to `play` on success.
func Draw(state *domain.GameState, round *domain.Round, activeSeats []int, seat int, source domain.DrawSource, cardID *int, r *rng.System) error {
	if round.CurrentSeat(activeSeats) != seat {
		return ErrNotYourTurn
	}
	if round.CurrentAction != domain.PhaseDraw {
		return ErrWrongPhase
	}

	reshuffled := false
	var drawn int

	switch source {
	case domain.DrawFromDeck:
		if len(state.Deck) == 0 {
			state.Deck = append(state.Deck, state.PlayedHistory...)
			state.PlayedHistory = nil
			r.Shuffle(state.Deck)
			reshuffled = true
		}
		if len(state.Deck) == 0 {
			return wrapErr(CodeInternal, "no cards available to draw even after reshuffle", nil)
		}
		drawn = state.Deck[0]
		state.Deck = state.Deck[1:]
	case domain.DrawFromDiscard:
		if cardID == nil {
			return ErrCardNotInDiscard
		}
		remaining, ok := removeCards(state.DiscardTop, []int{*cardID})
		if !ok {
			return ErrCardNotInDiscard
		}
		state.DiscardTop = remaining
		drawn = *cardID
	default:
		return ErrInvalidSource
	}

	state.Hands[seat] = append(state.Hands[seat], drawn)
	state.LastAction = &domain.LastAction{
		Type:           domain.ActionDraw,
		PlayerIndex:    seat,
		Source:         source,
		CardID:         &drawn,
		DeckReshuffled: reshuffled,
		Timestamp:      time.Now(),
	}

	round.CurrentTurn++
	round.CurrentAction = domain.PhasePlay
	return nil
}

// CallZapZap applies the CallZapZap() operation (spec §4.2): scores the
// round, applies deltas and eliminations, and marks the round finished.
func CallZapZap(state *domain.GameState, round *domain.Round, activeSeats []int, seat int) (cards.RoundScore, error) {
	if round.CurrentSeat(activeSeats) != seat {
		return cards.RoundScore{}, ErrNotYourTurn
	}
	if round.CurrentAction != domain.PhasePlay {
		return cards.RoundScore{}, ErrWrongPhase
	}

	hand := cards.ToIDs(state.Hands[seat])
	if !cards.IsZapZapEligible(hand) {
		return cards.RoundScore{}, ErrNotEligible
	}

	state.ZapZapCaller = &seat
	score := finishRound(state, round, activeSeats, &seat)
	return score, nil
}

// finishRound scores the round against zapCallerSeat (the seat that called
// ZapZap or emptied its hand on Play; nil scores it with no caller), applies deltas,
// marks eliminations (ignored under Golden Score), and marks the round
// finished.
func finishRound(state *domain.GameState, round *domain.Round, activeSeats []int, zapCallerSeat *int) cards.RoundScore {
	hands := make(map[int][]cards.ID, len(state.Hands))
	for seat, h := range state.Hands {
		hands[seat] = cards.ToIDs(h)
	}

	score := cards.ScoreRound(hands, zapCallerSeat, len(activeSeats))

	goldenScore := len(activeSeats) == 2
	for seat, delta := range score.PerSeatDelta {
		state.ScoresCumulative[seat] += delta
		if !goldenScore && cards.Eliminated(state.ScoresCumulative[seat]) {
			state.Eliminated[seat] = true
		}
	}
	state.GoldenScore = goldenScore

	round.Status = domain.RoundFinished
	now := time.Now()
	round.FinishedAt = &now
	metrics.RoundDuration.Observe(now.Sub(round.CreatedAt).Seconds())
	return score
}

// AdvanceRound creates the next round for a party still in play (spec
// §4.2). Preconditions (prior round finished, party playing, >=2 active
// seats) are enforced by the Action API before calling this.
func AdvanceRound(r *rng.System, partyID string, priorStartingPlayer int, activeSeats []int, roundNumber int, handSize int, carryScores map[int]int, carryEliminated map[int]bool) (*domain.Round, *domain.GameState) {
	nextStarter := nextActiveSeatAfter(activeSeats, priorStartingPlayer)

	round := &domain.Round{
		PartyID:        partyID,
		RoundNumber:    roundNumber,
		Status:         domain.RoundActive,
		CurrentTurn:    0,
		CurrentAction:  domain.PhaseDraw,
		StartingPlayer: nextStarter,
		CreatedAt:      time.Now(),
	}
	state := DealRound(r, activeSeats, handSize, carryScores, carryEliminated)
	return round, state
}

// nextActiveSeatAfter returns the next seat in activeSeats strictly after
// `after`, wrapping around; if `after` is not itself active, the first
// active seat clockwise from it is returned.
func nextActiveSeatAfter(activeSeats []int, after int) int {
	if len(activeSeats) == 0 {
		return after
	}
	for i, seat := range activeSeats {
		if seat == after {
			return activeSeats[(i+1)%len(activeSeats)]
		}
	}
	for _, seat := range activeSeats {
		if seat > after {
			return seat
		}
	}
	return activeSeats[0]
}

// EndGame determines the winner once exactly one active seat remains, or
// once Golden Score has been decided by a final round (spec §4.2).
func EndGame(state *domain.GameState, activeSeats []int) (winnerSeat int, decided bool) {
	if len(activeSeats) == 1 {
		return activeSeats[0], true
	}
	if state.GoldenScore && len(activeSeats) == 2 {
		a, b := activeSeats[0], activeSeats[1]
		if state.ScoresCumulative[a] == state.ScoresCumulative[b] {
			return 0, false // tie: another Golden round is required
		}
		if state.ScoresCumulative[a] < state.ScoresCumulative[b] {
			return a, true
		}
		return b, true
	}
	return 0, false
}
