// Package bot is the Bot Orchestrator (spec §4.7): a single control
// goroutine that ticks over playing parties, and the strategy contract
// a bot seat's decisions are made against. Grounded in the ticker-driven
// gameLoop of internal/game/table.go, generalized from one table's
// actor loop to a fleet scan over every playing party.
package bot

import (
	"zapzap/internal/domain"
	"zapzap/pkg/cards"
)

// Action names the kind of move a Decision commits.
type Action int

const (
	ActionDraw Action = iota
	ActionPlay
	ActionCallZapZap
)

// GameView is the read-only slice of a round's state a Strategy needs to
// decide its next move (spec §4.7): its own hand and cumulative, every
// opponent's hand size and cumulative, the discard top, the deck size,
// the round number, and the party's settings. It never exposes other
// seats' hands.
type GameView struct {
	Seat                int
	Hand                []int
	OwnCumulative       int
	OpponentHandSizes   map[int]int
	OpponentCumulatives map[int]int
	DiscardTop          []int
	DeckSize            int
	Round               int
	Phase               domain.Phase
	Settings            domain.Settings
}

// Decision is what a Strategy commits through the Action API.
type Decision struct {
	Action        Action
	CardIDs       []int // for ActionPlay
	Source        domain.DrawSource
	DiscardCardID *int // set when Source == DrawFromDiscard
}

// Strategy decides a bot seat's move for one tick.
type Strategy interface {
	Decide(view GameView) Decision
}

// Strategies maps each domain.BotDifficulty to its Strategy (spec §4.7).
func Strategies(r RandomSource) map[domain.BotDifficulty]Strategy {
	return map[domain.BotDifficulty]Strategy{
		domain.BotDifficultyRandom:     RandomStrategy{RNG: r},
		domain.BotDifficultyHighValue:  HighValueStrategy{},
		domain.BotDifficultyMinimiser:  MinimiserStrategy{},
	}
}

// RandomSource is the slice of pkg/rng.System a strategy needs to break
// ties or pick among several legal plays.
type RandomSource interface {
	RandomInt(n int) int
}

// legalSingles returns one-card Decisions for every card in hand, the
// baseline legal play available in every phase (spec §4.1: a single
// card is always a legal combination).
func legalSingles(hand []int) []Decision {
	out := make([]Decision, len(hand))
	for i, c := range hand {
		out[i] = Decision{Action: ActionPlay, CardIDs: []int{c}}
	}
	return out
}

// RandomStrategy draws from the deck or takes the last card of the discard
// top with even odds, calls ZapZap one time in three when eligible, and
// otherwise plays a uniformly random single card; it never plays a pair or
// a sequence.
type RandomStrategy struct {
	RNG RandomSource
}

func (s RandomStrategy) Decide(view GameView) Decision {
	if view.Phase == domain.PhaseDraw {
		if len(view.DiscardTop) > 0 && s.RNG.RandomInt(2) == 0 {
			top := view.DiscardTop[len(view.DiscardTop)-1]
			return Decision{Action: ActionDraw, Source: domain.DrawFromDiscard, DiscardCardID: &top}
		}
		return Decision{Action: ActionDraw, Source: domain.DrawFromDeck}
	}

	hand := cards.ToIDs(view.Hand)
	if cards.IsZapZapEligible(hand) && s.RNG.RandomInt(3) == 0 {
		return Decision{Action: ActionCallZapZap}
	}
	options := legalSingles(view.Hand)
	return options[s.RNG.RandomInt(len(options))]
}

// HighValueStrategy calls ZapZap as soon as it is eligible and otherwise
// discards its single highest-eligibility-value card, the largest cut to
// its hand value one card can make. Jokers count 0 here, so they are kept.
type HighValueStrategy struct{}

func (HighValueStrategy) Decide(view GameView) Decision {
	if view.Phase == domain.PhaseDraw {
		return Decision{Action: ActionDraw, Source: domain.DrawFromDeck}
	}

	hand := cards.ToIDs(view.Hand)
	if cards.IsZapZapEligible(hand) {
		return Decision{Action: ActionCallZapZap}
	}

	best := view.Hand[0]
	bestValue := cards.Value(cards.ID(best), cards.ModeEligibility)
	for _, c := range view.Hand[1:] {
		v := cards.Value(cards.ID(c), cards.ModeEligibility)
		if v > bestValue {
			best, bestValue = c, v
		}
	}
	return Decision{Action: ActionPlay, CardIDs: []int{best}}
}

// MinimiserStrategy calls ZapZap the instant it is eligible and
// otherwise discards its lowest-penalty-value card.
type MinimiserStrategy struct{}

func (MinimiserStrategy) Decide(view GameView) Decision {
	if view.Phase == domain.PhaseDraw {
		return Decision{Action: ActionDraw, Source: domain.DrawFromDeck}
	}

	hand := cards.ToIDs(view.Hand)
	if cards.IsZapZapEligible(hand) {
		return Decision{Action: ActionCallZapZap}
	}

	worst := view.Hand[0]
	worstValue := cards.Value(cards.ID(worst), cards.ModePenalty)
	for _, c := range view.Hand[1:] {
		v := cards.Value(cards.ID(c), cards.ModePenalty)
		if v < worstValue {
			worst, worstValue = c, v
		}
	}
	return Decision{Action: ActionPlay, CardIDs: []int{worst}}
}
