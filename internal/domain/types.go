// Package domain declares the tagged records and exhaustive enums that
// make up a party's state (spec §3), replacing the dynamic "game state"
// bag the teacher's source derives from with typed, declared schemas
// (SPEC_FULL.md Design Notes shape-shift #1).
package domain

import "time"

// PartyStatus is the lifecycle stage of a Party.
type PartyStatus int

const (
	PartyWaiting PartyStatus = iota
	PartyPlaying
	PartyFinished
)

func (s PartyStatus) String() string {
	switch s {
	case PartyWaiting:
		return "waiting"
	case PartyPlaying:
		return "playing"
	case PartyFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Visibility controls whether a party is discoverable via public listing.
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityPrivate
)

func (v Visibility) String() string {
	if v == VisibilityPrivate {
		return "private"
	}
	return "public"
}

// BotDifficulty selects the strategy a bot seat uses (spec §4.7). The
// strategies themselves are out of scope; only the selector is domain state.
type BotDifficulty int

const (
	BotDifficultyRandom BotDifficulty = iota
	BotDifficultyHighValue
	BotDifficultyMinimiser
)

func (d BotDifficulty) String() string {
	switch d {
	case BotDifficultyRandom:
		return "random"
	case BotDifficultyHighValue:
		return "high_value"
	case BotDifficultyMinimiser:
		return "minimiser"
	default:
		return "unknown"
	}
}

// Settings holds a party's configured seat count and hand size (spec §3).
type Settings struct {
	PlayerCount int // 3..8
	HandSize    int // 5..7
}

// Party is one room of 3-8 seats playing ZapZap (spec §3).
type Party struct {
	ID         string
	Name       string
	OwnerID    string
	InviteCode string
	Visibility Visibility
	Status     PartyStatus
	Settings   Settings
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Seat is one occupied position in a party (spec §3's PartyPlayer).
type Seat struct {
	PartyID     string
	UserID      string
	PlayerIndex int
	JoinedAt    time.Time
	IsBot       bool
}

// RoundStatus tracks whether a round is still accepting actions.
type RoundStatus int

const (
	RoundActive RoundStatus = iota
	RoundFinished
)

func (s RoundStatus) String() string {
	if s == RoundFinished {
		return "finished"
	}
	return "active"
}

// Phase is the per-turn phase a round is in (spec §4.2).
type Phase int

const (
	PhaseDraw Phase = iota
	PhasePlay
)

func (p Phase) String() string {
	if p == PhaseDraw {
		return "draw"
	}
	return "play"
}

// DrawSource names where a Draw action pulls its card from.
type DrawSource int

const (
	DrawFromDeck DrawSource = iota
	DrawFromDiscard
)

func (s DrawSource) String() string {
	if s == DrawFromDiscard {
		return "discard"
	}
	return "deck"
}

// ActionType tags the kind of the last action recorded on a round.
type ActionType int

const (
	ActionPlay ActionType = iota
	ActionDraw
	ActionCallZapZap
)

func (a ActionType) String() string {
	switch a {
	case ActionPlay:
		return "play"
	case ActionDraw:
		return "draw"
	case ActionCallZapZap:
		return "call_zap_zap"
	default:
		return "unknown"
	}
}

// Round is one deal-to-score cycle within a party (spec §3).
type Round struct {
	ID             string
	PartyID        string
	RoundNumber    int
	Status         RoundStatus
	CurrentTurn    int
	CurrentAction  Phase
	StartingPlayer int
	CreatedAt      time.Time
	FinishedAt     *time.Time
}

// CurrentSeat derives the acting seat from the round cursor: the seat
// `currentTurn` positions after `startingPlayer` within activeSeats,
// skipping eliminated seats (spec §3: "currentSeat = (startingPlayer +
// currentTurn) mod activeSeatCount, skipping eliminated seats"). If
// startingPlayer is no longer active (eliminated since the round began),
// rotation continues from the first active seat at or after it.
func (r Round) CurrentSeat(activeSeats []int) int {
	if len(activeSeats) == 0 {
		return -1
	}
	startIdx := 0
	for i, s := range activeSeats {
		if s == r.StartingPlayer {
			startIdx = i
			break
		}
		if s > r.StartingPlayer {
			startIdx = i
			break
		}
	}
	return activeSeats[(startIdx+r.CurrentTurn)%len(activeSeats)]
}

// LastAction records the most recent mutation applied to a round (spec §3).
type LastAction struct {
	Type           ActionType
	PlayerIndex    int
	CardIDs        []int
	Source         DrawSource
	CardID         *int
	DeckReshuffled bool
	Timestamp      time.Time
}

// GameState is the mutable per-round state of one party (spec §3).
type GameState struct {
	Deck             []int
	DiscardTop       []int
	PlayedHistory    []int // cards no longer in discardTop but not yet reshuffled
	Hands            map[int][]int
	ScoresCumulative map[int]int
	Eliminated       map[int]bool
	LastAction       *LastAction
	ZapZapCaller     *int
	GoldenScore      bool
}

// NewGameState returns an empty GameState ready for a fresh deal.
func NewGameState() *GameState {
	return &GameState{
		Hands:            make(map[int][]int),
		ScoresCumulative: make(map[int]int),
		Eliminated:       make(map[int]bool),
	}
}

// ActiveSeats returns the sorted seat indices that are not eliminated.
func (g *GameState) ActiveSeats(seatCount int) []int {
	active := make([]int, 0, seatCount)
	for i := 0; i < seatCount; i++ {
		if !g.Eliminated[i] {
			active = append(active, i)
		}
	}
	return active
}
