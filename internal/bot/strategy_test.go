package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"zapzap/internal/domain"
)

type fixedRNG struct{ n int }

func (f fixedRNG) RandomInt(n int) int {
	if f.n >= n {
		return n - 1
	}
	return f.n
}

func TestMinimiserCallsZapZapWhenEligible(t *testing.T) {
	s := MinimiserStrategy{}
	// A(0)+2(1) of spades = eligibility value 1+2=3, <=5
	view := GameView{Seat: 0, Hand: []int{0, 1}, Phase: domain.PhasePlay}
	d := s.Decide(view)
	assert.Equal(t, ActionCallZapZap, d.Action)
}

func TestMinimiserDiscardsLowestPenaltyCard(t *testing.T) {
	s := MinimiserStrategy{}
	// King of spades (12, penalty 13) and Ace of spades (0, penalty 1) and
	// 2 of spades (1, penalty 2): hand value 1+2+13=16, not eligible.
	view := GameView{Seat: 0, Hand: []int{12, 0, 1}, Phase: domain.PhasePlay}
	d := s.Decide(view)
	assert.Equal(t, ActionPlay, d.Action)
	assert.Equal(t, []int{0}, d.CardIDs)
}

func TestHighValueDiscardsHighestEligibilityCard(t *testing.T) {
	s := HighValueStrategy{}
	view := GameView{Seat: 0, Hand: []int{12, 0, 1}, Phase: domain.PhasePlay}
	d := s.Decide(view)
	assert.Equal(t, ActionPlay, d.Action)
	assert.Equal(t, []int{12}, d.CardIDs)
}

func TestRandomStrategyDrawsFromDeckOrDiscard(t *testing.T) {
	s := RandomStrategy{RNG: fixedRNG{n: 1}}
	d := s.Decide(GameView{Phase: domain.PhaseDraw, DiscardTop: []int{5}})
	assert.Equal(t, ActionDraw, d.Action)
	assert.Equal(t, domain.DrawFromDeck, d.Source)
}

func TestStrategiesMapHasAllDifficulties(t *testing.T) {
	m := Strategies(fixedRNG{n: 0})
	assert.Len(t, m, 3)
	assert.Contains(t, m, domain.BotDifficultyRandom)
	assert.Contains(t, m, domain.BotDifficultyHighValue)
	assert.Contains(t, m, domain.BotDifficultyMinimiser)
}
