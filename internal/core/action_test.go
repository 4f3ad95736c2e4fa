package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapzap/internal/bus"
	"zapzap/internal/domain"
	"zapzap/internal/repo"
	"zapzap/internal/repo/memory"
)

func newTestCoreForActions(t *testing.T) (*Core, *memory.PartyRepository, *memory.UserRepository) {
	t.Helper()
	r := mustRNGSystem(t)
	parties := memory.New()
	users := memory.NewUserRepository()
	return New(parties, users, bus.New(), r), parties, users
}

func seatThreeHumans(t *testing.T, c *Core, users *memory.UserRepository) *domain.Party {
	t.Helper()
	ctx := context.Background()
	users.Put(&repo.User{ID: "owner"})
	users.Put(&repo.User{ID: "p2"})
	users.Put(&repo.User{ID: "p3"})

	party, err := c.CreateParty(ctx, "owner", "room", domain.VisibilityPrivate, domain.Settings{PlayerCount: 3, HandSize: 5}, nil)
	require.NoError(t, err)
	_, err = c.JoinParty(ctx, party.ID, "p2")
	require.NoError(t, err)
	_, err = c.JoinParty(ctx, party.ID, "p3")
	require.NoError(t, err)
	return party
}

func TestCreateParty_RejectsInvalidSettings(t *testing.T) {
	c, _, _ := newTestCoreForActions(t)
	_, err := c.CreateParty(context.Background(), "owner", "room", domain.VisibilityPublic, domain.Settings{PlayerCount: 1, HandSize: 5}, nil)
	require.Error(t, err)
	var ce *CoreError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeInvalidInput, ce.Code)
}

func TestCreateParty_RejectsUnknownBotSeat(t *testing.T) {
	c, _, users := newTestCoreForActions(t)
	users.Put(&repo.User{ID: "owner"})
	_, err := c.CreateParty(context.Background(), "owner", "room", domain.VisibilityPublic, domain.Settings{PlayerCount: 3, HandSize: 5}, []string{"not-a-user"})
	require.Error(t, err)
	var ce *CoreError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeNotFound, ce.Code)
}

func TestCreateParty_SeatsOwnerThenReservedBots(t *testing.T) {
	c, parties, users := newTestCoreForActions(t)
	ctx := context.Background()
	users.Put(&repo.User{ID: "owner"})
	users.Put(&repo.User{ID: "bot-1", IsBot: true})

	party, err := c.CreateParty(ctx, "owner", "room", domain.VisibilityPublic, domain.Settings{PlayerCount: 3, HandSize: 5}, []string{"bot-1"})
	require.NoError(t, err)

	seats, err := parties.GetPlayers(ctx, party.ID)
	require.NoError(t, err)
	require.Len(t, seats, 2)
	assert.Equal(t, "owner", seats[0].UserID)
	assert.Equal(t, "bot-1", seats[1].UserID)
	assert.True(t, seats[1].IsBot)
}

func TestJoinParty_IsIdempotentForSeatedCaller(t *testing.T) {
	c, _, users := newTestCoreForActions(t)
	party := seatThreeHumans(t, c, users)

	again, err := c.JoinParty(context.Background(), party.ID, "p2")
	require.NoError(t, err)
	assert.Equal(t, party.ID, again.ID)
}

func TestJoinParty_RejectsFullParty(t *testing.T) {
	c, _, users := newTestCoreForActions(t)
	ctx := context.Background()
	users.Put(&repo.User{ID: "owner"})
	users.Put(&repo.User{ID: "p2"})
	users.Put(&repo.User{ID: "p3"})
	users.Put(&repo.User{ID: "p4"})
	party, err := c.CreateParty(ctx, "owner", "room", domain.VisibilityPublic, domain.Settings{PlayerCount: 3, HandSize: 5}, nil)
	require.NoError(t, err)
	_, err = c.JoinParty(ctx, party.ID, "p2")
	require.NoError(t, err)
	_, err = c.JoinParty(ctx, party.ID, "p3")
	require.NoError(t, err)

	_, err = c.JoinParty(ctx, party.ID, "p4")
	require.Error(t, err)
	var ce *CoreError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeConflict, ce.Code)
}

func TestStartParty_RequiresOwnerAndDealsFirstRound(t *testing.T) {
	c, parties, users := newTestCoreForActions(t)
	party := seatThreeHumans(t, c, users)
	ctx := context.Background()

	_, err := c.StartParty(ctx, party.ID, "p2")
	require.Error(t, err)
	var ce *CoreError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeUnauthorized, ce.Code)

	round, err := c.StartParty(ctx, party.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, 1, round.RoundNumber)

	updated, err := parties.GetParty(ctx, party.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PartyPlaying, updated.Status)

	state, err := parties.GetGameState(ctx, party.ID)
	require.NoError(t, err)
	assert.Len(t, state.Hands[0], 5)
}

// TestDrawThenPlay_HandsOffToNextSeat walks one Draw and the following
// Play, each validated against the round's own current seat/phase
// (spec §4.2/§4.6), confirming an action by the wrong seat or in the
// wrong phase is rejected and a well-formed one advances the cursor.
func TestDrawThenPlay_HandsOffToNextSeat(t *testing.T) {
	c, parties, users := newTestCoreForActions(t)
	party := seatThreeHumans(t, c, users)
	ctx := context.Background()

	_, err := c.StartParty(ctx, party.ID, "owner")
	require.NoError(t, err)

	round, err := parties.GetActiveRound(ctx, party.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseDraw, round.CurrentAction)

	seats, err := parties.GetPlayers(ctx, party.ID)
	require.NoError(t, err)
	firstSeat := round.CurrentSeat([]int{0, 1, 2})
	firstUserID := seats[firstSeat].UserID

	state, err := parties.GetGameState(ctx, party.ID)
	require.NoError(t, err)
	card := state.Hands[firstSeat][0]

	err = c.DrawCard(ctx, party.ID, "not-seated", domain.DrawFromDeck, nil)
	require.Error(t, err)

	err = c.PlayCards(ctx, party.ID, firstUserID, []int{card})
	require.Error(t, err) // still in draw phase, Play not allowed yet
	var ce *CoreError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeRuleViolation, ce.Code)

	require.NoError(t, c.DrawCard(ctx, party.ID, firstUserID, domain.DrawFromDeck, nil))

	round, err = parties.GetActiveRound(ctx, party.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePlay, round.CurrentAction)
	assert.Equal(t, 1, round.CurrentTurn)

	nextSeat := round.CurrentSeat([]int{0, 1, 2})
	assert.NotEqual(t, firstSeat, nextSeat)
	nextUserID := seats[nextSeat].UserID

	// The seat that just drew cannot also play out of turn.
	err = c.PlayCards(ctx, party.ID, firstUserID, []int{card})
	require.Error(t, err)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeRuleViolation, ce.Code)

	state, err = parties.GetGameState(ctx, party.ID)
	require.NoError(t, err)
	nextCard := state.Hands[nextSeat][0]
	require.NoError(t, c.PlayCards(ctx, party.ID, nextUserID, []int{nextCard}))

	round, err = parties.GetActiveRound(ctx, party.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseDraw, round.CurrentAction)
	assert.Equal(t, 1, round.CurrentTurn) // Play never advances the cursor itself
	assert.Equal(t, nextSeat, round.CurrentSeat([]int{0, 1, 2}))
}

func TestCallZapZap_EndsRoundAndAllowsAdvance(t *testing.T) {
	c, parties, users := newTestCoreForActions(t)
	party := seatThreeHumans(t, c, users)
	ctx := context.Background()

	_, err := c.StartParty(ctx, party.ID, "owner")
	require.NoError(t, err)

	round, err := parties.GetActiveRound(ctx, party.ID)
	require.NoError(t, err)
	seats, err := parties.GetPlayers(ctx, party.ID)
	require.NoError(t, err)
	currentSeat := round.CurrentSeat([]int{0, 1, 2})
	actingUserID := seats[currentSeat].UserID

	// Force the acting seat's hand down to a single low card and move the
	// round into that seat's play phase, so it is eligible to call ZapZap now.
	state, err := parties.GetGameState(ctx, party.ID)
	require.NoError(t, err)
	state.Hands[currentSeat] = []int{0}
	require.NoError(t, parties.SaveGameState(ctx, party.ID, state))

	round.CurrentAction = domain.PhasePlay
	require.NoError(t, parties.SaveRound(ctx, round))

	require.NoError(t, c.CallZapZap(ctx, party.ID, actingUserID))

	finished, err := parties.GetActiveRound(ctx, party.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundFinished, finished.Status)

	next, err := c.AdvanceRound(ctx, party.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, next.RoundNumber)
}

func TestAdvanceRound_RejectsUnfinishedRound(t *testing.T) {
	c, _, users := newTestCoreForActions(t)
	party := seatThreeHumans(t, c, users)
	ctx := context.Background()

	_, err := c.StartParty(ctx, party.ID, "owner")
	require.NoError(t, err)

	_, err = c.AdvanceRound(ctx, party.ID)
	require.Error(t, err)
	var ce *CoreError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeWrongState, ce.Code)
}

func TestLeaveParty_DuringPlayingForfeitsSeat(t *testing.T) {
	c, parties, users := newTestCoreForActions(t)
	party := seatThreeHumans(t, c, users)
	ctx := context.Background()

	_, err := c.StartParty(ctx, party.ID, "owner")
	require.NoError(t, err)

	require.NoError(t, c.LeaveParty(ctx, party.ID, "p3"))

	state, err := parties.GetGameState(ctx, party.ID)
	require.NoError(t, err)
	assert.True(t, state.Eliminated[2])

	seats, err := parties.GetPlayers(ctx, party.ID)
	require.NoError(t, err)
	assert.Len(t, seats, 3) // seat stays on the roster, marked eliminated, not removed
}

func TestLeaveParty_DuringWaitingRemovesAndCompacts(t *testing.T) {
	c, _, users := newTestCoreForActions(t)
	party := seatThreeHumans(t, c, users)

	require.NoError(t, c.LeaveParty(context.Background(), party.ID, "p2"))

	_, err := c.StartParty(context.Background(), party.ID, "owner")
	require.Error(t, err) // dropped back below 3 seats
}
