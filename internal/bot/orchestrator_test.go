package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zapzap/internal/bus"
	"zapzap/internal/core"
	"zapzap/internal/domain"
	"zapzap/internal/repo"
	"zapzap/internal/repo/memory"
	"zapzap/pkg/rng"
)

func newTestCore(t *testing.T) (*core.Core, *memory.PartyRepository, *memory.UserRepository) {
	t.Helper()
	r, err := rng.NewSystem(nil)
	require.NoError(t, err)
	parties := memory.New()
	users := memory.NewUserRepository()
	c := core.New(parties, users, bus.New(), r)
	return c, parties, users
}

// TestTickPartyCommitsBotMove seats a bot as party owner (so it acts
// first) and confirms a single orchestrator tick commits its move,
// advancing the round's phase.
func TestTickPartyCommitsBotMove(t *testing.T) {
	ctx := context.Background()
	c, parties, users := newTestCore(t)

	users.Put(&repo.User{ID: "bot-1", IsBot: true, BotDifficulty: domain.BotDifficultyRandom})
	users.Put(&repo.User{ID: "human-2"})
	users.Put(&repo.User{ID: "human-3"})

	party, err := c.CreateParty(ctx, "bot-1", "room", domain.VisibilityPrivate, domain.Settings{PlayerCount: 3, HandSize: 5}, nil)
	require.NoError(t, err)

	_, err = c.JoinParty(ctx, party.ID, "human-2")
	require.NoError(t, err)
	_, err = c.JoinParty(ctx, party.ID, "human-3")
	require.NoError(t, err)

	seats, err := parties.GetPlayers(ctx, party.ID)
	require.NoError(t, err)
	for _, s := range seats {
		if s.UserID == "bot-1" {
			s.IsBot = true
		}
	}
	require.NoError(t, parties.ReplacePlayers(ctx, party.ID, seats))

	_, err = c.StartParty(ctx, party.ID, "bot-1")
	require.NoError(t, err)

	round, err := parties.GetActiveRound(ctx, party.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseDraw, round.CurrentAction)
	require.Equal(t, 0, round.CurrentSeat([]int{0, 1, 2}))

	o := New(c, parties, users, Strategies(mustRNG(t)), time.Hour, 0, time.Second)
	o.tickParty(ctx, party.ID)

	after, err := parties.GetActiveRound(ctx, party.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PhasePlay, after.CurrentAction)
}

func mustRNG(t *testing.T) *rng.System {
	t.Helper()
	r, err := rng.NewSystem(nil)
	require.NoError(t, err)
	return r
}
