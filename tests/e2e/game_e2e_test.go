// Package e2e exercises the Action API end to end against the in-memory
// repositories, the way tests/e2e/game_e2e_test.go drove a poker table
// through gin/httptest in the teacher repo: here there is no HTTP layer
// in scope (spec §1 excludes transport), so the "end" is the Core itself.
package e2e

import (
	"context"
	"testing"

	"zapzap/internal/bus"
	"zapzap/internal/core"
	"zapzap/internal/domain"
	"zapzap/internal/repo"
	"zapzap/internal/repo/memory"
	"zapzap/pkg/rng"
)

func newTestCore(t *testing.T) (*core.Core, *memory.PartyRepository, *memory.UserRepository) {
	t.Helper()
	rngSys, err := rng.NewSystem(nil)
	if err != nil {
		t.Fatalf("failed to create rng system: %v", err)
	}
	parties := memory.New()
	users := memory.NewUserRepository()
	b := bus.New()
	c := core.New(parties, users, b, rngSys)
	return c, parties, users
}

func seatHumans(t *testing.T, c *core.Core, users *memory.UserRepository, n int) (*domain.Party, []string) {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, n)
	for i := range ids {
		id := "player" + string(rune('A'+i))
		ids[i] = id
		users.Put(&repo.User{ID: id, Username: id})
	}

	party, err := c.CreateParty(ctx, ids[0], "table", domain.VisibilityPublic, domain.Settings{PlayerCount: n, HandSize: 5}, nil)
	if err != nil {
		t.Fatalf("CreateParty: %v", err)
	}
	for _, id := range ids[1:] {
		if _, err := c.JoinParty(ctx, party.ID, id); err != nil {
			t.Fatalf("JoinParty(%s): %v", id, err)
		}
	}
	return party, ids
}

// TestE2EPartyLifecycle walks a 3-seat party from creation through
// Start, confirming the first round is dealt legally (spec §4.2/§4.3).
func TestE2EPartyLifecycle(t *testing.T) {
	c, parties, users := newTestCore(t)
	ctx := context.Background()

	party, ids := seatHumans(t, c, users, 3)

	round, err := c.StartParty(ctx, party.ID, ids[0])
	if err != nil {
		t.Fatalf("StartParty: %v", err)
	}
	if round.RoundNumber != 1 || round.Status != domain.RoundActive {
		t.Fatalf("unexpected first round: %+v", round)
	}

	state, err := parties.GetGameState(ctx, party.ID)
	if err != nil {
		t.Fatalf("GetGameState: %v", err)
	}
	seen := map[int]bool{}
	for _, hand := range state.Hands {
		if len(hand) != 5 {
			t.Fatalf("expected hand size 5, got %d", len(hand))
		}
		for _, card := range hand {
			if seen[card] {
				t.Fatalf("card %d dealt twice", card)
			}
			seen[card] = true
		}
	}
	for _, card := range state.Deck {
		if seen[card] {
			t.Fatalf("card %d both dealt and in deck", card)
		}
		seen[card] = true
	}
	if len(seen) != 54 {
		t.Fatalf("expected all 54 cards accounted for, got %d", len(seen))
	}
}

// TestE2EJoinIdempotency confirms Join is idempotent for an already-seated
// caller (spec §4.6).
func TestE2EJoinIdempotency(t *testing.T) {
	c, _, users := newTestCore(t)
	party, ids := seatHumans(t, c, users, 3)

	again, err := c.JoinParty(context.Background(), party.ID, ids[0])
	if err != nil {
		t.Fatalf("expected idempotent Join to succeed, got %v", err)
	}
	if again.ID != party.ID {
		t.Fatalf("expected same party returned")
	}
}

// TestE2ERoundRequiresAdvanceRound confirms that once a round scores out
// without ending the game, Play/Draw/CallZapZap are rejected until an
// explicit AdvanceRound call deals the next hand (spec §6).
func TestE2ERoundRequiresAdvanceRound(t *testing.T) {
	c, parties, users := newTestCore(t)
	ctx := context.Background()
	party, ids := seatHumans(t, c, users, 3)

	if _, err := c.StartParty(ctx, party.ID, ids[0]); err != nil {
		t.Fatalf("StartParty: %v", err)
	}

	round, err := parties.GetActiveRound(ctx, party.ID)
	if err != nil {
		t.Fatalf("GetActiveRound: %v", err)
	}
	state, err := parties.GetGameState(ctx, party.ID)
	if err != nil {
		t.Fatalf("GetGameState: %v", err)
	}

	// Force the opening seat into zap-zap eligibility, and into its play
	// phase (the only phase that accepts CallZapZap), so the round scores
	// out deterministically without needing to play through a full hand.
	seat := round.CurrentSeat([]int{0, 1, 2})
	state.Hands[seat] = []int{0, 14} // A-spades + 2-hearts = eligibility value 3
	if err := parties.SaveGameState(ctx, party.ID, state); err != nil {
		t.Fatalf("SaveGameState: %v", err)
	}
	round.CurrentAction = domain.PhasePlay
	if err := parties.SaveRound(ctx, round); err != nil {
		t.Fatalf("SaveRound: %v", err)
	}

	callerID := ids[seat]
	if err := c.CallZapZap(ctx, party.ID, callerID); err != nil {
		t.Fatalf("CallZapZap: %v", err)
	}

	finished, err := parties.GetActiveRound(ctx, party.ID)
	if err != nil {
		t.Fatalf("GetActiveRound after zap: %v", err)
	}
	if finished.Status != domain.RoundFinished {
		t.Fatalf("expected round to be finished after CallZapZap")
	}

	if err := c.DrawCard(ctx, party.ID, callerID, domain.DrawFromDeck, nil); err == nil {
		t.Fatalf("expected DrawCard to fail while round is finished and not yet advanced")
	}

	next, err := c.AdvanceRound(ctx, party.ID)
	if err != nil {
		t.Fatalf("AdvanceRound: %v", err)
	}
	if next.RoundNumber != 2 || next.Status != domain.RoundActive {
		t.Fatalf("unexpected round after AdvanceRound: %+v", next)
	}

	if _, err := c.AdvanceRound(ctx, party.ID); err == nil {
		t.Fatalf("expected AdvanceRound to reject an already-active round")
	}
}

// TestE2EEventOrdering confirms events for one party are observed in
// publication order (spec §4.5).
func TestE2EEventOrdering(t *testing.T) {
	rngSys, err := rng.NewSystem(nil)
	if err != nil {
		t.Fatalf("rng: %v", err)
	}
	parties := memory.New()
	users := memory.NewUserRepository()
	b := bus.New()
	c := core.New(parties, users, b, rngSys)

	sub := b.Subscribe("", "")
	defer sub.Unsubscribe()

	party, ids := seatHumans(t, c, users, 3)
	if _, err := c.StartParty(context.Background(), party.ID, ids[0]); err != nil {
		t.Fatalf("StartParty: %v", err)
	}

	var types []domain.EventType
	for len(types) < 5 {
		select {
		case evt := <-sub.Chan:
			types = append(types, evt.Type)
		default:
			goto done
		}
	}
done:

	if len(types) == 0 || types[0] != domain.EventPartyCreated {
		t.Fatalf("expected partyCreated first, got %v", types)
	}
}
