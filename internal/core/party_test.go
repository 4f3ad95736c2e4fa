package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapzap/internal/domain"
)

func TestValidateSettings_Bounds(t *testing.T) {
	assert.NoError(t, ValidateSettings(domain.Settings{PlayerCount: 3, HandSize: 5}))
	assert.NoError(t, ValidateSettings(domain.Settings{PlayerCount: 8, HandSize: 7}))

	assert.Error(t, ValidateSettings(domain.Settings{PlayerCount: 2, HandSize: 5}))
	assert.Error(t, ValidateSettings(domain.Settings{PlayerCount: 9, HandSize: 5}))
	assert.Error(t, ValidateSettings(domain.Settings{PlayerCount: 4, HandSize: 4}))
	assert.Error(t, ValidateSettings(domain.Settings{PlayerCount: 4, HandSize: 8}))
}

func TestCanJoin_AlreadySeatedIsIdempotentCheckedFirst(t *testing.T) {
	party := &domain.Party{Status: domain.PartyPlaying, Settings: domain.Settings{PlayerCount: 3}}
	seats := []*domain.Seat{{UserID: "u1", PlayerIndex: 0}}

	err := CanJoin(party, seats, "u1")
	assert.Equal(t, ErrAlreadyInParty, err)
}

func TestCanJoin_RejectsStartedParty(t *testing.T) {
	party := &domain.Party{Status: domain.PartyPlaying, Settings: domain.Settings{PlayerCount: 3}}
	err := CanJoin(party, nil, "u2")
	assert.Equal(t, ErrPartyStarted, err)
}

func TestCanJoin_RejectsFullParty(t *testing.T) {
	party := &domain.Party{Status: domain.PartyWaiting, Settings: domain.Settings{PlayerCount: 2}}
	seats := []*domain.Seat{{UserID: "u1", PlayerIndex: 0}, {UserID: "u2", PlayerIndex: 1}}

	err := CanJoin(party, seats, "u3")
	assert.Equal(t, ErrPartyFull, err)
}

func TestCanJoin_AllowsRoomInWaitingParty(t *testing.T) {
	party := &domain.Party{Status: domain.PartyWaiting, Settings: domain.Settings{PlayerCount: 3}}
	seats := []*domain.Seat{{UserID: "u1", PlayerIndex: 0}}

	assert.NoError(t, CanJoin(party, seats, "u2"))
}

func TestNextSeatIndex(t *testing.T) {
	assert.Equal(t, 0, NextSeatIndex(nil))
	seats := []*domain.Seat{{PlayerIndex: 0}, {PlayerIndex: 1}}
	assert.Equal(t, 2, NextSeatIndex(seats))
}

func TestCompactIndices(t *testing.T) {
	seats := []*domain.Seat{{UserID: "a", PlayerIndex: 0}, {UserID: "c", PlayerIndex: 3}}
	CompactIndices(seats)
	assert.Equal(t, 0, seats[0].PlayerIndex)
	assert.Equal(t, 1, seats[1].PlayerIndex)
}

func TestCanStart_RequiresOwner(t *testing.T) {
	party := &domain.Party{OwnerID: "owner", Status: domain.PartyWaiting, Settings: domain.Settings{PlayerCount: 4}}
	seats := []*domain.Seat{{PlayerIndex: 0}, {PlayerIndex: 1}, {PlayerIndex: 2}}

	err := CanStart(party, seats, "not-owner")
	assert.Equal(t, ErrNotOwner, err)
}

func TestCanStart_RequiresWaitingState(t *testing.T) {
	party := &domain.Party{OwnerID: "owner", Status: domain.PartyPlaying, Settings: domain.Settings{PlayerCount: 4}}
	seats := []*domain.Seat{{PlayerIndex: 0}, {PlayerIndex: 1}, {PlayerIndex: 2}}

	err := CanStart(party, seats, "owner")
	assert.Equal(t, ErrWrongState, err)
}

func TestCanStart_RequiresAtLeastThreeSeats(t *testing.T) {
	party := &domain.Party{OwnerID: "owner", Status: domain.PartyWaiting, Settings: domain.Settings{PlayerCount: 4}}
	seats := []*domain.Seat{{PlayerIndex: 0}, {PlayerIndex: 1}}

	err := CanStart(party, seats, "owner")
	assert.Equal(t, ErrTooFewPlayers, err)
}

func TestCanStart_RejectsSeatsBeyondCapacity(t *testing.T) {
	party := &domain.Party{OwnerID: "owner", Status: domain.PartyWaiting, Settings: domain.Settings{PlayerCount: 3}}
	seats := []*domain.Seat{{PlayerIndex: 0}, {PlayerIndex: 1}, {PlayerIndex: 2}, {PlayerIndex: 3}}

	err := CanStart(party, seats, "owner")
	assert.Equal(t, ErrTooFewPlayers, err)
}

func TestCanStart_AllowsValidParty(t *testing.T) {
	party := &domain.Party{OwnerID: "owner", Status: domain.PartyWaiting, Settings: domain.Settings{PlayerCount: 4}}
	seats := []*domain.Seat{{PlayerIndex: 0}, {PlayerIndex: 1}, {PlayerIndex: 2}}

	assert.NoError(t, CanStart(party, seats, "owner"))
}

func TestLeaveDuringWaiting_RemovesAndCompacts(t *testing.T) {
	seats := []*domain.Seat{
		{UserID: "a", PlayerIndex: 0},
		{UserID: "b", PlayerIndex: 1},
		{UserID: "c", PlayerIndex: 2},
	}

	remaining := LeaveDuringWaiting(seats, "b")

	require.Len(t, remaining, 2)
	assert.Equal(t, "a", remaining[0].UserID)
	assert.Equal(t, 0, remaining[0].PlayerIndex)
	assert.Equal(t, "c", remaining[1].UserID)
	assert.Equal(t, 1, remaining[1].PlayerIndex)
}

func TestGenerateInviteCode_LengthAndAlphabet(t *testing.T) {
	r := mustRNGSystem(t)
	code := GenerateInviteCode(r)

	require.Len(t, code, inviteCodeLength)
	for _, c := range code {
		assert.Contains(t, inviteCodeAlphabet, string(c))
	}
}
