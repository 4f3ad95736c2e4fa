package core

import (
	"time"

	"zapzap/internal/domain"
	"zapzap/pkg/rng"
)

// inviteCodeAlphabet excludes visually ambiguous characters (spec §3).
const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const inviteCodeLength = 8

// GenerateInviteCode produces an 8-character invite code from the
// restricted alphabet using the shared party RNG.
func GenerateInviteCode(r *rng.System) string {
	code := make([]byte, inviteCodeLength)
	for i := range code {
		code[i] = inviteCodeAlphabet[r.RandomInt(len(inviteCodeAlphabet))]
	}
	return string(code)
}

// ValidateSettings enforces the seat-count and hand-size bounds of spec §3.
func ValidateSettings(s domain.Settings) error {
	if s.PlayerCount < 3 || s.PlayerCount > 8 {
		return newErr(CodeInvalidInput, "playerCount must be in [3, 8]")
	}
	if s.HandSize < 5 || s.HandSize > 7 {
		return newErr(CodeInvalidInput, "handSize must be in [5, 7]")
	}
	return nil
}

// NewParty constructs a Party in the waiting state.
func NewParty(id, ownerID, name string, visibility domain.Visibility, settings domain.Settings, inviteCode string) *domain.Party {
	now := time.Now()
	return &domain.Party{
		ID:         id,
		Name:       name,
		OwnerID:    ownerID,
		InviteCode: inviteCode,
		Visibility: visibility,
		Status:     domain.PartyWaiting,
		Settings:   settings,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CanJoin validates the Join precondition of spec §4.3/§6: waiting, room
// available, and the user is not already seated. An already-seated caller
// is checked first so that Join's idempotency (spec §4.6: "the operation
// succeeds and returns the existing seat") holds even when the party has
// since filled to capacity around them.
func CanJoin(party *domain.Party, seats []*domain.Seat, userID string) error {
	for _, s := range seats {
		if s.UserID == userID {
			return ErrAlreadyInParty
		}
	}
	if party.Status != domain.PartyWaiting {
		return ErrPartyStarted
	}
	if len(seats) >= party.Settings.PlayerCount {
		return ErrPartyFull
	}
	return nil
}

// NextSeatIndex returns the contiguous index a newly joining seat takes.
func NextSeatIndex(seats []*domain.Seat) int {
	return len(seats)
}

// CompactIndices reassigns player indices to be contiguous 0..n-1 in
// join order, preserving relative order, after a seat is removed during
// the waiting phase (spec §3 Seat invariants).
func CompactIndices(seats []*domain.Seat) {
	for i, s := range seats {
		s.PlayerIndex = i
	}
}

// CanStart validates the Start precondition of spec §4.3: at least 3
// seats, caller is the owner, and seat count does not exceed the
// configured capacity.
func CanStart(party *domain.Party, seats []*domain.Seat, callerID string) error {
	if party.OwnerID != callerID {
		return ErrNotOwner
	}
	if party.Status != domain.PartyWaiting {
		return ErrWrongState
	}
	if len(seats) < 3 {
		return ErrTooFewPlayers
	}
	if len(seats) > party.Settings.PlayerCount {
		return ErrTooFewPlayers
	}
	return nil
}

// LeaveDuringWaiting removes seat userID and compacts indices, per spec
// §4.3's Leave-during-waiting rule.
func LeaveDuringWaiting(seats []*domain.Seat, userID string) []*domain.Seat {
	out := seats[:0]
	for _, s := range seats {
		if s.UserID != userID {
			out = append(out, s)
		}
	}
	CompactIndices(out)
	return out
}
