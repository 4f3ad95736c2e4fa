package chanalytics

import (
	"context"

	"zapzap/internal/core"
)

// CoreAdapter implements core.HistorySink on top of a GameHistorySink,
// translating the Action API's narrow record types into this package's
// wire types.
type CoreAdapter struct {
	Sink GameHistorySink
}

var _ core.HistorySink = (*CoreAdapter)(nil)

func (a *CoreAdapter) RecordRound(ctx context.Context, rec core.RoundHistory) error {
	return a.Sink.RecordRound(ctx, rec.PartyID, rec.SeatUserIDs, RoundRecord{
		RoundID:       rec.RoundID,
		PartyID:       rec.PartyID,
		RoundNumber:   rec.RoundNumber,
		ZapCallerSeat: rec.ZapCallerSeat,
		GoldenScore:   rec.GoldenScore,
		PerSeatDelta:  rec.PerSeatDelta,
		Eliminated:    rec.EliminatedSeats,
		CreatedAt:     rec.CreatedAt,
		FinishedAt:    rec.FinishedAt,
	})
}

func (a *CoreAdapter) RecordGame(ctx context.Context, rec core.GameHistory) error {
	return a.Sink.RecordGame(ctx, GameRecord{
		PartyID:    rec.PartyID,
		WinnerSeat: rec.WinnerSeat,
		RoundCount: rec.RoundCount,
		FinishedAt: rec.FinishedAt,
	})
}
