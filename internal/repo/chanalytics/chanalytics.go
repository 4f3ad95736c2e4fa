// Package chanalytics is an optional ClickHouse-backed warehouse for
// completed rounds and games, consumed by whatever reporting surface
// sits outside the Action API itself (spec §4.2's round/game lifecycle
// is in scope; aggregate statistics over it are not, but the repository
// contract for recording that history is). Adapted from the teacher's
// internal/storage/clickhouse.go connection/table-creation style and
// internal/storage/analytics.go's typed-event-plus-query-struct shape,
// generalized from poker hand analytics to ZapZap round analytics.
package chanalytics

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// Config holds ClickHouse connection configuration.
type Config struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	Secure       bool
	MaxOpenConns int
	MaxIdleConns int
	ConnTimeout  time.Duration
}

// RoundRecord is one completed round, as the Action API observes it at
// the moment CallZapZap or an auto-zap finishes scoring (spec §4.2).
type RoundRecord struct {
	RoundID        string
	PartyID        string
	RoundNumber    int
	ZapCallerSeat  *int
	GoldenScore    bool
	PerSeatDelta   map[int]int
	Eliminated     []int
	CreatedAt      time.Time
	FinishedAt     time.Time
}

// GameRecord is one finished party, recorded once EndGame decides a
// winner (spec §4.2).
type GameRecord struct {
	PartyID     string
	WinnerSeat  int
	RoundCount  int
	FinishedAt  time.Time
}

// PlayerRoundStats aggregates a user's round history across parties.
type PlayerRoundStats struct {
	UserID          string
	RoundsPlayed    int
	RoundsWon       int
	GoldenRounds    int
	AvgScoreDelta   float64
	LastPlayedAt    time.Time
}

// GameHistorySink is the narrow write/query contract the core and any
// reporting surface depend on; consumers that don't need a warehouse can
// substitute a no-op implementation.
type GameHistorySink interface {
	RecordRound(ctx context.Context, partyID string, seatUserIDs map[int]string, rec RoundRecord) error
	RecordGame(ctx context.Context, rec GameRecord) error
	GetPlayerStats(ctx context.Context, userID string, since time.Time) (*PlayerRoundStats, error)
	Close() error
	Ping(ctx context.Context) error
}

// ClickHouseSink implements GameHistorySink against ClickHouse.
type ClickHouseSink struct {
	db clickhouse.Conn
}

// NewClickHouseSink opens a connection and verifies it with a ping.
func NewClickHouseSink(ctx context.Context, cfg Config) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		TLS: &tls.Config{InsecureSkipVerify: cfg.Secure},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return &ClickHouseSink{db: conn}, nil
}

var _ GameHistorySink = (*ClickHouseSink)(nil)

// CreateTables creates the round/game history tables if they don't
// already exist.
func (c *ClickHouseSink) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS round_history (
			round_id String,
			party_id String,
			round_number Int32,
			user_id String,
			seat Int32,
			was_zap_caller Bool,
			golden_score Bool,
			score_delta Int32,
			eliminated Bool,
			created_at DateTime64(3),
			finished_at DateTime64(3)
		) ENGINE = ReplacingMergeTree(finished_at)
		ORDER BY (party_id, round_id, user_id)`,

		`CREATE TABLE IF NOT EXISTS game_history (
			party_id String,
			winner_seat Int32,
			round_count Int32,
			finished_at DateTime64(3)
		) ENGINE = ReplacingMergeTree(finished_at)
		ORDER BY (party_id)`,
	}
	for _, q := range queries {
		if err := c.db.Exec(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// RecordRound batch-inserts one row per seat that took part in the
// round, so per-player aggregates can be computed with a GROUP BY.
func (c *ClickHouseSink) RecordRound(ctx context.Context, partyID string, seatUserIDs map[int]string, rec RoundRecord) error {
	batch, err := c.db.PrepareBatch(ctx, `
		INSERT INTO round_history (
			round_id, party_id, round_number, user_id, seat, was_zap_caller,
			golden_score, score_delta, eliminated, created_at, finished_at
		)
	`)
	if err != nil {
		return err
	}

	eliminated := make(map[int]bool, len(rec.Eliminated))
	for _, seat := range rec.Eliminated {
		eliminated[seat] = true
	}

	for seat, userID := range seatUserIDs {
		wasZapCaller := rec.ZapCallerSeat != nil && *rec.ZapCallerSeat == seat
		if err := batch.Append(
			rec.RoundID, partyID, rec.RoundNumber, userID, seat, wasZapCaller,
			rec.GoldenScore, rec.PerSeatDelta[seat], eliminated[seat],
			rec.CreatedAt, rec.FinishedAt,
		); err != nil {
			return err
		}
	}
	return batch.Send()
}

// RecordGame records one finished party's outcome.
func (c *ClickHouseSink) RecordGame(ctx context.Context, rec GameRecord) error {
	return c.db.Exec(ctx, `
		INSERT INTO game_history (party_id, winner_seat, round_count, finished_at)
		VALUES (?, ?, ?, ?)
	`, rec.PartyID, rec.WinnerSeat, rec.RoundCount, rec.FinishedAt)
}

// GetPlayerStats aggregates a user's round history since the given time.
func (c *ClickHouseSink) GetPlayerStats(ctx context.Context, userID string, since time.Time) (*PlayerRoundStats, error) {
	stats := &PlayerRoundStats{UserID: userID}
	row := c.db.QueryRow(ctx, `
		SELECT
			count(),
			sum(was_zap_caller),
			sum(golden_score),
			avg(score_delta),
			max(finished_at)
		FROM round_history
		WHERE user_id = ? AND finished_at >= ?
	`, userID, since)

	err := row.Scan(
		&stats.RoundsPlayed,
		&stats.RoundsWon,
		&stats.GoldenRounds,
		&stats.AvgScoreDelta,
		&stats.LastPlayedAt,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *ClickHouseSink) Close() error {
	return c.db.Close()
}

func (c *ClickHouseSink) Ping(ctx context.Context) error {
	return c.db.Ping(ctx)
}
