package postgres

import (
	"context"
	"database/sql"

	"zapzap/internal/domain"
	"zapzap/internal/repo"
)

// UserRepository implements repo.UserRepository against PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository wraps an already-open connection pool.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ repo.UserRepository = (*UserRepository)(nil)

// CreateSchema creates the users table if it doesn't already exist.
func (r *UserRepository) CreateSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(64) NOT NULL,
			is_bot BOOLEAN NOT NULL DEFAULT FALSE,
			bot_difficulty SMALLINT NOT NULL DEFAULT 0
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username);
	`)
	return err
}

func (r *UserRepository) scanUser(row interface {
	Scan(dest ...any) error
}) (*repo.User, error) {
	u := &repo.User{}
	var difficulty int
	err := row.Scan(&u.ID, &u.Username, &u.IsBot, &difficulty)
	if err == sql.ErrNoRows {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.BotDifficulty = domain.BotDifficulty(difficulty)
	return u, nil
}

const userColumns = `id, username, is_bot, bot_difficulty`

func (r *UserRepository) GetByID(ctx context.Context, userID string) (*repo.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return r.scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*repo.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return r.scanUser(row)
}

func (r *UserRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*repo.User, error) {
	if limit <= 0 {
		limit = 1 << 30
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users ORDER BY id OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*repo.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (r *UserRepository) IsBot(ctx context.Context, userID string) (bool, error) {
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.IsBot, nil
}

func (r *UserRepository) BotDifficulty(ctx context.Context, userID string) (domain.BotDifficulty, error) {
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.BotDifficulty, nil
}

// Put inserts or updates a user record; a bootstrap helper for seeding
// bot accounts, not part of the repo.UserRepository contract.
func (r *UserRepository) Put(ctx context.Context, u *repo.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, is_bot, bot_difficulty)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username, is_bot = EXCLUDED.is_bot, bot_difficulty = EXCLUDED.bot_difficulty
	`, u.ID, u.Username, u.IsBot, int(u.BotDifficulty))
	return err
}
