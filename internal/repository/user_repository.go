package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/teamreach/outreach-backend/internal/model"
)

type UserRepositoryInterface interface {
	GetUser(ctx context.Context, teamID, userID string) (*model.User, error)
	ListByIDs(ctx context.Context, teamID string, userIDs []string) ([]*model.User, error)
	ListCreatedSince(ctx context.Context, teamID string, since time.Time, limit int) ([]*model.User, error)
	UpsertUsers(ctx context.Context, users []*model.User) error
}

type UserRepository struct {
	DB *sql.DB
}

// GetUser returns nil without error when the user is unknown.
func (r *UserRepository) GetUser(ctx context.Context, teamID, userID string) (*model.User, error) {
	query := `
        SELECT team_id, user_id, display_name, real_name, is_bot, deleted, user_created_at
        FROM users WHERE team_id=$1 AND user_id=$2
    `
	var u model.User
	err := r.DB.QueryRowContext(ctx, query, teamID, userID).Scan(
		&u.TeamID, &u.UserID, &u.DisplayName, &u.RealName, &u.IsBot, &u.Deleted, &u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) ListByIDs(ctx context.Context, teamID string, userIDs []string) ([]*model.User, error) {
	if len(userIDs) == 0 {
		return []*model.User{}, nil
	}
	query := `
        SELECT team_id, user_id, display_name, real_name, is_bot, deleted, user_created_at
        FROM users WHERE team_id=$1 AND user_id = ANY($2)
    `
	rows, err := r.DB.QueryContext(ctx, query, teamID, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// ListCreatedSince enumerates workspace members by join date, newest
// first. Used by workflow backfills.
func (r *UserRepository) ListCreatedSince(ctx context.Context, teamID string, since time.Time, limit int) ([]*model.User, error) {
	query := `
        SELECT team_id, user_id, display_name, real_name, is_bot, deleted, user_created_at
        FROM users
        WHERE team_id=$1 AND user_created_at >= $2
        ORDER BY user_created_at DESC
        LIMIT $3
    `
	rows, err := r.DB.QueryContext(ctx, query, teamID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *UserRepository) UpsertUsers(ctx context.Context, users []*model.User) error {
	query := `
        INSERT INTO users (team_id, user_id, display_name, real_name, is_bot, deleted, user_created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (team_id, user_id) DO UPDATE
        SET display_name=EXCLUDED.display_name,
            real_name=EXCLUDED.real_name,
            is_bot=EXCLUDED.is_bot,
            deleted=EXCLUDED.deleted,
            user_created_at=EXCLUDED.user_created_at
    `
	for _, u := range users {
		if _, err := r.DB.ExecContext(ctx, query, u.TeamID, u.UserID, u.DisplayName, u.RealName, u.IsBot, u.Deleted, u.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func scanUsers(rows *sql.Rows) ([]*model.User, error) {
	users := []*model.User{}
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(&u.TeamID, &u.UserID, &u.DisplayName, &u.RealName, &u.IsBot, &u.Deleted, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
