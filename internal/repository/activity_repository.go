package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/teamreach/outreach-backend/internal/model"
)

type ActivityRepositoryInterface interface {
	Touch(ctx context.Context, teamID, userID, channelID string, at time.Time) error
	ListActiveSince(ctx context.Context, teamID, channelID string, since time.Time, limit int) ([]*model.ActivityEntry, error)
}

type ActivityRepository struct {
	DB *sql.DB
}

// Touch upserts the workspace-wide timeline entry and, when the event
// carries a channel, the channel-scoped one as well.
func (r *ActivityRepository) Touch(ctx context.Context, teamID, userID, channelID string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO user_activity (team_id, user_id, last_activity_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (team_id, user_id) DO UPDATE SET last_activity_at=EXCLUDED.last_activity_at
    `, teamID, userID, at)
	if err != nil {
		return err
	}

	if channelID == "" {
		return nil
	}

	_, err = r.DB.ExecContext(ctx, `
        INSERT INTO user_channel_activity (team_id, user_id, channel_id, last_activity_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (team_id, user_id, channel_id) DO UPDATE SET last_activity_at=EXCLUDED.last_activity_at
    `, teamID, userID, channelID, at)
	return err
}

// ListActiveSince reads the channel-scoped timeline when channelID is
// set, otherwise the workspace-wide one, most recent first.
func (r *ActivityRepository) ListActiveSince(ctx context.Context, teamID, channelID string, since time.Time, limit int) ([]*model.ActivityEntry, error) {
	var rows *sql.Rows
	var err error
	if channelID != "" {
		rows, err = r.DB.QueryContext(ctx, `
            SELECT team_id, user_id, channel_id, last_activity_at
            FROM user_channel_activity
            WHERE team_id=$1 AND channel_id=$2 AND last_activity_at >= $3
            ORDER BY last_activity_at DESC
            LIMIT $4
        `, teamID, channelID, since, limit)
	} else {
		rows, err = r.DB.QueryContext(ctx, `
            SELECT team_id, user_id, ''::text, last_activity_at
            FROM user_activity
            WHERE team_id=$1 AND last_activity_at >= $2
            ORDER BY last_activity_at DESC
            LIMIT $3
        `, teamID, since, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*model.ActivityEntry{}
	for rows.Next() {
		e := &model.ActivityEntry{}
		if err := rows.Scan(&e.TeamID, &e.UserID, &e.ChannelID, &e.LastActivityAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ ActivityRepositoryInterface = (*ActivityRepository)(nil)
