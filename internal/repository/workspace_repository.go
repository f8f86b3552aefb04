package repository

import (
	"context"
	"database/sql"

	appErrors "github.com/teamreach/outreach-backend/internal/errors"
	"github.com/teamreach/outreach-backend/internal/model"
)

type WorkspaceRepositoryInterface interface {
	GetWorkspace(ctx context.Context, teamID string) (*model.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]*model.Workspace, error)
	GetSenderToken(ctx context.Context, teamID, userID string) (string, error)
	ListSenders(ctx context.Context, teamID string) ([]*model.WorkspaceSender, error)
	ListChannels(ctx context.Context, teamID string) ([]*model.Channel, error)
	UpsertChannels(ctx context.Context, channels []*model.Channel) error
}

type WorkspaceRepository struct {
	DB *sql.DB
}

func (r *WorkspaceRepository) GetWorkspace(ctx context.Context, teamID string) (*model.Workspace, error) {
	query := `
        SELECT team_id, team_name, bot_access_token, authed_user_id, authed_user_token
        FROM workspaces WHERE team_id=$1
    `
	var w model.Workspace
	err := r.DB.QueryRowContext(ctx, query, teamID).Scan(
		&w.TeamID, &w.TeamName, &w.BotAccessToken, &w.AuthedUserID, &w.AuthedUserToken,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewWorkspaceNotFound(teamID)
		}
		return nil, err
	}
	return &w, nil
}

func (r *WorkspaceRepository) ListWorkspaces(ctx context.Context) ([]*model.Workspace, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT team_id, team_name, bot_access_token, authed_user_id, authed_user_token
        FROM workspaces ORDER BY team_name ASC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workspaces := []*model.Workspace{}
	for rows.Next() {
		w := &model.Workspace{}
		if err := rows.Scan(&w.TeamID, &w.TeamName, &w.BotAccessToken, &w.AuthedUserID, &w.AuthedUserToken); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, w)
	}
	return workspaces, rows.Err()
}

// GetSenderToken returns the empty string when the user is not a
// registered sender for the workspace.
func (r *WorkspaceRepository) GetSenderToken(ctx context.Context, teamID, userID string) (string, error) {
	var token string
	err := r.DB.QueryRowContext(ctx, `
        SELECT access_token FROM workspace_senders WHERE team_id=$1 AND user_id=$2
    `, teamID, userID).Scan(&token)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

func (r *WorkspaceRepository) ListSenders(ctx context.Context, teamID string) ([]*model.WorkspaceSender, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT team_id, user_id, access_token, display_name, real_name
        FROM workspace_senders WHERE team_id=$1 ORDER BY display_name ASC
    `, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	senders := []*model.WorkspaceSender{}
	for rows.Next() {
		s := &model.WorkspaceSender{}
		if err := rows.Scan(&s.TeamID, &s.UserID, &s.AccessToken, &s.DisplayName, &s.RealName); err != nil {
			return nil, err
		}
		senders = append(senders, s)
	}
	return senders, rows.Err()
}

func (r *WorkspaceRepository) ListChannels(ctx context.Context, teamID string) ([]*model.Channel, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT team_id, channel_id, name, is_private, is_archived
        FROM channels WHERE team_id=$1 AND is_archived=false ORDER BY name ASC
    `, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels := []*model.Channel{}
	for rows.Next() {
		c := &model.Channel{}
		if err := rows.Scan(&c.TeamID, &c.ChannelID, &c.Name, &c.IsPrivate, &c.IsArchived); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func (r *WorkspaceRepository) UpsertChannels(ctx context.Context, channels []*model.Channel) error {
	query := `
        INSERT INTO channels (team_id, channel_id, name, is_private, is_archived)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (team_id, channel_id) DO UPDATE
        SET name=EXCLUDED.name, is_private=EXCLUDED.is_private, is_archived=EXCLUDED.is_archived
    `
	for _, c := range channels {
		if _, err := r.DB.ExecContext(ctx, query, c.TeamID, c.ChannelID, c.Name, c.IsPrivate, c.IsArchived); err != nil {
			return err
		}
	}
	return nil
}

var _ WorkspaceRepositoryInterface = (*WorkspaceRepository)(nil)
