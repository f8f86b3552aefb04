package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/teamreach/outreach-backend/internal/model"
	"github.com/teamreach/outreach-backend/internal/repository"
	"github.com/teamreach/outreach-backend/internal/slack"
)

// DirectoryGateway is the read side of the Slack client used by sync.
type DirectoryGateway interface {
	ListUsers(ctx context.Context, token string) ([]slack.Member, error)
	ListChannels(ctx context.Context, token string) ([]slack.ChannelInfo, error)
	JoinChannel(ctx context.Context, token, channelID string) error
}

var ErrMissingBotToken = errors.New("workspace missing bot token")

// SyncService mirrors the workspace directory (users and public
// channels) into the store so selection and workflow checks never have
// to call out during a pass.
type SyncService struct {
	Workspaces repository.WorkspaceRepositoryInterface
	Users      repository.UserRepositoryInterface
	Directory  DirectoryGateway
	Logger     *zap.Logger
}

func (s *SyncService) SyncUsers(ctx context.Context, teamID string) (int, error) {
	workspace, err := s.Workspaces.GetWorkspace(ctx, teamID)
	if err != nil {
		return 0, err
	}
	if workspace.BotAccessToken == "" {
		return 0, ErrMissingBotToken
	}

	members, err := s.Directory.ListUsers(ctx, workspace.BotAccessToken)
	if err != nil {
		return 0, err
	}

	users := make([]*model.User, 0, len(members))
	for _, m := range members {
		u := &model.User{
			TeamID:      teamID,
			UserID:      m.ID,
			DisplayName: m.Profile.DisplayName,
			RealName:    m.Profile.RealName,
			IsBot:       m.IsBot,
			Deleted:     m.Deleted,
		}
		if m.Created > 0 {
			createdAt := time.Unix(m.Created, 0).UTC()
			u.CreatedAt = &createdAt
		}
		users = append(users, u)
	}

	if err := s.Users.UpsertUsers(ctx, users); err != nil {
		return 0, err
	}
	return len(users), nil
}

func (s *SyncService) SyncChannels(ctx context.Context, teamID string) (int, error) {
	workspace, err := s.Workspaces.GetWorkspace(ctx, teamID)
	if err != nil {
		return 0, err
	}
	if workspace.BotAccessToken == "" {
		return 0, ErrMissingBotToken
	}

	listed, err := s.Directory.ListChannels(ctx, workspace.BotAccessToken)
	if err != nil {
		return 0, err
	}

	channels := make([]*model.Channel, 0, len(listed))
	for _, c := range listed {
		channels = append(channels, &model.Channel{
			TeamID:     teamID,
			ChannelID:  c.ID,
			Name:       c.Name,
			IsPrivate:  c.IsPrivate,
			IsArchived: c.IsArchived,
		})
	}

	if err := s.Workspaces.UpsertChannels(ctx, channels); err != nil {
		return 0, err
	}

	// Joining keeps the bot receiving channel events. Best effort; a
	// channel the bot cannot join still syncs.
	for _, c := range channels {
		if err := s.Directory.JoinChannel(ctx, workspace.BotAccessToken, c.ChannelID); err != nil {
			s.Logger.Debug("join channel failed", zap.String("channel_id", c.ChannelID), zap.Error(err))
		}
	}

	return len(channels), nil
}
