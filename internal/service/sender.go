package service

import (
	"context"

	appErrors "github.com/teamreach/outreach-backend/internal/errors"
	"github.com/teamreach/outreach-backend/internal/repository"
)

// SenderResolver maps (workspace, optional explicit sender) to a bearer
// credential. The fallback chain is fixed: an explicit sender's token
// when registered, otherwise the workspace's authorized user token.
type SenderResolver struct {
	Workspaces repository.WorkspaceRepositoryInterface
}

func (r *SenderResolver) ResolveToken(ctx context.Context, teamID string, senderUserID *string) (string, error) {
	workspace, err := r.Workspaces.GetWorkspace(ctx, teamID)
	if err != nil {
		return "", err
	}

	token := workspace.AuthedUserToken

	if senderUserID != nil && *senderUserID != "" {
		senderToken, err := r.Workspaces.GetSenderToken(ctx, teamID, *senderUserID)
		if err != nil {
			return "", err
		}
		if senderToken != "" {
			token = senderToken
		}
	}

	if token == "" {
		return "", appErrors.NewMissingSenderToken(teamID)
	}
	return token, nil
}
