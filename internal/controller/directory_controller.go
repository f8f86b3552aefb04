package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/teamreach/outreach-backend/internal/errors"
	"github.com/teamreach/outreach-backend/internal/model"
	"github.com/teamreach/outreach-backend/internal/repository"
	"github.com/teamreach/outreach-backend/internal/service"
)

// DirectoryController serves the admin read endpoints and the directory
// sync triggers.
type DirectoryController struct {
	Workspaces repository.WorkspaceRepositoryInterface
	Users      repository.UserRepositoryInterface
	Activity   repository.ActivityRepositoryInterface
	Sync       *service.SyncService
	Logger     *zap.Logger
}

func (c *DirectoryController) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := c.Workspaces.ListWorkspaces(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Unable to load workspaces.")
		return
	}

	out := make([]map[string]string, 0, len(workspaces))
	for _, ws := range workspaces {
		out = append(out, map[string]string{"team_id": ws.TeamID, "team_name": ws.TeamName})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"workspaces": out})
}

func (c *DirectoryController) ListChannels(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "Missing team_id.")
		return
	}

	channels, err := c.Workspaces.ListChannels(r.Context(), teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Unable to load channels.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"channels": channels})
}

func (c *DirectoryController) ListSenders(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "Missing team_id.")
		return
	}

	senders, err := c.Workspaces.ListSenders(r.Context(), teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Unable to load senders.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"senders": senders})
}

// ListActive previews the recipient pool: recent activity joined with
// profile names, capped well above the job limit so admins can see who
// would be truncated.
func (c *DirectoryController) ListActive(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "Missing team_id query parameter.")
		return
	}
	channelID := r.URL.Query().Get("channel_id")

	days := 90
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}

	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	entries, err := c.Activity.ListActiveSince(r.Context(), teamID, channelID, since, 250)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Unable to load activity.")
		return
	}

	userIDs := make([]string, 0, len(entries))
	seen := map[string]bool{}
	for _, e := range entries {
		if !seen[e.UserID] {
			seen[e.UserID] = true
			userIDs = append(userIDs, e.UserID)
		}
	}

	users, err := c.Users.ListByIDs(r.Context(), teamID, userIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Unable to load activity.")
		return
	}
	userMap := map[string]*model.User{}
	for _, u := range users {
		userMap[u.UserID] = u
	}

	type activeUser struct {
		UserID         string    `json:"user_id"`
		DisplayName    string    `json:"display_name"`
		RealName       string    `json:"real_name"`
		LastActivityAt time.Time `json:"last_activity_at"`
	}
	out := make([]activeUser, 0, len(entries))
	for _, e := range entries {
		au := activeUser{UserID: e.UserID, LastActivityAt: e.LastActivityAt}
		if u := userMap[e.UserID]; u != nil {
			au.DisplayName = u.DisplayName
			au.RealName = u.RealName
		}
		out = append(out, au)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"users": out})
}

type syncPayload struct {
	TeamID string `json:"team_id" validate:"required"`
}

func (c *DirectoryController) SyncUsers(w http.ResponseWriter, r *http.Request) {
	c.runSync(w, r, c.Sync.SyncUsers)
}

func (c *DirectoryController) SyncChannels(w http.ResponseWriter, r *http.Request) {
	c.runSync(w, r, c.Sync.SyncChannels)
}

func (c *DirectoryController) runSync(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, teamID string) (int, error)) {
	var payload syncPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "Missing team_id.")
		return
	}

	count, err := run(r.Context(), payload.TeamID)
	if err != nil {
		var notFound *appErrors.ErrWorkspaceNotFound
		switch {
		case errors.As(err, &notFound):
			writeError(w, http.StatusNotFound, "Workspace not found.")
		case errors.Is(err, service.ErrMissingBotToken):
			writeError(w, http.StatusBadRequest, "Workspace missing bot token.")
		default:
			c.Logger.Error("sync failed", zap.String("team_id", payload.TeamID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Sync failed.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "count": count})
}
