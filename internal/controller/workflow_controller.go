package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	appErrors "github.com/teamreach/outreach-backend/internal/errors"
	"github.com/teamreach/outreach-backend/internal/model"
	"github.com/teamreach/outreach-backend/internal/repository"
	"github.com/teamreach/outreach-backend/internal/service"
)

type WorkflowController struct {
	Workflows repository.WorkflowRepositoryInterface
	Engine    *service.WorkflowEngine
	Logger    *zap.Logger
}

func (c *WorkflowController) List(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "Missing team_id.")
		return
	}

	workflows, err := c.Workflows.ListByTeam(r.Context(), teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Unable to load workflows.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"workflows": workflows})
}

type workflowPayload struct {
	ID              string  `json:"id"`
	TeamID          string  `json:"team_id" validate:"required"`
	Name            string  `json:"name" validate:"required"`
	Trigger         string  `json:"trigger" validate:"required,oneof=team_join member_joined_channel"`
	ChannelID       *string `json:"channel_id"`
	SenderUserID    *string `json:"sender_user_id"`
	MessageTemplate string  `json:"message_template" validate:"required"`
	IsActive        *bool   `json:"is_active"`
}

func (p *workflowPayload) toModel() *model.Workflow {
	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	// A channel filter is only meaningful on channel-join triggers.
	channelID := p.ChannelID
	if p.Trigger != model.TriggerMemberJoinedChannel {
		channelID = nil
	}
	return &model.Workflow{
		ID:              p.ID,
		TeamID:          p.TeamID,
		Name:            p.Name,
		Trigger:         p.Trigger,
		ChannelID:       channelID,
		SenderUserID:    p.SenderUserID,
		MessageTemplate: p.MessageTemplate,
		IsActive:        active,
	}
}

func (c *WorkflowController) Create(w http.ResponseWriter, r *http.Request) {
	var payload workflowPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "Missing team_id, name, trigger, or message_template.")
		return
	}

	workflow := payload.toModel()
	if err := c.Workflows.Create(r.Context(), workflow); err != nil {
		c.Logger.Error("create workflow failed", zap.String("team_id", payload.TeamID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Unable to create workflow.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": workflow.ID})
}

func (c *WorkflowController) Update(w http.ResponseWriter, r *http.Request) {
	var payload workflowPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ID == "" || payload.TeamID == "" {
		writeError(w, http.StatusBadRequest, "Missing id or team_id.")
		return
	}

	if err := c.Workflows.Update(r.Context(), payload.toModel()); err != nil {
		var notFound *appErrors.ErrWorkflowNotFound
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, "Workflow not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Unable to update workflow.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type backfillPayload struct {
	TeamID     string `json:"team_id" validate:"required"`
	WorkflowID string `json:"workflow_id" validate:"required"`
	Days       int    `json:"days"`
	Limit      int    `json:"limit"`
}

func (c *WorkflowController) Backfill(w http.ResponseWriter, r *http.Request) {
	var payload backfillPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "Missing team_id or workflow_id.")
		return
	}

	processed, err := c.Engine.Backfill(r.Context(), service.BackfillInput{
		TeamID:     payload.TeamID,
		WorkflowID: payload.WorkflowID,
		Days:       payload.Days,
		Limit:      payload.Limit,
	})
	if err != nil {
		var notFound *appErrors.ErrWorkflowNotFound
		var noSender *appErrors.ErrMissingSenderToken
		switch {
		case errors.As(err, &notFound):
			writeError(w, http.StatusNotFound, "Workflow not found.")
		case errors.Is(err, service.ErrBackfillUnsupportedTrigger):
			writeError(w, http.StatusBadRequest, "Backfill is only supported for team_join workflows.")
		case errors.Is(err, service.ErrWorkflowInactive):
			writeError(w, http.StatusBadRequest, "Workflow is inactive.")
		case errors.As(err, &noSender):
			writeError(w, http.StatusBadRequest, "Missing sender token.")
		default:
			c.Logger.Error("backfill failed", zap.String("workflow_id", payload.WorkflowID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Backfill failed.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "processed": processed})
}
