package controller

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/teamreach/outreach-backend/internal/model"
	"github.com/teamreach/outreach-backend/internal/queue"
	"github.com/teamreach/outreach-backend/internal/slack"
)

// EventController ingests Slack event webhooks: verifies the request
// signature over the raw body, answers URL verification, normalizes the
// event, and hands it to the configured sink.
type EventController struct {
	SigningSecret string
	Sink          queue.EventSink
	Logger        *zap.Logger
}

type slackEventPayload struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	TeamID    string `json:"team_id"`
	Event     *struct {
		Type     string          `json:"type"`
		User     json.RawMessage `json:"user"`
		Channel  string          `json:"channel"`
		Subtype  string          `json:"subtype"`
		ItemUser string          `json:"item_user"`
		Item     *struct {
			Type    string `json:"type"`
			Channel string `json:"channel"`
		} `json:"item"`
	} `json:"event"`
}

func (c *EventController) HandleEvent(w http.ResponseWriter, r *http.Request) {
	if c.SigningSecret == "" {
		writeError(w, http.StatusInternalServerError, "Missing SLACK_SIGNING_SECRET.")
		return
	}

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	timestamp := r.Header.Get("X-Slack-Request-Timestamp")
	signature := r.Header.Get("X-Slack-Signature")
	if !slack.VerifySignature(c.SigningSecret, timestamp, signature, rawBody) {
		writeError(w, http.StatusUnauthorized, "Invalid signature.")
		return
	}

	var payload slackEventPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if payload.Type == "url_verification" && payload.Challenge != "" {
		writeJSON(w, http.StatusOK, map[string]string{"challenge": payload.Challenge})
		return
	}

	ev, ok := normalizeEvent(payload)
	if ok {
		if err := c.Sink.Publish(r.Context(), ev); err != nil {
			// Slack retries on non-2xx; the ledger and activity upserts
			// make a redelivered event harmless, so ask for the retry.
			c.Logger.Error("event publish failed", zap.String("kind", ev.Kind), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "event not accepted")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// normalizeEvent maps the raw Slack payload onto the core event shape.
// Message subtypes (edits, joins rendered as messages) are ignored.
func normalizeEvent(payload slackEventPayload) (model.Event, bool) {
	if payload.Event == nil || payload.TeamID == "" {
		return model.Event{}, false
	}
	event := payload.Event

	switch event.Type {
	case "team_join":
		userID := resolveUserID(event.User)
		if userID == "" {
			return model.Event{}, false
		}
		return model.Event{TeamID: payload.TeamID, Kind: model.EventTeamJoin, UserID: userID}, true

	case "member_joined_channel":
		userID := resolveUserID(event.User)
		if userID == "" || event.Channel == "" {
			return model.Event{}, false
		}
		return model.Event{
			TeamID:    payload.TeamID,
			Kind:      model.EventMemberJoinedChannel,
			UserID:    userID,
			ChannelID: event.Channel,
		}, true

	case "message":
		if event.Subtype != "" {
			return model.Event{}, false
		}
		userID := resolveUserID(event.User)
		if userID == "" || event.Channel == "" {
			return model.Event{}, false
		}
		return model.Event{
			TeamID:    payload.TeamID,
			Kind:      model.EventActivity,
			UserID:    userID,
			ChannelID: event.Channel,
		}, true

	case "reaction_added":
		userID := resolveUserID(event.User)
		if userID == "" || event.Item == nil || event.Item.Channel == "" {
			return model.Event{}, false
		}
		return model.Event{
			TeamID:    payload.TeamID,
			Kind:      model.EventActivity,
			UserID:    userID,
			ChannelID: event.Item.Channel,
		}, true
	}

	return model.Event{}, false
}

// resolveUserID accepts both encodings Slack uses for the user field:
// a plain id string or an object with an id.
func resolveUserID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}
