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

const (
	defaultBackfillDays  = 30
	defaultBackfillLimit = 100
	maxBackfillLimit     = 200
)

var (
	// ErrBackfillUnsupportedTrigger: candidates are enumerated by join
	// date, which only lines up with workspace-join workflows.
	ErrBackfillUnsupportedTrigger = errors.New("backfill is only supported for team_join workflows")
	ErrWorkflowInactive           = errors.New("workflow is inactive")
)

type BackfillInput struct {
	TeamID     string
	WorkflowID string
	Days       int
	Limit      int
}

// WorkflowEngine reacts to normalized membership and activity events and
// runs one-off backfills. It holds no state between calls; the send
// ledger in the store is the only dedup mechanism.
type WorkflowEngine struct {
	Workflows repository.WorkflowRepositoryInterface
	Users     repository.UserRepositoryInterface
	Activity  repository.ActivityRepositoryInterface
	Sender    *SenderResolver
	Gateway   slack.Gateway
	Logger    *zap.Logger
}

// HandleEvent processes one normalized event. Activity events only touch
// the timeline; join events fan out to every matching active workflow.
// Send failures are dropped without a ledger entry, which is what makes
// a later backfill able to catch the user up.
func (e *WorkflowEngine) HandleEvent(ctx context.Context, ev model.Event) error {
	if ev.TeamID == "" || ev.UserID == "" {
		return errors.New("event missing team or user id")
	}

	if ev.Kind == model.EventActivity {
		return e.Activity.Touch(ctx, ev.TeamID, ev.UserID, ev.ChannelID, time.Now().UTC())
	}

	workflows, err := e.Workflows.ListActive(ctx, ev.TeamID, ev.Kind)
	if err != nil {
		return err
	}

	for _, wf := range workflows {
		if !workflowMatches(wf, ev) {
			continue
		}
		e.sendWorkflowMessage(ctx, wf, ev.UserID, ev.ChannelID)
	}
	return nil
}

// workflowMatches applies the channel filter: no filter matches any
// event; a filtered workflow needs the event to carry the same channel.
func workflowMatches(wf *model.Workflow, ev model.Event) bool {
	if wf.ChannelID == nil || *wf.ChannelID == "" {
		return true
	}
	return ev.ChannelID != "" && ev.ChannelID == *wf.ChannelID
}

// sendWorkflowMessage runs steps 3-6 of the engine contract for one
// definition. Every skip is silent by design: no record is written, so
// the user stays eligible for a later attempt.
func (e *WorkflowEngine) sendWorkflowMessage(ctx context.Context, wf *model.Workflow, userID, channelID string) {
	// Ledger check up front closes the double-join race: two quick
	// events for the same user collapse onto one send.
	already, err := e.Workflows.HasSend(ctx, wf.ID, userID)
	if err != nil || already {
		return
	}

	user, err := e.Users.GetUser(ctx, wf.TeamID, userID)
	if err != nil {
		return
	}
	if user != nil && !user.Addressable() {
		return
	}

	token, err := e.Sender.ResolveToken(ctx, wf.TeamID, wf.SenderUserID)
	if err != nil {
		return
	}

	fields := TemplateFields{ChannelID: channelID}
	if user != nil {
		fields.DisplayName = user.DisplayName
		fields.RealName = user.RealName
	}
	text := RenderTemplate(wf.MessageTemplate, fields)

	conversationID, err := e.Gateway.OpenConversation(ctx, token, userID)
	if err != nil {
		e.Logger.Warn("workflow open failed", zap.String("workflow_id", wf.ID), zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := e.Gateway.PostMessage(ctx, token, conversationID, text); err != nil {
		e.Logger.Warn("workflow post failed", zap.String("workflow_id", wf.ID), zap.String("user_id", userID), zap.Error(err))
		return
	}

	if err := e.Workflows.RecordSend(ctx, wf.ID, wf.TeamID, userID); err != nil {
		e.Logger.Error("workflow send recorded message but not ledger entry",
			zap.String("workflow_id", wf.ID), zap.String("user_id", userID), zap.Error(err))
	}
}

// Backfill catches up users who joined before the workflow existed or
// whose live event was missed. The ledger keeps it idempotent.
func (e *WorkflowEngine) Backfill(ctx context.Context, in BackfillInput) (int, error) {
	wf, err := e.Workflows.GetByID(ctx, in.TeamID, in.WorkflowID)
	if err != nil {
		return 0, err
	}
	if wf.Trigger != model.TriggerTeamJoin {
		return 0, ErrBackfillUnsupportedTrigger
	}
	if !wf.IsActive {
		return 0, ErrWorkflowInactive
	}

	token, err := e.Sender.ResolveToken(ctx, wf.TeamID, wf.SenderUserID)
	if err != nil {
		return 0, err
	}

	days := in.Days
	if days <= 0 {
		days = defaultBackfillDays
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultBackfillLimit
	}
	if limit > maxBackfillLimit {
		limit = maxBackfillLimit
	}

	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	candidates, err := e.Users.ListCreatedSince(ctx, in.TeamID, since, limit)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	sent, err := e.Workflows.ListSentUserIDs(ctx, wf.ID)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, candidate := range candidates {
		if !candidate.Addressable() || sent[candidate.UserID] {
			continue
		}

		text := RenderTemplate(wf.MessageTemplate, TemplateFields{
			DisplayName: candidate.DisplayName,
			RealName:    candidate.RealName,
		})

		conversationID, err := e.Gateway.OpenConversation(ctx, token, candidate.UserID)
		if err != nil {
			continue
		}
		if err := e.Gateway.PostMessage(ctx, token, conversationID, text); err != nil {
			continue
		}

		if err := e.Workflows.RecordSend(ctx, wf.ID, wf.TeamID, candidate.UserID); err != nil {
			e.Logger.Error("backfill ledger write failed",
				zap.String("workflow_id", wf.ID), zap.String("user_id", candidate.UserID), zap.Error(err))
		}
		processed++
	}
	return processed, nil
}
