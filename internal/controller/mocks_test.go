package controller

import (
	"context"
	"time"

	appErrors "github.com/teamreach/outreach-backend/internal/errors"
	"github.com/teamreach/outreach-backend/internal/model"
)

// Compact stubs for the store and gateway, enough to drive the HTTP
// handlers end to end.

type stubJobRepo struct {
	job        *model.DMJob
	recipients []*model.DMJobRecipient
	created    []string
}

func (s *stubJobRepo) CreateJobWithRecipients(ctx context.Context, job *model.DMJob, userIDs []string) error {
	job.ID = "job-1"
	job.Status = model.JobStatusQueued
	s.job = job
	s.created = userIDs
	return nil
}

func (s *stubJobRepo) GetByID(ctx context.Context, id string) (*model.DMJob, error) {
	if s.job == nil || s.job.ID != id {
		return nil, appErrors.NewJobNotFound(id)
	}
	return s.job, nil
}

func (s *stubJobRepo) ListPending(ctx context.Context, teamID string, limit int) ([]*model.DMJob, error) {
	if s.job == nil || s.job.Status == model.JobStatusDone {
		return []*model.DMJob{}, nil
	}
	return []*model.DMJob{s.job}, nil
}

func (s *stubJobRepo) ClaimRecipientBatch(ctx context.Context, jobID string, limit int) ([]*model.DMJobRecipient, error) {
	batch := []*model.DMJobRecipient{}
	for _, rec := range s.recipients {
		if rec.Status != model.RecipientStatusQueued || rec.ClaimedAt != nil {
			continue
		}
		now := time.Now()
		rec.ClaimedAt = &now
		batch = append(batch, rec)
		if len(batch) == limit {
			break
		}
	}
	return batch, nil
}

func (s *stubJobRepo) ResolveRecipient(ctx context.Context, recipientID, status, errText string) error {
	for _, rec := range s.recipients {
		if rec.ID == recipientID {
			rec.Status = status
			rec.Error = errText
		}
	}
	return nil
}

func (s *stubJobRepo) MarkJobStatus(ctx context.Context, jobID, status string) error {
	if s.job != nil {
		s.job.Status = status
	}
	return nil
}

func (s *stubJobRepo) RecipientStats(ctx context.Context, jobID string) (map[string]int, error) {
	stats := map[string]int{}
	for _, rec := range s.recipients {
		stats[rec.Status]++
	}
	return stats, nil
}

type stubUserRepo struct {
	users map[string]*model.User
}

func (s *stubUserRepo) GetUser(ctx context.Context, teamID, userID string) (*model.User, error) {
	return s.users[userID], nil
}

func (s *stubUserRepo) ListByIDs(ctx context.Context, teamID string, userIDs []string) ([]*model.User, error) {
	out := []*model.User{}
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *stubUserRepo) ListCreatedSince(ctx context.Context, teamID string, since time.Time, limit int) ([]*model.User, error) {
	out := []*model.User{}
	for _, u := range s.users {
		if u.CreatedAt != nil && u.CreatedAt.After(since) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *stubUserRepo) UpsertUsers(ctx context.Context, users []*model.User) error {
	for _, u := range users {
		s.users[u.UserID] = u
	}
	return nil
}

type stubActivityRepo struct {
	entries []*model.ActivityEntry
}

func (s *stubActivityRepo) Touch(ctx context.Context, teamID, userID, channelID string, at time.Time) error {
	return nil
}

func (s *stubActivityRepo) ListActiveSince(ctx context.Context, teamID, channelID string, since time.Time, limit int) ([]*model.ActivityEntry, error) {
	return s.entries, nil
}

type stubWorkspaceRepo struct {
	workspace *model.Workspace
}

func (s *stubWorkspaceRepo) GetWorkspace(ctx context.Context, teamID string) (*model.Workspace, error) {
	if s.workspace == nil {
		return nil, appErrors.NewWorkspaceNotFound(teamID)
	}
	return s.workspace, nil
}

func (s *stubWorkspaceRepo) ListWorkspaces(ctx context.Context) ([]*model.Workspace, error) {
	if s.workspace == nil {
		return []*model.Workspace{}, nil
	}
	return []*model.Workspace{s.workspace}, nil
}

func (s *stubWorkspaceRepo) GetSenderToken(ctx context.Context, teamID, userID string) (string, error) {
	return "", nil
}

func (s *stubWorkspaceRepo) ListSenders(ctx context.Context, teamID string) ([]*model.WorkspaceSender, error) {
	return []*model.WorkspaceSender{}, nil
}

func (s *stubWorkspaceRepo) ListChannels(ctx context.Context, teamID string) ([]*model.Channel, error) {
	return []*model.Channel{}, nil
}

func (s *stubWorkspaceRepo) UpsertChannels(ctx context.Context, channels []*model.Channel) error {
	return nil
}

type stubWorkflowRepo struct {
	workflows []*model.Workflow
	sends     map[string]bool
	updated   *model.Workflow
	updateErr error
}

func (s *stubWorkflowRepo) Create(ctx context.Context, w *model.Workflow) error {
	w.ID = "wf-1"
	s.workflows = append(s.workflows, w)
	return nil
}

func (s *stubWorkflowRepo) Update(ctx context.Context, w *model.Workflow) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = w
	return nil
}

func (s *stubWorkflowRepo) GetByID(ctx context.Context, teamID, id string) (*model.Workflow, error) {
	for _, w := range s.workflows {
		if w.ID == id && w.TeamID == teamID {
			return w, nil
		}
	}
	return nil, appErrors.NewWorkflowNotFound(id)
}

func (s *stubWorkflowRepo) ListByTeam(ctx context.Context, teamID string) ([]*model.Workflow, error) {
	return s.workflows, nil
}

func (s *stubWorkflowRepo) ListActive(ctx context.Context, teamID, trigger string) ([]*model.Workflow, error) {
	out := []*model.Workflow{}
	for _, w := range s.workflows {
		if w.Trigger == trigger && w.IsActive {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *stubWorkflowRepo) HasSend(ctx context.Context, workflowID, userID string) (bool, error) {
	return s.sends[userID], nil
}

func (s *stubWorkflowRepo) RecordSend(ctx context.Context, workflowID, teamID, userID string) error {
	if s.sends == nil {
		s.sends = map[string]bool{}
	}
	s.sends[userID] = true
	return nil
}

func (s *stubWorkflowRepo) ListSentUserIDs(ctx context.Context, workflowID string) (map[string]bool, error) {
	out := map[string]bool{}
	for id := range s.sends {
		out[id] = true
	}
	return out, nil
}

type stubGateway struct {
	posted map[string]string
}

func (g *stubGateway) OpenConversation(ctx context.Context, token, userID string) (string, error) {
	return "D-" + userID, nil
}

func (g *stubGateway) PostMessage(ctx context.Context, token, channelID, text string) error {
	if g.posted == nil {
		g.posted = map[string]string{}
	}
	g.posted[channelID] = text
	return nil
}
