package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teamreach/outreach-backend/internal/model"
)

// In-memory stand-ins for the store, with the same exclusivity semantics
// the SQL claim provides within a single process.

type mockJobRepo struct {
	jobs       map[string]*model.DMJob
	recipients []*model.DMJobRecipient
	failClaim  error
	failList   error
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: map[string]*model.DMJob{}}
}

func (m *mockJobRepo) addJob(job *model.DMJob, userIDs ...string) {
	if job.Status == "" {
		job.Status = model.JobStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	m.jobs[job.ID] = job
	for i, userID := range userIDs {
		m.recipients = append(m.recipients, &model.DMJobRecipient{
			ID:     fmt.Sprintf("%s-r%d", job.ID, i),
			JobID:  job.ID,
			UserID: userID,
			Status: model.RecipientStatusQueued,
		})
	}
}

func (m *mockJobRepo) CreateJobWithRecipients(ctx context.Context, job *model.DMJob, userIDs []string) error {
	job.ID = fmt.Sprintf("job-%d", len(m.jobs)+1)
	job.Status = model.JobStatusQueued
	job.CreatedAt = time.Now()
	m.addJob(job, userIDs...)
	return nil
}

func (m *mockJobRepo) GetByID(ctx context.Context, id string) (*model.DMJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("dm job %s not found", id)
	}
	return job, nil
}

func (m *mockJobRepo) ListPending(ctx context.Context, teamID string, limit int) ([]*model.DMJob, error) {
	if m.failList != nil {
		return nil, m.failList
	}
	pending := []*model.DMJob{}
	for _, job := range m.jobs {
		if job.Status == model.JobStatusDone {
			continue
		}
		if teamID != "" && job.TeamID != teamID {
			continue
		}
		pending = append(pending, job)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (m *mockJobRepo) ClaimRecipientBatch(ctx context.Context, jobID string, limit int) ([]*model.DMJobRecipient, error) {
	if m.failClaim != nil {
		return nil, m.failClaim
	}
	batch := []*model.DMJobRecipient{}
	now := time.Now()
	for _, rec := range m.recipients {
		if rec.JobID != jobID || rec.Status != model.RecipientStatusQueued || rec.ClaimedAt != nil {
			continue
		}
		rec.ClaimedAt = &now
		batch = append(batch, rec)
		if len(batch) == limit {
			break
		}
	}
	return batch, nil
}

func (m *mockJobRepo) ResolveRecipient(ctx context.Context, recipientID, status, errText string) error {
	for _, rec := range m.recipients {
		if rec.ID != recipientID {
			continue
		}
		if rec.Status != model.RecipientStatusQueued {
			return fmt.Errorf("recipient %s already resolved", recipientID)
		}
		rec.Status = status
		rec.Error = errText
		if status == model.RecipientStatusSent {
			now := time.Now()
			rec.SentAt = &now
		}
		return nil
	}
	return errors.New("recipient not found")
}

func (m *mockJobRepo) MarkJobStatus(ctx context.Context, jobID, status string) error {
	job, ok := m.jobs[jobID]
	if !ok {
		return errors.New("job not found")
	}
	if job.Status == model.JobStatusDone && status != model.JobStatusDone {
		return nil
	}
	job.Status = status
	return nil
}

func (m *mockJobRepo) RecipientStats(ctx context.Context, jobID string) (map[string]int, error) {
	stats := map[string]int{
		model.RecipientStatusQueued: 0,
		model.RecipientStatusSent:   0,
		model.RecipientStatusFailed: 0,
	}
	for _, rec := range m.recipients {
		if rec.JobID == jobID {
			stats[rec.Status]++
		}
	}
	return stats, nil
}

func (m *mockJobRepo) recipient(id string) *model.DMJobRecipient {
	for _, rec := range m.recipients {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

type mockUserRepo struct {
	users map[string]*model.User
	fail  error
}

func newMockUserRepo(users ...*model.User) *mockUserRepo {
	m := &mockUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		m.users[u.UserID] = u
	}
	return m
}

func (m *mockUserRepo) GetUser(ctx context.Context, teamID, userID string) (*model.User, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return m.users[userID], nil
}

func (m *mockUserRepo) ListByIDs(ctx context.Context, teamID string, userIDs []string) ([]*model.User, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	out := []*model.User{}
	for _, id := range userIDs {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) ListCreatedSince(ctx context.Context, teamID string, since time.Time, limit int) ([]*model.User, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	out := []*model.User{}
	for _, u := range m.users {
		if u.CreatedAt != nil && u.CreatedAt.After(since) {
			out = append(out, u)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *mockUserRepo) UpsertUsers(ctx context.Context, users []*model.User) error {
	for _, u := range users {
		m.users[u.UserID] = u
	}
	return nil
}

type mockActivityRepo struct {
	entries []*model.ActivityEntry
	touches []model.ActivityEntry
	fail    error
}

func (m *mockActivityRepo) Touch(ctx context.Context, teamID, userID, channelID string, at time.Time) error {
	if m.fail != nil {
		return m.fail
	}
	m.touches = append(m.touches, model.ActivityEntry{TeamID: teamID, UserID: userID, ChannelID: channelID, LastActivityAt: at})
	return nil
}

func (m *mockActivityRepo) ListActiveSince(ctx context.Context, teamID, channelID string, since time.Time, limit int) ([]*model.ActivityEntry, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	out := []*model.ActivityEntry{}
	for _, e := range m.entries {
		if e.TeamID != teamID || e.LastActivityAt.Before(since) {
			continue
		}
		if channelID != "" && e.ChannelID != channelID {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type mockWorkflowRepo struct {
	workflows map[string]*model.Workflow
	sends     map[string]map[string]bool // workflow id -> user id
}

func newMockWorkflowRepo(workflows ...*model.Workflow) *mockWorkflowRepo {
	m := &mockWorkflowRepo{workflows: map[string]*model.Workflow{}, sends: map[string]map[string]bool{}}
	for _, w := range workflows {
		m.workflows[w.ID] = w
	}
	return m
}

func (m *mockWorkflowRepo) Create(ctx context.Context, w *model.Workflow) error {
	w.ID = fmt.Sprintf("wf-%d", len(m.workflows)+1)
	m.workflows[w.ID] = w
	return nil
}

func (m *mockWorkflowRepo) Update(ctx context.Context, w *model.Workflow) error {
	m.workflows[w.ID] = w
	return nil
}

func (m *mockWorkflowRepo) GetByID(ctx context.Context, teamID, id string) (*model.Workflow, error) {
	w, ok := m.workflows[id]
	if !ok || w.TeamID != teamID {
		return nil, fmt.Errorf("workflow %s not found", id)
	}
	return w, nil
}

func (m *mockWorkflowRepo) ListByTeam(ctx context.Context, teamID string) ([]*model.Workflow, error) {
	out := []*model.Workflow{}
	for _, w := range m.workflows {
		if w.TeamID == teamID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *mockWorkflowRepo) ListActive(ctx context.Context, teamID, trigger string) ([]*model.Workflow, error) {
	out := []*model.Workflow{}
	for _, w := range m.workflows {
		if w.TeamID == teamID && w.Trigger == trigger && w.IsActive {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *mockWorkflowRepo) HasSend(ctx context.Context, workflowID, userID string) (bool, error) {
	return m.sends[workflowID][userID], nil
}

func (m *mockWorkflowRepo) RecordSend(ctx context.Context, workflowID, teamID, userID string) error {
	if m.sends[workflowID] == nil {
		m.sends[workflowID] = map[string]bool{}
	}
	m.sends[workflowID][userID] = true
	return nil
}

func (m *mockWorkflowRepo) ListSentUserIDs(ctx context.Context, workflowID string) (map[string]bool, error) {
	out := map[string]bool{}
	for userID := range m.sends[workflowID] {
		out[userID] = true
	}
	return out, nil
}

type mockWorkspaceRepo struct {
	workspace    *model.Workspace
	senderTokens map[string]string
}

func (m *mockWorkspaceRepo) GetWorkspace(ctx context.Context, teamID string) (*model.Workspace, error) {
	if m.workspace == nil || m.workspace.TeamID != teamID {
		return nil, fmt.Errorf("workspace %s not found", teamID)
	}
	return m.workspace, nil
}

func (m *mockWorkspaceRepo) ListWorkspaces(ctx context.Context) ([]*model.Workspace, error) {
	if m.workspace == nil {
		return []*model.Workspace{}, nil
	}
	return []*model.Workspace{m.workspace}, nil
}

func (m *mockWorkspaceRepo) GetSenderToken(ctx context.Context, teamID, userID string) (string, error) {
	return m.senderTokens[userID], nil
}

func (m *mockWorkspaceRepo) ListSenders(ctx context.Context, teamID string) ([]*model.WorkspaceSender, error) {
	return []*model.WorkspaceSender{}, nil
}

func (m *mockWorkspaceRepo) ListChannels(ctx context.Context, teamID string) ([]*model.Channel, error) {
	return []*model.Channel{}, nil
}

func (m *mockWorkspaceRepo) UpsertChannels(ctx context.Context, channels []*model.Channel) error {
	return nil
}

// fakeGateway records delivery attempts and injects failures per user.
type fakeGateway struct {
	openErr map[string]error // by user id
	postErr map[string]error // by user id, keyed through the conversation
	opened  []string
	posted  map[string][]string // user id -> texts
	tokens  []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		openErr: map[string]error{},
		postErr: map[string]error{},
		posted:  map[string][]string{},
	}
}

func (g *fakeGateway) OpenConversation(ctx context.Context, token, userID string) (string, error) {
	g.tokens = append(g.tokens, token)
	if err := g.openErr[userID]; err != nil {
		return "", err
	}
	g.opened = append(g.opened, userID)
	return "D-" + userID, nil
}

func (g *fakeGateway) PostMessage(ctx context.Context, token, channelID, text string) error {
	userID := channelID[len("D-"):]
	if err := g.postErr[userID]; err != nil {
		return err
	}
	g.posted[userID] = append(g.posted[userID], text)
	return nil
}
