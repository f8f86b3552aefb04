package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	appErrors "github.com/teamreach/outreach-backend/internal/errors"
	"github.com/teamreach/outreach-backend/internal/model"
	"github.com/teamreach/outreach-backend/internal/repository"
	"github.com/teamreach/outreach-backend/internal/slack"
)

// Dispatcher bounds. A pass never touches more than maxJobsCeiling jobs
// or sends more than batchSizeCeiling messages per job.
const (
	defaultMaxJobs   = 3
	maxJobsCeiling   = 10
	defaultBatchSize = 20
	batchSizeCeiling = 50
)

type CreateJobInput struct {
	TeamID          string
	ChannelID       string
	Days            int
	Limit           int
	MessageTemplate string
	SenderUserID    *string
}

type CreateJobResult struct {
	JobID          string
	RecipientCount int
}

type PassResult struct {
	JobsProcessed int
	MessagesSent  int
}

type JobService struct {
	Jobs       repository.JobRepositoryInterface
	Users      repository.UserRepositoryInterface
	Workspaces repository.WorkspaceRepositoryInterface
	Selector   *RecipientSelector
	Sender     *SenderResolver
	Gateway    slack.Gateway
	Logger     *zap.Logger
}

// CreateJob computes the recipient set and persists the job with one
// queued recipient row per user. Selection or insert failure aborts the
// request with no partial job.
func (s *JobService) CreateJob(ctx context.Context, in CreateJobInput) (*CreateJobResult, error) {
	recipients, err := s.Selector.SelectActive(ctx, SelectInput{
		TeamID:    in.TeamID,
		ChannelID: in.ChannelID,
		Days:      in.Days,
		Limit:     in.Limit,
	})
	if err != nil {
		return nil, err
	}

	job := &model.DMJob{
		TeamID:          in.TeamID,
		SenderUserID:    in.SenderUserID,
		MessageTemplate: in.MessageTemplate,
	}

	// Attribute the job to the installing user when the workspace is
	// known; an uninstalled workspace still gets a job (created_by null).
	workspace, err := s.Workspaces.GetWorkspace(ctx, in.TeamID)
	if err != nil {
		var notFound *appErrors.ErrWorkspaceNotFound
		if !errors.As(err, &notFound) {
			return nil, err
		}
	} else {
		job.CreatedBy = workspace.AuthedUserID
	}

	if err := s.Jobs.CreateJobWithRecipients(ctx, job, recipients); err != nil {
		return nil, err
	}

	return &CreateJobResult{JobID: job.ID, RecipientCount: len(recipients)}, nil
}

// RunJob executes one bounded batch for a single job: claim, render,
// open, post, resolve — sequentially, so the gateway's rate limit is the
// only pacing needed. Returns the number of messages sent.
func (s *JobService) RunJob(ctx context.Context, jobID string, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if batchSize > batchSizeCeiling {
		batchSize = batchSizeCeiling
	}

	job, err := s.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return 0, err
	}

	token, err := s.Sender.ResolveToken(ctx, job.TeamID, job.SenderUserID)
	if err != nil {
		return 0, err
	}

	batch, err := s.Jobs.ClaimRecipientBatch(ctx, job.ID, batchSize)
	if err != nil {
		return 0, err
	}

	// No claimable work left means the job is finished. The transition
	// is idempotent, so concurrent passes agree.
	if len(batch) == 0 {
		if err := s.Jobs.MarkJobStatus(ctx, job.ID, model.JobStatusDone); err != nil {
			return 0, err
		}
		return 0, nil
	}

	userIDs := make([]string, 0, len(batch))
	for _, rec := range batch {
		userIDs = append(userIDs, rec.UserID)
	}
	users, err := s.Users.ListByIDs(ctx, job.TeamID, userIDs)
	if err != nil {
		return 0, err
	}
	userMap := map[string]*model.User{}
	for _, u := range users {
		userMap[u.UserID] = u
	}

	sent := 0
	for _, rec := range batch {
		fields := TemplateFields{}
		if u := userMap[rec.UserID]; u != nil {
			fields.DisplayName = u.DisplayName
			fields.RealName = u.RealName
		}
		text := RenderTemplate(job.MessageTemplate, fields)

		if sendErr := s.deliver(ctx, token, rec.UserID, text); sendErr != nil {
			s.Logger.Warn("dm send failed",
				zap.String("job_id", job.ID),
				zap.String("user_id", rec.UserID),
				zap.Error(sendErr))
			if err := s.Jobs.ResolveRecipient(ctx, rec.ID, model.RecipientStatusFailed, sendErr.Error()); err != nil {
				return sent, err
			}
			continue
		}

		if err := s.Jobs.ResolveRecipient(ctx, rec.ID, model.RecipientStatusSent, ""); err != nil {
			return sent, err
		}
		sent++
	}

	if err := s.Jobs.MarkJobStatus(ctx, job.ID, model.JobStatusRunning); err != nil {
		return sent, err
	}
	return sent, nil
}

// RunPass is the queue drainer: one bounded FIFO sweep over pending
// jobs. Safe to re-invoke at any time; resolved recipients are never
// revisited and concurrent passes cannot claim the same recipient.
func (s *JobService) RunPass(ctx context.Context, teamID string, maxJobs, batchSize int) (*PassResult, error) {
	if maxJobs <= 0 {
		maxJobs = defaultMaxJobs
	}
	if maxJobs > maxJobsCeiling {
		maxJobs = maxJobsCeiling
	}

	jobs, err := s.Jobs.ListPending(ctx, teamID, maxJobs)
	if err != nil {
		return nil, err
	}

	result := &PassResult{}
	for _, job := range jobs {
		sent, err := s.RunJob(ctx, job.ID, batchSize)
		if err != nil {
			// A broken job must not starve the rest of the queue.
			s.Logger.Error("job pass failed", zap.String("job_id", job.ID), zap.Error(err))
			result.MessagesSent += sent
			continue
		}
		result.JobsProcessed++
		result.MessagesSent += sent
	}
	return result, nil
}

// JobWithStats is the read model for the job detail endpoint.
type JobWithStats struct {
	Job   *model.DMJob   `json:"job"`
	Stats map[string]int `json:"stats"`
}

func (s *JobService) GetJobWithStats(ctx context.Context, jobID string) (*JobWithStats, error) {
	job, err := s.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	stats, err := s.Jobs.RecipientStats(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &JobWithStats{Job: job, Stats: stats}, nil
}

// deliver opens the direct conversation and posts the message. Either
// step can fail transiently; the caller records the outcome and never
// retries within the pass, since a repeat post would duplicate the DM.
func (s *JobService) deliver(ctx context.Context, token, userID, text string) error {
	conversationID, err := s.Gateway.OpenConversation(ctx, token, userID)
	if err != nil {
		return err
	}
	return s.Gateway.PostMessage(ctx, token, conversationID, text)
}
