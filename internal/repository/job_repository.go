package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/lib/pq"

	appErrors "github.com/teamreach/outreach-backend/internal/errors"
	"github.com/teamreach/outreach-backend/internal/model"
)

// claimLease is how long a claimed recipient stays invisible to other
// passes. A pass interrupted mid-batch leaves its claims to expire, after
// which the recipients are claimable again.
const claimLease = 10 * time.Minute

type JobRepositoryInterface interface {
	CreateJobWithRecipients(ctx context.Context, job *model.DMJob, userIDs []string) error
	GetByID(ctx context.Context, id string) (*model.DMJob, error)
	ListPending(ctx context.Context, teamID string, limit int) ([]*model.DMJob, error)
	ClaimRecipientBatch(ctx context.Context, jobID string, limit int) ([]*model.DMJobRecipient, error)
	ResolveRecipient(ctx context.Context, recipientID, status, errText string) error
	MarkJobStatus(ctx context.Context, jobID, status string) error
	RecipientStats(ctx context.Context, jobID string) (map[string]int, error)
}

type JobRepository struct {
	DB *sql.DB
}

// CreateJobWithRecipients inserts the job row plus one queued recipient
// row per user id in a single transaction. No recipients is valid; such a
// job is marked done by the first dispatcher pass that touches it.
func (r *JobRepository) CreateJobWithRecipients(ctx context.Context, job *model.DMJob, userIDs []string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	job.ID = uuid.Must(uuid.NewV4()).String()
	job.Status = model.JobStatusQueued
	job.CreatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO dm_jobs (id, team_id, created_by, sender_user_id, message_template, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, job.ID, job.TeamID, job.CreatedBy, job.SenderUserID, job.MessageTemplate, job.Status, job.CreatedAt)
	if err != nil {
		return err
	}

	if len(userIDs) > 0 {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("dm_job_recipients", "id", "job_id", "user_id", "status"))
		if err != nil {
			return err
		}
		for _, userID := range userIDs {
			if _, err := stmt.ExecContext(ctx, uuid.Must(uuid.NewV4()).String(), job.ID, userID, model.RecipientStatusQueued); err != nil {
				stmt.Close()
				return err
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return err
		}
		if err := stmt.Close(); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*model.DMJob, error) {
	query := `
        SELECT id, team_id, created_by, sender_user_id, message_template, status, created_at
        FROM dm_jobs WHERE id=$1
    `
	var j model.DMJob
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&j.ID, &j.TeamID, &j.CreatedBy, &j.SenderUserID, &j.MessageTemplate, &j.Status, &j.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewJobNotFound(id)
		}
		return nil, err
	}
	return &j, nil
}

// ListPending returns jobs still holding work, oldest first so earlier
// jobs drain before later ones.
func (r *JobRepository) ListPending(ctx context.Context, teamID string, limit int) ([]*model.DMJob, error) {
	query := `
        SELECT id, team_id, created_by, sender_user_id, message_template, status, created_at
        FROM dm_jobs
        WHERE status IN ($1, $2)
    `
	args := []interface{}{model.JobStatusQueued, model.JobStatusRunning}
	if teamID != "" {
		query += " AND team_id=$3 ORDER BY created_at ASC LIMIT $4"
		args = append(args, teamID, limit)
	} else {
		query += " ORDER BY created_at ASC LIMIT $3"
		args = append(args, limit)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*model.DMJob{}
	for rows.Next() {
		j := &model.DMJob{}
		if err := rows.Scan(&j.ID, &j.TeamID, &j.CreatedBy, &j.SenderUserID, &j.MessageTemplate, &j.Status, &j.CreatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ClaimRecipientBatch atomically leases up to limit queued recipients of
// the job. The claim-and-mark runs as one statement so two concurrent
// passes can never lease the same recipient; SKIP LOCKED keeps passes
// from blocking each other.
func (r *JobRepository) ClaimRecipientBatch(ctx context.Context, jobID string, limit int) ([]*model.DMJobRecipient, error) {
	query := `
        UPDATE dm_job_recipients
        SET claimed_at = NOW()
        WHERE id IN (
            SELECT id FROM dm_job_recipients
            WHERE job_id = $1
              AND status = $2
              AND (claimed_at IS NULL OR claimed_at < NOW() - $3 * INTERVAL '1 second')
            ORDER BY id
            LIMIT $4
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id, job_id, user_id, status
    `
	rows, err := r.DB.QueryContext(ctx, query, jobID, model.RecipientStatusQueued, int(claimLease.Seconds()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []*model.DMJobRecipient{}
	for rows.Next() {
		rec := &model.DMJobRecipient{}
		if err := rows.Scan(&rec.ID, &rec.JobID, &rec.UserID, &rec.Status); err != nil {
			return nil, err
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

// ResolveRecipient moves one recipient to its terminal state. The WHERE
// clause only matches queued rows, so a second resolve of the same
// recipient is reported instead of silently overwriting the outcome.
func (r *JobRepository) ResolveRecipient(ctx context.Context, recipientID, status, errText string) error {
	if status != model.RecipientStatusSent && status != model.RecipientStatusFailed {
		return fmt.Errorf("invalid terminal recipient status %q", status)
	}

	var res sql.Result
	var err error
	if status == model.RecipientStatusSent {
		res, err = r.DB.ExecContext(ctx, `
            UPDATE dm_job_recipients
            SET status=$1, sent_at=NOW(), error=''
            WHERE id=$2 AND status=$3
        `, status, recipientID, model.RecipientStatusQueued)
	} else {
		res, err = r.DB.ExecContext(ctx, `
            UPDATE dm_job_recipients
            SET status=$1, error=$2
            WHERE id=$3 AND status=$4
        `, status, errText, recipientID, model.RecipientStatusQueued)
	}
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("recipient %s already resolved", recipientID)
	}
	return nil
}

// MarkJobStatus advances the job state machine. Regressions are filtered
// out in SQL; marking the current status again is a no-op.
func (r *JobRepository) MarkJobStatus(ctx context.Context, jobID, status string) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE dm_jobs SET status=$1
        WHERE id=$2
          AND (status = $1
               OR (status = $3 AND $1 IN ($4, $5))
               OR (status = $4 AND $1 = $5))
    `, status, jobID, model.JobStatusQueued, model.JobStatusRunning, model.JobStatusDone)
	return err
}

func (r *JobRepository) RecipientStats(ctx context.Context, jobID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT status, COUNT(*) FROM dm_job_recipients WHERE job_id=$1 GROUP BY status
    `, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		model.RecipientStatusQueued: 0,
		model.RecipientStatusSent:   0,
		model.RecipientStatusFailed: 0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

var _ JobRepositoryInterface = (*JobRepository)(nil)
