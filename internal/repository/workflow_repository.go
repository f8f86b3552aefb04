package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofrs/uuid"

	appErrors "github.com/teamreach/outreach-backend/internal/errors"
	"github.com/teamreach/outreach-backend/internal/model"
)

type WorkflowRepositoryInterface interface {
	Create(ctx context.Context, w *model.Workflow) error
	Update(ctx context.Context, w *model.Workflow) error
	GetByID(ctx context.Context, teamID, id string) (*model.Workflow, error)
	ListByTeam(ctx context.Context, teamID string) ([]*model.Workflow, error)
	ListActive(ctx context.Context, teamID, trigger string) ([]*model.Workflow, error)
	HasSend(ctx context.Context, workflowID, userID string) (bool, error)
	RecordSend(ctx context.Context, workflowID, teamID, userID string) error
	ListSentUserIDs(ctx context.Context, workflowID string) (map[string]bool, error)
}

type WorkflowRepository struct {
	DB *sql.DB
}

func (r *WorkflowRepository) Create(ctx context.Context, w *model.Workflow) error {
	w.ID = uuid.Must(uuid.NewV4()).String()
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO dm_workflows (id, team_id, name, trigger, channel_id, sender_user_id, message_template, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, w.ID, w.TeamID, w.Name, w.Trigger, w.ChannelID, w.SenderUserID, w.MessageTemplate, w.IsActive, w.CreatedAt, w.UpdatedAt)
	return err
}

func (r *WorkflowRepository) Update(ctx context.Context, w *model.Workflow) error {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE dm_workflows
        SET name=$1, trigger=$2, channel_id=$3, sender_user_id=$4, message_template=$5, is_active=$6, updated_at=NOW()
        WHERE id=$7 AND team_id=$8
    `, w.Name, w.Trigger, w.ChannelID, w.SenderUserID, w.MessageTemplate, w.IsActive, w.ID, w.TeamID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErrors.NewWorkflowNotFound(w.ID)
	}
	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, teamID, id string) (*model.Workflow, error) {
	query := workflowSelect + ` WHERE id=$1 AND team_id=$2`
	var w model.Workflow
	err := r.DB.QueryRowContext(ctx, query, id, teamID).Scan(workflowFields(&w)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewWorkflowNotFound(id)
		}
		return nil, err
	}
	return &w, nil
}

func (r *WorkflowRepository) ListByTeam(ctx context.Context, teamID string) ([]*model.Workflow, error) {
	rows, err := r.DB.QueryContext(ctx, workflowSelect+` WHERE team_id=$1 ORDER BY created_at DESC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkflows(rows)
}

func (r *WorkflowRepository) ListActive(ctx context.Context, teamID, trigger string) ([]*model.Workflow, error) {
	rows, err := r.DB.QueryContext(ctx, workflowSelect+` WHERE team_id=$1 AND trigger=$2 AND is_active=true`, teamID, trigger)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkflows(rows)
}

func (r *WorkflowRepository) HasSend(ctx context.Context, workflowID, userID string) (bool, error) {
	var tmp int
	err := r.DB.QueryRowContext(ctx, `
        SELECT 1 FROM workflow_sends WHERE workflow_id=$1 AND user_id=$2 LIMIT 1
    `, workflowID, userID).Scan(&tmp)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RecordSend writes the ledger entry. ON CONFLICT DO NOTHING keeps the
// (workflow, user) pair unique even under concurrent event deliveries.
func (r *WorkflowRepository) RecordSend(ctx context.Context, workflowID, teamID, userID string) error {
	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO workflow_sends (workflow_id, team_id, user_id, sent_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (workflow_id, user_id) DO NOTHING
    `, workflowID, teamID, userID)
	return err
}

func (r *WorkflowRepository) ListSentUserIDs(ctx context.Context, workflowID string) (map[string]bool, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT user_id FROM workflow_sends WHERE workflow_id=$1
    `, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sent := map[string]bool{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		sent[userID] = true
	}
	return sent, rows.Err()
}

const workflowSelect = `
        SELECT id, team_id, name, trigger, channel_id, sender_user_id, message_template, is_active, created_at, updated_at
        FROM dm_workflows`

func workflowFields(w *model.Workflow) []interface{} {
	return []interface{}{
		&w.ID, &w.TeamID, &w.Name, &w.Trigger, &w.ChannelID, &w.SenderUserID,
		&w.MessageTemplate, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
	}
}

func scanWorkflows(rows *sql.Rows) ([]*model.Workflow, error) {
	workflows := []*model.Workflow{}
	for rows.Next() {
		w := &model.Workflow{}
		if err := rows.Scan(workflowFields(w)...); err != nil {
			return nil, err
		}
		workflows = append(workflows, w)
	}
	return workflows, rows.Err()
}

var _ WorkflowRepositoryInterface = (*WorkflowRepository)(nil)
