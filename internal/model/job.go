package model

import "time"

// Job statuses. A job only ever advances queued -> running -> done.
const (
	JobStatusQueued  = "queued"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
)

// Recipient statuses. queued is the only non-terminal state; a recipient
// transitions exactly once to sent or failed.
const (
	RecipientStatusQueued = "queued"
	RecipientStatusSent   = "sent"
	RecipientStatusFailed = "failed"
)

type DMJob struct {
	ID              string     `db:"id" json:"id"`
	TeamID          string     `db:"team_id" json:"team_id"`
	CreatedBy       *string    `db:"created_by" json:"created_by,omitempty"`
	SenderUserID    *string    `db:"sender_user_id" json:"sender_user_id,omitempty"`
	MessageTemplate string     `db:"message_template" json:"message_template"`
	Status          string     `db:"status" json:"status"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

type DMJobRecipient struct {
	ID        string     `db:"id" json:"id"`
	JobID     string     `db:"job_id" json:"job_id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Status    string     `db:"status" json:"status"`
	ClaimedAt *time.Time `db:"claimed_at" json:"claimed_at,omitempty"`
	SentAt    *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	Error     string     `db:"error" json:"error,omitempty"`
}
