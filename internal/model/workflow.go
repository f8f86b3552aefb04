package model

import "time"

// Workflow trigger kinds, matching the Slack event names they react to.
const (
	TriggerTeamJoin            = "team_join"
	TriggerMemberJoinedChannel = "member_joined_channel"
)

type Workflow struct {
	ID              string    `db:"id" json:"id"`
	TeamID          string    `db:"team_id" json:"team_id"`
	Name            string    `db:"name" json:"name"`
	Trigger         string    `db:"trigger" json:"trigger"`
	ChannelID       *string   `db:"channel_id" json:"channel_id,omitempty"`
	SenderUserID    *string   `db:"sender_user_id" json:"sender_user_id,omitempty"`
	MessageTemplate string    `db:"message_template" json:"message_template"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// WorkflowSend is the dedup ledger: at most one row per (workflow, user),
// written only after a confirmed successful send.
type WorkflowSend struct {
	WorkflowID string    `db:"workflow_id" json:"workflow_id"`
	TeamID     string    `db:"team_id" json:"team_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	SentAt     time.Time `db:"sent_at" json:"sent_at"`
}
