package model

import "time"

// Event kinds after webhook normalization. Join events drive workflows;
// activity events only touch the timeline.
const (
	EventTeamJoin            = TriggerTeamJoin
	EventMemberJoinedChannel = TriggerMemberJoinedChannel
	EventActivity            = "activity"
)

// Event is a verified, normalized inbound workspace event.
type Event struct {
	TeamID    string `json:"team_id"`
	Kind      string `json:"kind"`
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id,omitempty"`
}

// ActivityEntry is one row of the recency timeline, workspace-wide or
// channel-scoped depending on ChannelID.
type ActivityEntry struct {
	TeamID         string    `db:"team_id" json:"team_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	ChannelID      string    `db:"channel_id" json:"channel_id,omitempty"`
	LastActivityAt time.Time `db:"last_activity_at" json:"last_activity_at"`
}
