package model

type Workspace struct {
	TeamID          string  `db:"team_id" json:"team_id"`
	TeamName        string  `db:"team_name" json:"team_name"`
	BotAccessToken  string  `db:"bot_access_token" json:"-"`
	AuthedUserID    *string `db:"authed_user_id" json:"authed_user_id,omitempty"`
	AuthedUserToken string  `db:"authed_user_token" json:"-"`
}

// WorkspaceSender is an extra authorized sender identity for a workspace,
// used when a job or workflow names an explicit sender.
type WorkspaceSender struct {
	TeamID      string `db:"team_id" json:"team_id"`
	UserID      string `db:"user_id" json:"user_id"`
	AccessToken string `db:"access_token" json:"-"`
	DisplayName string `db:"display_name" json:"display_name"`
	RealName    string `db:"real_name" json:"real_name"`
}

type Channel struct {
	TeamID     string `db:"team_id" json:"team_id"`
	ChannelID  string `db:"channel_id" json:"channel_id"`
	Name       string `db:"name" json:"name"`
	IsPrivate  bool   `db:"is_private" json:"is_private"`
	IsArchived bool   `db:"is_archived" json:"is_archived"`
}
