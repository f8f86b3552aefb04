package model

import "time"

type User struct {
	TeamID      string     `db:"team_id" json:"team_id"`
	UserID      string     `db:"user_id" json:"user_id"`
	DisplayName string     `db:"display_name" json:"display_name"`
	RealName    string     `db:"real_name" json:"real_name"`
	IsBot       bool       `db:"is_bot" json:"is_bot"`
	Deleted     bool       `db:"deleted" json:"deleted"`
	CreatedAt   *time.Time `db:"user_created_at" json:"user_created_at,omitempty"`
}

// Addressable reports whether the user may receive outreach messages.
func (u *User) Addressable() bool {
	return !u.IsBot && !u.Deleted
}
