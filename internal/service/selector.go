package service

import (
	"context"
	"fmt"
	"time"

	"github.com/teamreach/outreach-backend/internal/model"
	"github.com/teamreach/outreach-backend/internal/repository"
)

const (
	defaultLookbackDays = 90
	maxAdHocRecipients  = 100
)

// SelectInput scopes a recipient selection: workspace-wide or
// channel-scoped, bounded by a lookback window and a hard count limit.
type SelectInput struct {
	TeamID    string
	ChannelID string
	Days      int
	Limit     int
}

// RecipientSelector computes a bounded, ordered list of addressable
// users from the activity timeline.
type RecipientSelector struct {
	Activity repository.ActivityRepositoryInterface
	Users    repository.UserRepositoryInterface
}

// SelectActive returns user ids active within the window, most recent
// first, deduplicated, with bots and deleted accounts excluded. Any
// store error aborts the selection; callers must not create a job from a
// partial result.
func (s *RecipientSelector) SelectActive(ctx context.Context, in SelectInput) ([]string, error) {
	days := in.Days
	if days <= 0 {
		days = defaultLookbackDays
	}
	limit := in.Limit
	if limit <= 0 || limit > maxAdHocRecipients {
		limit = maxAdHocRecipients
	}

	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	entries, err := s.Activity.ListActiveSince(ctx, in.TeamID, in.ChannelID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}

	ordered := dedupeUserIDs(entries)
	if len(ordered) == 0 {
		return []string{}, nil
	}

	users, err := s.Users.ListByIDs(ctx, in.TeamID, ordered)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	allowed := map[string]bool{}
	for _, u := range users {
		if u.Addressable() {
			allowed[u.UserID] = true
		}
	}

	recipients := []string{}
	for _, userID := range ordered {
		if allowed[userID] {
			recipients = append(recipients, userID)
		}
	}
	return recipients, nil
}

// dedupeUserIDs keeps the first (most recent) occurrence of each user.
func dedupeUserIDs(entries []*model.ActivityEntry) []string {
	seen := map[string]bool{}
	ordered := []string{}
	for _, e := range entries {
		if seen[e.UserID] {
			continue
		}
		seen[e.UserID] = true
		ordered = append(ordered, e.UserID)
	}
	return ordered
}
