// Package conversation implements the attempt and interaction rules for
// AI conversation activities: quota calculation, the attempt lifecycle,
// sharing and publication, and completion evaluation.
package conversation

import (
	"github.com/pavelanni/chatlab/internal/model"
	"github.com/pavelanni/chatlab/internal/store"
)

// Quota computes remaining attempts and interactions from stored counts
// and configured limits. Pure reads, no side effects.
type Quota struct {
	store *store.Store
}

// NewQuota creates a quota calculator backed by the given store.
func NewQuota(s *store.Store) *Quota {
	return &Quota{store: s}
}

// RemainingAttempts returns how many attempts the user has left on the
// activity. All attempts, finished or not, count toward the limit.
func (q *Quota) RemainingAttempts(activity model.Activity, userID int64) (int, error) {
	used, err := q.store.CountConversations(activity.ID, userID)
	if err != nil {
		return 0, err
	}
	return activity.MaxAttempts - used, nil
}

// RemainingInteractions returns how many exchanges the user's current
// conversation has left. With no current conversation the full limit is
// available.
func (q *Quota) RemainingInteractions(activity model.Activity, userID int64) (int, error) {
	current, err := q.store.CurrentConversation(activity.ID, userID)
	if err != nil {
		return 0, err
	}
	if current == nil {
		return activity.MaxInteractions, nil
	}
	used, err := q.store.CountExchanges(current.ID)
	if err != nil {
		return 0, err
	}
	return activity.MaxInteractions - used, nil
}
