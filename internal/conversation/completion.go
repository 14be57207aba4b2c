package conversation

import (
	"github.com/pavelanni/chatlab/internal/model"
	"github.com/pavelanni/chatlab/internal/store"
)

// CompletionState carries the two named boolean facts handed to the host's
// completion aggregator.
type CompletionState struct {
	Attempts bool `json:"completionattempts"`
	Share    bool `json:"completionshare"`
}

// Completion derives completion signals from stored state. Both predicates
// are recomputed on demand; nothing is cached.
type Completion struct {
	store *store.Store
}

// NewCompletion creates a completion evaluator.
func NewCompletion(s *store.Store) *Completion {
	return &Completion{store: s}
}

// Attempts reports whether the user has finished enough attempts. False
// whenever the rule is disabled.
func (c *Completion) Attempts(activity model.Activity, userID int64) (bool, error) {
	if !activity.CompletionAttemptsEnabled {
		return false, nil
	}
	finished, err := c.store.CountFinishedConversations(activity.ID, userID)
	if err != nil {
		return false, err
	}
	return finished >= activity.CompletionAttempts, nil
}

// Share reports whether the user has a shared conversation. False whenever
// the rule is disabled.
func (c *Completion) Share(activity model.Activity, userID int64) (bool, error) {
	if !activity.CompletionShareEnabled {
		return false, nil
	}
	shared, err := c.store.SharedConversation(activity.ID, userID)
	if err != nil {
		return false, err
	}
	return shared != nil, nil
}

// Evaluate computes both completion facts for the user.
func (c *Completion) Evaluate(activity model.Activity, userID int64) (CompletionState, error) {
	attempts, err := c.Attempts(activity, userID)
	if err != nil {
		return CompletionState{}, err
	}
	share, err := c.Share(activity, userID)
	if err != nil {
		return CompletionState{}, err
	}
	return CompletionState{Attempts: attempts, Share: share}, nil
}
