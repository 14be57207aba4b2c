package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/pavelanni/chatlab/internal/llm"
	"github.com/pavelanni/chatlab/internal/model"
	"github.com/pavelanni/chatlab/internal/store"
)

// Reply is the outcome of a successful send request.
type Reply struct {
	ConversationID        int64  `json:"conversation_id"`
	Response              string `json:"response"`
	Finished              bool   `json:"finished"`
	RemainingAttempts     int    `json:"remaining_attempts"`
	RemainingInteractions int    `json:"remaining_interactions"`
}

// Lifecycle opens, continues, and finishes conversations for an activity,
// enforcing the attempt and interaction limits.
type Lifecycle struct {
	store    *store.Store
	provider llm.Provider
	quota    *Quota
}

// NewLifecycle creates a lifecycle manager.
func NewLifecycle(s *store.Store, p llm.Provider) *Lifecycle {
	return &Lifecycle{store: s, provider: p, quota: NewQuota(s)}
}

// SendRequest runs one user message through the state machine: open a new
// attempt if needed and allowed, compose the prompt, call the provider,
// record the exchange, and finish the conversation when the interaction
// limit is reached.
//
// The stored request text is always the raw user text; the system prompt is
// prepended only to the outbound prompt of the first exchange, since the
// channel carries history for later turns.
func (l *Lifecycle) SendRequest(ctx context.Context, activity model.Activity, userID int64, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	current, err := l.store.CurrentConversation(activity.ID, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		remaining, err := l.quota.RemainingAttempts(activity, userID)
		if err != nil {
			return nil, err
		}
		if remaining <= 0 {
			return nil, ErrNoAttemptsLeft
		}
		id, err := l.store.CreateConversation(activity.ID, userID)
		if errors.Is(err, store.ErrConversationOpen) {
			// A concurrent request opened the attempt first; reuse it.
			current, err = l.store.CurrentConversation(activity.ID, userID)
			if err != nil {
				return nil, err
			}
			if current == nil {
				return nil, store.ErrConversationOpen
			}
		} else if err != nil {
			return nil, err
		} else {
			current = &model.Conversation{ID: id, ActivityID: activity.ID, UserID: userID}
		}
	}

	used, err := l.store.CountExchanges(current.ID)
	if err != nil {
		return nil, err
	}
	prompt := text
	if used == 0 {
		prompt = activity.SystemPrompt + "\n" + text
	}

	content, err := l.provider.Generate(ctx, activity.Channel, prompt)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}

	if _, err := l.store.AddExchange(model.Exchange{
		ConversationID: current.ID,
		Channel:        activity.Channel,
		Request:        text,
		Response:       content,
	}); err != nil {
		return nil, err
	}

	remainingInteractions, err := l.quota.RemainingInteractions(activity, userID)
	if err != nil {
		return nil, err
	}
	finished := false
	if remainingInteractions < 1 {
		if err := l.store.FinishConversation(current.ID); err != nil {
			return nil, err
		}
		finished = true
	}

	remainingAttempts, err := l.quota.RemainingAttempts(activity, userID)
	if err != nil {
		return nil, err
	}

	return &Reply{
		ConversationID:        current.ID,
		Response:              content,
		Finished:              finished,
		RemainingAttempts:     remainingAttempts,
		RemainingInteractions: remainingInteractions,
	}, nil
}

// ConfirmFinish marks the user's current conversation finished regardless
// of how many interactions remain. Returns the finished conversation ID and
// whether a conversation was open at all.
func (l *Lifecycle) ConfirmFinish(activity model.Activity, userID int64) (int64, bool, error) {
	current, err := l.store.CurrentConversation(activity.ID, userID)
	if err != nil {
		return 0, false, err
	}
	if current == nil {
		return 0, false, nil
	}
	if err := l.store.FinishConversation(current.ID); err != nil {
		return 0, false, err
	}
	return current.ID, true, nil
}

// State assembles what a student sees for an activity: the current
// conversation and both remaining quotas.
func (l *Lifecycle) State(activity model.Activity, userID int64) (*model.ActivityState, error) {
	current, err := l.store.CurrentConversation(activity.ID, userID)
	if err != nil {
		return nil, err
	}
	attempts, err := l.quota.RemainingAttempts(activity, userID)
	if err != nil {
		return nil, err
	}
	interactions, err := l.quota.RemainingInteractions(activity, userID)
	if err != nil {
		return nil, err
	}
	return &model.ActivityState{
		Activity:              activity,
		Current:               current,
		RemainingAttempts:     attempts,
		RemainingInteractions: interactions,
	}, nil
}
