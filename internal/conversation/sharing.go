package conversation

import (
	"errors"

	"github.com/pavelanni/chatlab/internal/model"
	"github.com/pavelanni/chatlab/internal/store"
)

// Sharing manages the share slot and public visibility of conversations.
type Sharing struct {
	store *store.Store
}

// NewSharing creates a sharing manager.
func NewSharing(s *store.Store) *Sharing {
	return &Sharing{store: s}
}

// Share marks a conversation shared with the instructor. The single share
// slot per (activity, user) is checked before ownership, so repeated calls
// while a share exists keep failing with ErrAlreadyShared. A missing or
// foreign conversation is a silent no-op (returns false, nil).
func (sh *Sharing) Share(conversationID, userID, activityID int64) (bool, error) {
	shared, err := sh.store.ShareConversation(conversationID, userID, activityID)
	if errors.Is(err, store.ErrAlreadyShared) {
		return false, ErrAlreadyShared
	}
	return shared, err
}

// TogglePublic flips public visibility of a conversation the caller owns.
// Returns the new value and ok=false when the conversation is missing or
// not owned.
func (sh *Sharing) TogglePublic(conversationID, userID int64) (public bool, ok bool, err error) {
	return sh.store.ToggleConversationPublic(conversationID, userID)
}

// RevokeShare clears the shared flag on a conversation. Caller identity is
// not checked here: revocation is an instructor action gated by the
// authorization layer. Idempotent.
func (sh *Sharing) RevokeShare(conversationID int64) error {
	return sh.store.RevokeShare(conversationID)
}

// Comment returns the instructor comment on a conversation.
func (sh *Sharing) Comment(conversationID int64) (string, error) {
	return sh.store.GetComment(conversationID)
}

// SaveComment replaces the instructor comment on a conversation.
func (sh *Sharing) SaveComment(conversationID int64, comment string) error {
	return sh.store.SaveComment(conversationID, comment)
}

// Visible reports whether a viewer may see a conversation in listings:
// the owner always, any participant when public, instructors when shared.
func Visible(c model.Conversation, viewerID int64, instructor bool) bool {
	if c.UserID == viewerID {
		return true
	}
	if c.Public {
		return true
	}
	return instructor && c.Shared
}
