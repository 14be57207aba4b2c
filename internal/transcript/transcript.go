// Package transcript turns a conversation's exchange history into a
// printable document.
package transcript

import (
	"fmt"
	"strings"

	"github.com/pavelanni/chatlab/internal/model"
	"github.com/pavelanni/chatlab/internal/store"
)

// Renderer produces a binary document from a transcript. Inline preview
// and forced download share the same bytes; only the delivery disposition
// differs, and that is the caller's concern.
type Renderer interface {
	Render(t model.Transcript) ([]byte, error)
	ContentType() string
}

// Exporter is a read-only projection over the conversation store.
type Exporter struct {
	store *store.Store
}

// NewExporter creates a transcript exporter.
func NewExporter(s *store.Store) *Exporter {
	return &Exporter{store: s}
}

// Build loads a conversation's exchanges in insertion order and assembles
// the transcript, headed by the owner's display name and the first
// exchange's timestamp. Returns nil when the conversation does not exist.
func (e *Exporter) Build(conversationID int64) (*model.Transcript, error) {
	conv, err := e.store.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, nil
	}

	owner, err := e.store.GetUserByID(conv.UserID)
	if err != nil {
		return nil, err
	}
	ownerName := ""
	if owner != nil {
		ownerName = owner.DisplayName
	}

	exchanges, err := e.store.GetExchanges(conversationID)
	if err != nil {
		return nil, err
	}

	t := &model.Transcript{
		ConversationID: conversationID,
		OwnerName:      ownerName,
	}
	for i, ex := range exchanges {
		if i == 0 {
			t.StartedAt = ex.CreatedAt
		}
		t.Turns = append(t.Turns, model.TurnEntry{
			Request:  ex.Request,
			Response: ex.Response,
			At:       ex.CreatedAt,
		})
	}
	return t, nil
}

// CanView reports whether a viewer may read a conversation's transcript:
// the owner, anyone when public, instructors when shared.
func CanView(c model.Conversation, viewer *model.User) bool {
	if viewer == nil {
		return false
	}
	if c.UserID == viewer.ID {
		return true
	}
	if c.Public {
		return true
	}
	return viewer.Role.IsInstructor() && c.Shared
}

// TextRenderer renders a transcript as plain UTF-8 text.
type TextRenderer struct{}

func (TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }

func (TextRenderer) Render(t model.Transcript) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(t.OwnerName + "\n")
	if !t.StartedAt.IsZero() {
		sb.WriteString(t.StartedAt.Format("2006-01-02 15:04") + "\n")
	}
	sb.WriteString("\n")
	for i, turn := range t.Turns {
		fmt.Fprintf(&sb, "[%d] > %s\n", i+1, turn.Request)
		sb.WriteString(turn.Response + "\n\n")
	}
	return []byte(sb.String()), nil
}
