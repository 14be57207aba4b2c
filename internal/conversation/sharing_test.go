package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/pavelanni/chatlab/internal/model"
)

func TestShareSlotLifecycle(t *testing.T) {
	// Share, fail on second share, revoke, share another conversation.
	s := newTestStore(t)
	activity := insertActivity(t, s, model.Activity{Name: "A", MaxAttempts: 3, MaxInteractions: 1})
	l := NewLifecycle(s, &fakeProvider{reply: "ok"})
	sh := NewSharing(s)
	const userID = 5

	first, _ := l.SendRequest(context.Background(), activity, userID, "one")
	second, _ := l.SendRequest(context.Background(), activity, userID, "two")

	ok, err := sh.Share(first.ConversationID, userID, activity.ID)
	if err != nil || !ok {
		t.Fatalf("first share: ok=%v err=%v", ok, err)
	}

	// The slot is occupied: sharing the other conversation fails, and so
	// does re-sharing the same one.
	if _, err := sh.Share(second.ConversationID, userID, activity.ID); !errors.Is(err, ErrAlreadyShared) {
		t.Fatalf("second share: expected ErrAlreadyShared, got %v", err)
	}
	if _, err := sh.Share(first.ConversationID, userID, activity.ID); !errors.Is(err, ErrAlreadyShared) {
		t.Fatalf("re-share: expected ErrAlreadyShared, got %v", err)
	}

	if err := sh.RevokeShare(first.ConversationID); err != nil {
		t.Fatalf("RevokeShare: %v", err)
	}
	// Revocation is idempotent.
	if err := sh.RevokeShare(first.ConversationID); err != nil {
		t.Fatalf("second RevokeShare: %v", err)
	}

	ok, err = sh.Share(second.ConversationID, userID, activity.ID)
	if err != nil || !ok {
		t.Fatalf("share after revoke: ok=%v err=%v", ok, err)
	}
}

func TestShareForeignConversationIsNoop(t *testing.T) {
	s := newTestStore(t)
	activity := insertActivity(t, s, model.Activity{Name: "A", MaxAttempts: 1, MaxInteractions: 1})
	l := NewLifecycle(s, &fakeProvider{reply: "ok"})
	sh := NewSharing(s)

	reply, _ := l.SendRequest(context.Background(), activity, 1, "mine")

	// Another user cannot share it, and a bogus ID is equally silent.
	for _, id := range []int64{reply.ConversationID, 9999} {
		ok, err := sh.Share(id, 2, activity.ID)
		if err != nil {
			t.Fatalf("Share(%d): %v", id, err)
		}
		if ok {
			t.Errorf("Share(%d) by non-owner should be a no-op", id)
		}
	}
	conv, _ := s.GetConversation(reply.ConversationID)
	if conv.Shared {
		t.Error("conversation must not be shared by a non-owner")
	}
}

func TestTogglePublic(t *testing.T) {
	s := newTestStore(t)
	activity := insertActivity(t, s, model.Activity{Name: "A", MaxAttempts: 1, MaxInteractions: 1})
	l := NewLifecycle(s, &fakeProvider{reply: "ok"})
	sh := NewSharing(s)

	reply, _ := l.SendRequest(context.Background(), activity, 1, "mine")

	public, ok, err := sh.TogglePublic(reply.ConversationID, 1)
	if err != nil || !ok || !public {
		t.Fatalf("toggle on: public=%v ok=%v err=%v", public, ok, err)
	}
	public, ok, err = sh.TogglePublic(reply.ConversationID, 1)
	if err != nil || !ok || public {
		t.Fatalf("toggle off: public=%v ok=%v err=%v", public, ok, err)
	}

	// Non-owner and missing conversations report ok=false.
	if _, ok, err := sh.TogglePublic(reply.ConversationID, 2); err != nil || ok {
		t.Errorf("foreign toggle: ok=%v err=%v", ok, err)
	}
	if _, ok, err := sh.TogglePublic(9999, 1); err != nil || ok {
		t.Errorf("missing toggle: ok=%v err=%v", ok, err)
	}
}

func TestCommentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	activity := insertActivity(t, s, model.Activity{Name: "A", MaxAttempts: 1, MaxInteractions: 1})
	l := NewLifecycle(s, &fakeProvider{reply: "ok"})
	sh := NewSharing(s)

	reply, _ := l.SendRequest(context.Background(), activity, 1, "mine")

	comment, err := sh.Comment(reply.ConversationID)
	if err != nil {
		t.Fatalf("Comment: %v", err)
	}
	if comment != "" {
		t.Errorf("expected empty comment, got %q", comment)
	}

	if err := sh.SaveComment(reply.ConversationID, "good reasoning"); err != nil {
		t.Fatalf("SaveComment: %v", err)
	}
	comment, _ = sh.Comment(reply.ConversationID)
	if comment != "good reasoning" {
		t.Errorf("unexpected comment %q", comment)
	}

	// Saving replaces, never appends.
	if err := sh.SaveComment(reply.ConversationID, "revised"); err != nil {
		t.Fatalf("SaveComment: %v", err)
	}
	comment, _ = sh.Comment(reply.ConversationID)
	if comment != "revised" {
		t.Errorf("unexpected comment %q", comment)
	}
}

func TestVisible(t *testing.T) {
	conv := model.Conversation{UserID: 1}
	tests := []struct {
		name       string
		public     bool
		shared     bool
		viewerID   int64
		instructor bool
		want       bool
	}{
		{"owner", false, false, 1, false, true},
		{"stranger private", false, false, 2, false, false},
		{"stranger public", true, false, 2, false, true},
		{"instructor private", false, false, 2, true, false},
		{"instructor shared", false, true, 2, true, true},
		{"student shared", false, true, 2, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := conv
			c.Public = tt.public
			c.Shared = tt.shared
			if got := Visible(c, tt.viewerID, tt.instructor); got != tt.want {
				t.Errorf("Visible() = %v, want %v", got, tt.want)
			}
		})
	}
}
