package transcript

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pavelanni/chatlab/internal/model"
	"github.com/pavelanni/chatlab/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func buildFixture(t *testing.T, s *store.Store) int64 {
	t.Helper()
	userID, err := s.CreateUser(model.User{
		Username: "alice", DisplayName: "Alice Smith",
		Role: model.UserRoleStudent, Active: true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	activityID, err := s.InsertActivity(model.Activity{
		CourseID: 1, Name: "A", MaxAttempts: 1, MaxInteractions: 5,
	})
	if err != nil {
		t.Fatalf("InsertActivity: %v", err)
	}
	convID, err := s.CreateConversation(activityID, userID)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	for _, pair := range [][2]string{
		{"What is recursion?", "A function calling itself."},
		{"Show an example.", "Factorial is the classic one."},
	} {
		if _, err := s.AddExchange(model.Exchange{
			ConversationID: convID, Request: pair[0], Response: pair[1],
		}); err != nil {
			t.Fatalf("AddExchange: %v", err)
		}
	}
	return convID
}

func TestBuild(t *testing.T) {
	s := newTestStore(t)
	convID := buildFixture(t, s)

	tr, err := NewExporter(s).Build(convID)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tr == nil {
		t.Fatal("expected a transcript")
	}
	if tr.OwnerName != "Alice Smith" {
		t.Errorf("unexpected owner %q", tr.OwnerName)
	}
	if len(tr.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(tr.Turns))
	}
	if tr.Turns[0].Request != "What is recursion?" {
		t.Errorf("turns out of order: %q first", tr.Turns[0].Request)
	}
	if tr.StartedAt.IsZero() {
		t.Error("StartedAt should come from the first exchange")
	}
	if !tr.StartedAt.Equal(tr.Turns[0].At) {
		t.Errorf("StartedAt=%v should match first turn %v", tr.StartedAt, tr.Turns[0].At)
	}
}

func TestBuildMissingConversation(t *testing.T) {
	s := newTestStore(t)

	tr, err := NewExporter(s).Build(42)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tr != nil {
		t.Errorf("expected nil for a missing conversation, got %+v", tr)
	}
}

func TestCanView(t *testing.T) {
	conv := model.Conversation{ID: 1, UserID: 10}
	owner := &model.User{ID: 10, Role: model.UserRoleStudent}
	student := &model.User{ID: 11, Role: model.UserRoleStudent}
	instructor := &model.User{ID: 12, Role: model.UserRoleInstructor}
	admin := &model.User{ID: 13, Role: model.UserRoleAdmin}

	tests := []struct {
		name   string
		public bool
		shared bool
		viewer *model.User
		want   bool
	}{
		{"nil viewer", true, true, nil, false},
		{"owner private", false, false, owner, true},
		{"student private", false, false, student, false},
		{"student public", true, false, student, true},
		{"instructor private", false, false, instructor, false},
		{"instructor shared", false, true, instructor, true},
		{"admin shared", false, true, admin, true},
		{"student shared", false, true, student, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := conv
			c.Public = tt.public
			c.Shared = tt.shared
			if got := CanView(c, tt.viewer); got != tt.want {
				t.Errorf("CanView() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextRenderer(t *testing.T) {
	s := newTestStore(t)
	convID := buildFixture(t, s)
	tr, err := NewExporter(s).Build(convID)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	out, err := TextRenderer{}.Render(*tr)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	text := string(out)
	if !strings.HasPrefix(text, "Alice Smith\n") {
		t.Errorf("output should start with the owner name:\n%s", text)
	}
	for _, want := range []string{
		"[1] > What is recursion?",
		"A function calling itself.",
		"[2] > Show an example.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Index(text, "[1]") > strings.Index(text, "[2]") {
		t.Error("turns rendered out of order")
	}
}

func TestPDFRenderer(t *testing.T) {
	s := newTestStore(t)
	convID := buildFixture(t, s)
	tr, err := NewExporter(s).Build(convID)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	r := PDFRenderer{}
	if got := r.ContentType(); got != "application/pdf" {
		t.Errorf("ContentType() = %q", got)
	}
	out, err := r.Render(*tr)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output does not look like a PDF: %q", out[:min(16, len(out))])
	}
}
