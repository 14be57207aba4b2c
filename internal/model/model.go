package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleInstructor is an instructor user role.
	UserRoleInstructor UserRole = "instructor"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// IsInstructor reports whether the role carries instructor capabilities.
func (r UserRole) IsInstructor() bool {
	return r == UserRoleInstructor || r == UserRoleAdmin
}

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Activity is one configured AI conversation activity. Students converse
// with the provider inside the activity's attempt and interaction limits.
type Activity struct {
	ID           int64  `json:"id"`
	CourseID     int64  `json:"course_id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
	// Channel names the provider routing destination for this activity.
	// Empty means the provider's configured default.
	Channel         string `json:"channel"`
	MaxAttempts     int    `json:"max_attempts"`
	MaxInteractions int    `json:"max_interactions"`
	// Completion rules. Each is independent and only evaluated when enabled.
	CompletionAttemptsEnabled bool `json:"completion_attempts_enabled"`
	CompletionAttempts        int  `json:"completion_attempts"`
	CompletionShareEnabled    bool `json:"completion_share_enabled"`
}

// Conversation is one attempt at an activity. At most one unfinished
// conversation and at most one shared conversation may exist per
// (activity, user) pair; both are enforced by the store.
type Conversation struct {
	ID         int64     `json:"id"`
	ActivityID int64     `json:"activity_id"`
	UserID     int64     `json:"user_id"`
	Finished   bool      `json:"finished"`
	Shared     bool      `json:"shared"`
	Public     bool      `json:"public"`
	Comment    string    `json:"comment"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Exchange is one user/bot turn pair within a conversation. Append-only;
// the count of exchanges equals the interactions used by the attempt.
type Exchange struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Channel        string    `json:"channel"`
	Request        string    `json:"request"`
	Response       string    `json:"response"`
	CreatedAt      time.Time `json:"created_at"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	SecureCookies bool // Set Secure flag on cookies (disable for local dev)
}

// ActivityImport is used for loading activities from JSON.
type ActivityImport struct {
	Name                      string `json:"name"`
	SystemPrompt              string `json:"system_prompt"`
	Channel                   string `json:"channel"`
	MaxAttempts               int    `json:"max_attempts"`
	MaxInteractions           int    `json:"max_interactions"`
	CompletionAttemptsEnabled bool   `json:"completion_attempts_enabled"`
	CompletionAttempts        int    `json:"completion_attempts"`
	CompletionShareEnabled    bool   `json:"completion_share_enabled"`
}

// ConversationView combines a conversation with its exchanges for display.
type ConversationView struct {
	Conversation Conversation `json:"conversation"`
	Exchanges    []Exchange   `json:"exchanges"`
}

// ActivityState is what a student sees for an activity: the current
// conversation (if any) and the remaining quotas.
type ActivityState struct {
	Activity              Activity      `json:"activity"`
	Current               *Conversation `json:"current,omitempty"`
	RemainingAttempts     int           `json:"remaining_attempts"`
	RemainingInteractions int           `json:"remaining_interactions"`
}
