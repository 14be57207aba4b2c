package model

import "time"

// CourseExport is the top-level JSON structure for conversation export.
type CourseExport struct {
	CourseID   int64            `json:"course_id"`
	ExportedAt time.Time        `json:"exported_at"`
	Activities []ActivityResult `json:"activities"`
}

// ActivityResult holds one activity's conversations for export.
type ActivityResult struct {
	Name            string               `json:"name"`
	Channel         string               `json:"channel"`
	MaxAttempts     int                  `json:"max_attempts"`
	MaxInteractions int                  `json:"max_interactions"`
	Conversations   []ConversationResult `json:"conversations"`
}

// ConversationResult holds per-conversation data for export.
type ConversationResult struct {
	ConversationID int64       `json:"conversation_id"`
	ExternalID     string      `json:"external_id"`
	DisplayName    string      `json:"display_name"`
	Finished       bool        `json:"finished"`
	Shared         bool        `json:"shared"`
	Public         bool        `json:"public"`
	Comment        string      `json:"comment,omitempty"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Turns          []TurnEntry `json:"turns"`
}

// TurnEntry is a single request/response pair in an exported conversation.
type TurnEntry struct {
	Request  string    `json:"request"`
	Response string    `json:"response"`
	At       time.Time `json:"at"`
}

// Transcript is the printable projection of one conversation.
type Transcript struct {
	ConversationID int64
	OwnerName      string
	StartedAt      time.Time
	Turns          []TurnEntry
}
