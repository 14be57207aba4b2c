package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/chatlab/internal/model"
)

// ExportAllActivities builds export-ready results for every activity and
// every conversation in the database.
func (s *Store) ExportAllActivities() (*model.CourseExport, error) {
	activities, err := s.ListActivities()
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	export := &model.CourseExport{ExportedAt: time.Now()}
	for _, a := range activities {
		export.CourseID = a.CourseID

		conversations, err := s.queryConversations(
			`SELECT `+conversationColumns+` FROM conversations WHERE activity_id = ? ORDER BY id`, a.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("list conversations for activity %d: %w", a.ID, err)
		}

		result := model.ActivityResult{
			Name:            a.Name,
			Channel:         a.Channel,
			MaxAttempts:     a.MaxAttempts,
			MaxInteractions: a.MaxInteractions,
		}

		for _, c := range conversations {
			user, err := s.GetUserByID(c.UserID)
			if err != nil {
				return nil, fmt.Errorf("get user %d: %w", c.UserID, err)
			}
			var username, displayName string
			if user != nil {
				username = user.Username
				displayName = user.DisplayName
			}

			exchanges, err := s.GetExchanges(c.ID)
			if err != nil {
				return nil, fmt.Errorf("get exchanges for conversation %d: %w", c.ID, err)
			}
			var turns []model.TurnEntry
			for _, e := range exchanges {
				turns = append(turns, model.TurnEntry{
					Request:  e.Request,
					Response: e.Response,
					At:       e.CreatedAt,
				})
			}

			result.Conversations = append(result.Conversations, model.ConversationResult{
				ConversationID: c.ID,
				ExternalID:     username,
				DisplayName:    displayName,
				Finished:       c.Finished,
				Shared:         c.Shared,
				Public:         c.Public,
				Comment:        c.Comment,
				UpdatedAt:      c.UpdatedAt,
				Turns:          turns,
			})
		}

		export.Activities = append(export.Activities, result)
	}

	return export, nil
}
