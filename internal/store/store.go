package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/chatlab/internal/model"

	_ "modernc.org/sqlite"
)

// ErrConversationOpen is returned by CreateConversation when an unfinished
// conversation already exists for the (activity, user) pair. The unique
// index is the authoritative guard; callers re-read the winner.
var ErrConversationOpen = errors.New("unfinished conversation already exists")

// ErrAlreadyShared is returned by ShareConversation when the user already
// holds the share slot for the activity.
var ErrAlreadyShared = errors.New("a conversation is already shared")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course_id INTEGER NOT NULL DEFAULT 1,
		name TEXT NOT NULL,
		system_prompt TEXT NOT NULL DEFAULT '',
		channel TEXT NOT NULL DEFAULT '',
		max_attempts INTEGER NOT NULL DEFAULT 1,
		max_interactions INTEGER NOT NULL DEFAULT 10,
		completion_attempts_enabled INTEGER NOT NULL DEFAULT 0,
		completion_attempts INTEGER NOT NULL DEFAULT 1,
		completion_share_enabled INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		finished INTEGER NOT NULL DEFAULT 0,
		shared INTEGER NOT NULL DEFAULT 0,
		public INTEGER NOT NULL DEFAULT 0,
		comment TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (activity_id) REFERENCES activities(id)
	);

	-- One unfinished conversation per (activity, user).
	CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_current
		ON conversations(activity_id, user_id) WHERE finished = 0;

	-- One shared conversation per (activity, user).
	CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_shared
		ON conversations(activity_id, user_id) WHERE shared = 1;

	CREATE TABLE IF NOT EXISTS exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id INTEGER NOT NULL,
		channel TEXT NOT NULL DEFAULT '',
		request TEXT NOT NULL,
		response TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS app_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertActivity stores an activity configuration.
func (s *Store) InsertActivity(a model.Activity) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO activities (course_id, name, system_prompt, channel, max_attempts, max_interactions,
		 completion_attempts_enabled, completion_attempts, completion_share_enabled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.CourseID, a.Name, a.SystemPrompt, a.Channel, a.MaxAttempts, a.MaxInteractions,
		a.CompletionAttemptsEnabled, a.CompletionAttempts, a.CompletionShareEnabled,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateActivity replaces an activity's configuration (instructor edit).
func (s *Store) UpdateActivity(a model.Activity) error {
	_, err := s.db.Exec(
		`UPDATE activities SET name = ?, system_prompt = ?, channel = ?, max_attempts = ?, max_interactions = ?,
		 completion_attempts_enabled = ?, completion_attempts = ?, completion_share_enabled = ?
		 WHERE id = ?`,
		a.Name, a.SystemPrompt, a.Channel, a.MaxAttempts, a.MaxInteractions,
		a.CompletionAttemptsEnabled, a.CompletionAttempts, a.CompletionShareEnabled, a.ID,
	)
	return err
}

const activityColumns = `id, course_id, name, system_prompt, channel, max_attempts, max_interactions,
	completion_attempts_enabled, completion_attempts, completion_share_enabled`

func scanActivity(row interface{ Scan(...any) error }) (model.Activity, error) {
	var a model.Activity
	err := row.Scan(&a.ID, &a.CourseID, &a.Name, &a.SystemPrompt, &a.Channel, &a.MaxAttempts, &a.MaxInteractions,
		&a.CompletionAttemptsEnabled, &a.CompletionAttempts, &a.CompletionShareEnabled)
	return a, err
}

// GetActivity returns an activity by ID.
func (s *Store) GetActivity(id int64) (model.Activity, error) {
	return scanActivity(s.db.QueryRow(
		`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id,
	))
}

// ListActivities returns all activities.
func (s *Store) ListActivities() ([]model.Activity, error) {
	rows, err := s.db.Query(`SELECT ` + activityColumns + ` FROM activities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var activities []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// ActivityCount returns the number of activities in the database.
func (s *Store) ActivityCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM activities`).Scan(&count)
	return count, err
}

const conversationColumns = `id, activity_id, user_id, finished, shared, public, comment, updated_at`

func scanConversation(row interface{ Scan(...any) error }) (model.Conversation, error) {
	var c model.Conversation
	err := row.Scan(&c.ID, &c.ActivityID, &c.UserID, &c.Finished, &c.Shared, &c.Public, &c.Comment, &c.UpdatedAt)
	return c, err
}

// CreateConversation opens a new attempt for the user. The partial unique
// index on unfinished conversations rejects a second open attempt; that
// case is reported as ErrConversationOpen.
func (s *Store) CreateConversation(activityID, userID int64) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO conversations (activity_id, user_id, finished, shared, public, comment, updated_at)
		 VALUES (?, ?, 0, 0, 0, '', ?)`,
		activityID, userID, time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConversationOpen
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetConversation returns a conversation by ID, or nil if not found.
func (s *Store) GetConversation(id int64) (*model.Conversation, error) {
	c, err := scanConversation(s.db.QueryRow(
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CurrentConversation returns the user's unfinished conversation for the
// activity, or nil if none exists.
func (s *Store) CurrentConversation(activityID, userID int64) (*model.Conversation, error) {
	c, err := scanConversation(s.db.QueryRow(
		`SELECT `+conversationColumns+` FROM conversations WHERE activity_id = ? AND user_id = ? AND finished = 0`,
		activityID, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SharedConversation returns the user's shared conversation for the
// activity, or nil if none exists.
func (s *Store) SharedConversation(activityID, userID int64) (*model.Conversation, error) {
	c, err := scanConversation(s.db.QueryRow(
		`SELECT `+conversationColumns+` FROM conversations WHERE activity_id = ? AND user_id = ? AND shared = 1`,
		activityID, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountConversations returns how many attempts (finished or not) the user
// has made on the activity.
func (s *Store) CountConversations(activityID, userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM conversations WHERE activity_id = ? AND user_id = ?`,
		activityID, userID,
	).Scan(&count)
	return count, err
}

// CountFinishedConversations returns how many finished attempts the user
// has made on the activity.
func (s *Store) CountFinishedConversations(activityID, userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM conversations WHERE activity_id = ? AND user_id = ? AND finished = 1`,
		activityID, userID,
	).Scan(&count)
	return count, err
}

// FinishConversation marks a conversation finished.
func (s *Store) FinishConversation(id int64) error {
	_, err := s.db.Exec(
		`UPDATE conversations SET finished = 1, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	return err
}

// ShareConversation marks the conversation shared, provided the caller owns
// it and no other conversation of theirs is shared for the same activity.
// The NOT EXISTS guard makes the check-and-set a single statement, so two
// concurrent shares cannot both succeed. Returns ErrAlreadyShared when the
// share slot is taken, and false (no error) when the row is missing or not
// owned by the caller.
func (s *Store) ShareConversation(conversationID, userID, activityID int64) (bool, error) {
	shared, err := s.SharedConversation(activityID, userID)
	if err != nil {
		return false, err
	}
	if shared != nil {
		return false, ErrAlreadyShared
	}
	res, err := s.db.Exec(
		`UPDATE conversations SET shared = 1, updated_at = ?
		 WHERE id = ? AND user_id = ? AND activity_id = ?
		 AND NOT EXISTS (
			SELECT 1 FROM conversations WHERE activity_id = ? AND user_id = ? AND shared = 1
		 )`,
		time.Now(), conversationID, userID, activityID, activityID, userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrAlreadyShared
		}
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Either the row is missing/not owned, or a concurrent share won
		// between the precheck and the update. Re-check to tell them apart.
		shared, err := s.SharedConversation(activityID, userID)
		if err != nil {
			return false, err
		}
		if shared != nil {
			return false, ErrAlreadyShared
		}
		return false, nil
	}
	return true, nil
}

// ToggleConversationPublic flips the public flag if the caller owns the
// conversation. Returns the new value and whether anything changed.
func (s *Store) ToggleConversationPublic(conversationID, userID int64) (bool, bool, error) {
	res, err := s.db.Exec(
		`UPDATE conversations SET public = NOT public, updated_at = ? WHERE id = ? AND user_id = ?`,
		time.Now(), conversationID, userID,
	)
	if err != nil {
		return false, false, err
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return false, false, err
	}
	var public bool
	err = s.db.QueryRow(`SELECT public FROM conversations WHERE id = ?`, conversationID).Scan(&public)
	if err != nil {
		return false, false, err
	}
	return public, true, nil
}

// RevokeShare clears the shared flag regardless of owner. Idempotent: an
// already-unshared conversation is a no-op.
func (s *Store) RevokeShare(conversationID int64) error {
	_, err := s.db.Exec(
		`UPDATE conversations SET shared = 0, updated_at = ? WHERE id = ? AND shared = 1`,
		time.Now(), conversationID,
	)
	return err
}

// GetComment returns the instructor comment on a conversation.
func (s *Store) GetComment(conversationID int64) (string, error) {
	var comment string
	err := s.db.QueryRow(`SELECT comment FROM conversations WHERE id = ?`, conversationID).Scan(&comment)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return comment, err
}

// SaveComment replaces the instructor comment on a conversation.
func (s *Store) SaveComment(conversationID int64, comment string) error {
	_, err := s.db.Exec(
		`UPDATE conversations SET comment = ?, updated_at = ? WHERE id = ?`,
		comment, time.Now(), conversationID,
	)
	return err
}

// ListVisibleConversations returns the conversations a viewer may see for
// an activity: their own, public ones, and (for instructors) shared ones.
func (s *Store) ListVisibleConversations(activityID, viewerID int64, instructor bool) ([]model.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE activity_id = ? AND (user_id = ? OR public = 1`
	if instructor {
		query += ` OR shared = 1`
	}
	query += `) ORDER BY id DESC`
	return s.queryConversations(query, activityID, viewerID)
}

func (s *Store) queryConversations(query string, args ...any) ([]model.Conversation, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var conversations []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// AddExchange appends a request/response pair to a conversation.
func (s *Store) AddExchange(e model.Exchange) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO exchanges (conversation_id, channel, request, response, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ConversationID, e.Channel, e.Request, e.Response, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetExchanges returns all exchanges for a conversation in insertion order.
func (s *Store) GetExchanges(conversationID int64) ([]model.Exchange, error) {
	rows, err := s.db.Query(
		`SELECT id, conversation_id, channel, request, response, created_at
		 FROM exchanges WHERE conversation_id = ? ORDER BY id`, conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exchanges []model.Exchange
	for rows.Next() {
		var e model.Exchange
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.Channel, &e.Request, &e.Response, &e.CreatedAt); err != nil {
			return nil, err
		}
		exchanges = append(exchanges, e)
	}
	return exchanges, rows.Err()
}

// CountExchanges returns the number of exchanges in a conversation.
func (s *Store) CountExchanges(conversationID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM exchanges WHERE conversation_id = ?`, conversationID,
	).Scan(&count)
	return count, err
}

// GetConversationView returns a conversation together with its exchanges.
func (s *Store) GetConversationView(conversationID int64) (*model.ConversationView, error) {
	conv, err := s.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, nil
	}
	exchanges, err := s.GetExchanges(conversationID)
	if err != nil {
		return nil, err
	}
	return &model.ConversationView{Conversation: *conv, Exchanges: exchanges}, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
