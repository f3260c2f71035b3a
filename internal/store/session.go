package store

import (
	"database/sql"
	"fmt"
	"time"

	"graft/internal/logging"

	"github.com/google/uuid"
)

// Message is a single turn in a conversation.
//
// The JSON tags match the legacy per-session JSON files so migration can
// unmarshal them directly.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
	Model     string `json:"model_name,omitempty"`
	Tokens    int    `json:"tokens_consumed,omitempty"`
}

// Session is a persisted conversation with its full message history.
type Session struct {
	ID        string    `json:"session_id"`
	Model     string    `json:"model_name"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at,omitempty"`
	Messages  []Message `json:"messages"`
}

// SessionSummary is a listing row without message bodies.
type SessionSummary struct {
	ID           string
	Model        string
	CreatedAt    string
	UpdatedAt    string
	MessageCount int
}

// NewSession creates an empty session for the given model.
func NewSession(model string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Model:     model,
		CreatedAt: nowUTC(),
	}
}

// AddMessage appends a turn to the session.
func (sess *Session) AddMessage(msg Message) {
	if msg.Timestamp == "" {
		msg.Timestamp = nowUTC()
	}
	sess.Messages = append(sess.Messages, msg)
}

// Compact shrinks a long history to the first message plus the last four,
// keeping the opening context and the most recent exchanges.
func (sess *Session) Compact() {
	if len(sess.Messages) <= 5 {
		return
	}
	kept := make([]Message, 0, 5)
	kept = append(kept, sess.Messages[0])
	kept = append(kept, sess.Messages[len(sess.Messages)-4:]...)
	sess.Messages = kept
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Save persists the session, replacing any previous message rows.
func (s *Store) Save(sess *Session) error {
	timer := logging.StartTimer(logging.CategoryStore, "Save")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess.UpdatedAt = nowUTC()
	logging.StoreDebug("Saving session: id=%s messages=%d", sess.ID, len(sess.Messages))

	if err := s.insertSession(sess); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to save session %s: %v", sess.ID, err)
		return err
	}
	return nil
}

// insertSession writes the session row and re-inserts its messages in one
// transaction. Callers hold the write lock.
func (s *Store) insertSession(sess *Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	_, err = tx.Exec(
		`INSERT OR REPLACE INTO sessions (id, model, created_at, updated_at)
		 VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Model, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM messages WHERE session_id = ?", sess.ID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear old messages: %w", err)
	}

	for pos, msg := range sess.Messages {
		_, err := tx.Exec(
			`INSERT INTO messages (session_id, position, role, content, created_at, model, tokens)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, pos, msg.Role, msg.Content, msg.Timestamp, msg.Model, msg.Tokens,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert message %d: %w", pos, err)
		}
	}

	return tx.Commit()
}

// Load retrieves a session by exact id or unique-enough id prefix.
// Ambiguous prefixes resolve to the most recently updated match.
func (s *Store) Load(id string) (*Session, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Load")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	logging.StoreDebug("Loading session: id=%s", id)

	row := s.db.QueryRow(
		"SELECT id, model, created_at, updated_at FROM sessions WHERE id = ?", id)
	sess, err := s.scanSession(row)
	if err == nil {
		return sess, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	row = s.db.QueryRow(
		`SELECT id, model, created_at, updated_at FROM sessions
		 WHERE id LIKE ? || '%'
		 ORDER BY updated_at DESC
		 LIMIT 1`, id)
	sess, err = s.scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// scanSession reads a sessions row and attaches its messages in order.
func (s *Store) scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	if err := row.Scan(&sess.ID, &sess.Model, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT role, content, created_at, model, tokens
		 FROM messages
		 WHERE session_id = ?
		 ORDER BY position`, sess.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Timestamp, &msg.Model, &msg.Tokens); err != nil {
			continue
		}
		sess.Messages = append(sess.Messages, msg)
	}

	logging.StoreDebug("Loaded session %s with %d messages", sess.ID, len(sess.Messages))
	return &sess, nil
}

// List returns session summaries, most recently updated first.
func (s *Store) List(limit int) ([]SessionSummary, error) {
	timer := logging.StartTimer(logging.CategoryStore, "List")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT s.id, s.model, s.created_at, s.updated_at, COUNT(m.id)
		 FROM sessions s LEFT JOIN messages m ON s.id = m.session_id
		 GROUP BY s.id
		 ORDER BY s.updated_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to list sessions: %v", err)
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var summaries []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.Model, &sum.CreatedAt, &sum.UpdatedAt, &sum.MessageCount); err != nil {
			continue
		}
		summaries = append(summaries, sum)
	}

	logging.StoreDebug("Listed %d sessions (limit=%d)", len(summaries), limit)
	return summaries, nil
}

// Delete removes a session and its messages. Returns ErrNotFound when the
// exact id does not exist.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logging.StoreDebug("Deleting session: id=%s", id)

	if _, err := s.db.Exec("DELETE FROM messages WHERE session_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	res, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Clear removes every session. Returns the number deleted.
func (s *Store) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM messages"); err != nil {
		return 0, fmt.Errorf("failed to clear messages: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM sessions"); err != nil {
		return 0, fmt.Errorf("failed to clear sessions: %w", err)
	}

	logging.Store("Cleared %d sessions", count)
	return count, nil
}

// Prune deletes the oldest sessions beyond maxKeep. Returns the number
// deleted.
func (s *Store) Prune(maxKeep int) (int, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Prune")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if maxKeep <= 0 {
		return 0, nil
	}

	res, err := s.db.Exec(
		`DELETE FROM sessions WHERE id IN (
			SELECT id FROM sessions ORDER BY updated_at DESC LIMIT -1 OFFSET ?
		 )`, maxKeep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned sessions: %w", err)
	}

	if _, err := s.db.Exec(
		"DELETE FROM messages WHERE session_id NOT IN (SELECT id FROM sessions)"); err != nil {
		logging.Get(logging.CategoryStore).Warn("Failed to drop orphaned messages: %v", err)
	}

	if n > 0 {
		logging.Store("Pruned %d sessions beyond keep limit %d", n, maxKeep)
	}
	return int(n), nil
}
