// Package history provides SQLite-based persistence for chat messages.
// If opening the DB or executing queries fails, the store falls back to
// in-memory storage so a broken disk never blocks the conversation.
package history

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/conciergebot/concierge/internal/logger"
)

// Store persists conversation messages keyed by session ID.
type Store struct {
	mu       sync.Mutex
	messages []Message // in-memory fallback

	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at dbPath. A store is
// always returned; on failure it operates purely in memory.
func NewStore(dbPath string) *Store {
	s := &Store{}
	if dbPath == "" {
		dbPath = "history.db"
	}
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		logger.L.Warn("sqlite open failed; using in-memory history", "error", err)
		return s
	}
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT,
        role TEXT,
        content TEXT,
        created_at DATETIME
    );`); err != nil {
		logger.L.Warn("sqlite table creation failed; using in-memory history", "error", err)
		db.Close()
		return s
	}
	s.db = db
	logger.L.Info("sqlite history DB initialized", "path", dbPath)
	return s
}

// Append persists a message for a session. The in-memory copy is always kept
// so reads survive a failing database.
func (s *Store) Append(sessionID, role, content string) {
	msg := Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if s.db != nil {
		_, err := s.db.Exec(`INSERT INTO messages (session_id, role, content, created_at) VALUES (?,?,?,?);`,
			msg.SessionID, msg.Role, msg.Content, msg.CreatedAt)
		if err != nil {
			logger.L.Error("failed to store message in sqlite; falling back to memory", "error", err)
		}
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

// List returns all messages of a session in chronological order.
func (s *Store) List(sessionID string) []Message {
	if s.db != nil {
		rows, err := s.db.Query(`SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id ASC;`, sessionID)
		if err == nil {
			defer rows.Close()
			var out []Message
			for rows.Next() {
				var m Message
				if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
					logger.L.Error("failed to scan history row; skipping it", "error", err)
					continue
				}
				out = append(out, m)
			}
			if err := rows.Err(); err != nil {
				logger.L.Error("history row iteration failed", "error", err)
			}
			return out
		}
		logger.L.Warn("sqlite query failed; reading in-memory history", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out
}

// Clear removes all messages of a session. Used by the REPL clear command.
func (s *Store) Clear(sessionID string) {
	if s.db != nil {
		if _, err := s.db.Exec(`DELETE FROM messages WHERE session_id = ?;`, sessionID); err != nil {
			logger.L.Error("failed to clear session in sqlite", "error", err)
		}
	}

	s.mu.Lock()
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.SessionID != sessionID {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	s.mu.Unlock()
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
