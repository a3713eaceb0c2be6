package sqlite

import (
	"database/sql"
	"fmt"

	"recicleai/internal/model"
)

// SessionRepository implements repository.SessionRepository for SQLite.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Insert adds a new session record.
func (r *SessionRepository) Insert(session *model.Session) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO sessions (id, started_at, frame_source, serial_port, connected)
		VALUES (?, ?, ?, ?, ?)
	`, session.ID, session.StartedAt, session.FrameSource, session.SerialPort, session.Connected)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetByID returns nil when the session does not exist.
func (r *SessionRepository) GetByID(id string) (*model.Session, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var s model.Session
	err := r.db.Conn().QueryRow(`
		SELECT id, started_at, frame_source, serial_port, connected
		FROM sessions WHERE id = ?
	`, id).Scan(&s.ID, &s.StartedAt, &s.FrameSource, &s.SerialPort, &s.Connected)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// Recent returns the newest sessions first.
func (r *SessionRepository) Recent(limit int) ([]model.Session, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, started_at, frame_source, serial_port, connected
		FROM sessions ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.FrameSource, &s.SerialPort, &s.Connected); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
