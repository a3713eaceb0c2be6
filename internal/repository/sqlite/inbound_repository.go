package sqlite

import (
	"fmt"

	"recicleai/internal/model"
)

// InboundRepository implements repository.InboundRepository for SQLite.
type InboundRepository struct {
	db *DB
}

// NewInboundRepository creates a new SQLite inbound message repository.
func NewInboundRepository(db *DB) *InboundRepository {
	return &InboundRepository{db: db}
}

// Insert stores one line received from the board.
func (r *InboundRepository) Insert(m *model.InboundMessage) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO inbound_messages (session_id, text, received_at)
		VALUES (?, ?, ?)
	`, m.SessionID, m.Text, m.ReceivedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert inbound message: %w", err)
	}

	return result.LastInsertId()
}

// Recent returns the newest inbound lines first.
func (r *InboundRepository) Recent(limit int) ([]model.InboundMessage, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, session_id, text, received_at
		FROM inbound_messages ORDER BY received_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query inbound messages: %w", err)
	}
	defer rows.Close()

	messages := []model.InboundMessage{}
	for rows.Next() {
		var m model.InboundMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Text, &m.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inbound message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
