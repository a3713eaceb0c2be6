package sqlite

import (
	"fmt"

	"recicleai/internal/model"
)

// ConfirmationRepository implements repository.ConfirmationRepository for SQLite.
type ConfirmationRepository struct {
	db *DB
}

// NewConfirmationRepository creates a new SQLite confirmation repository.
func NewConfirmationRepository(db *DB) *ConfirmationRepository {
	return &ConfirmationRepository{db: db}
}

// Insert adds a confirmation and returns its ID.
func (r *ConfirmationRepository) Insert(c *model.Confirmation) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO confirmations (session_id, label, confirmed_at, sent, snapshot)
		VALUES (?, ?, ?, ?, ?)
	`, c.SessionID, string(c.Label), c.ConfirmedAt, c.Sent, c.Snapshot)
	if err != nil {
		return 0, fmt.Errorf("failed to insert confirmation: %w", err)
	}

	return result.LastInsertId()
}

// Recent returns the newest confirmations across all sessions.
func (r *ConfirmationRepository) Recent(limit int) ([]model.Confirmation, error) {
	return r.query(`
		SELECT id, session_id, label, confirmed_at, sent, snapshot
		FROM confirmations ORDER BY confirmed_at DESC, id DESC LIMIT ?
	`, limit)
}

// BySession returns the newest confirmations of one session.
func (r *ConfirmationRepository) BySession(sessionID string, limit int) ([]model.Confirmation, error) {
	return r.query(`
		SELECT id, session_id, label, confirmed_at, sent, snapshot
		FROM confirmations WHERE session_id = ?
		ORDER BY confirmed_at DESC, id DESC LIMIT ?
	`, sessionID, limit)
}

// CountByLabel returns how many times each label was confirmed.
func (r *ConfirmationRepository) CountByLabel() (map[model.Label]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT label, COUNT(*) FROM confirmations GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to count labels: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Label]int)
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("failed to scan label count: %w", err)
		}
		counts[model.Label(label)] = n
	}
	return counts, rows.Err()
}

func (r *ConfirmationRepository) query(query string, args ...interface{}) ([]model.Confirmation, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query confirmations: %w", err)
	}
	defer rows.Close()

	confirmations := []model.Confirmation{}
	for rows.Next() {
		var (
			c     model.Confirmation
			label string
		)
		if err := rows.Scan(&c.ID, &c.SessionID, &label, &c.ConfirmedAt, &c.Sent, &c.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to scan confirmation: %w", err)
		}
		c.Label = model.Label(label)
		confirmations = append(confirmations, c)
	}
	return confirmations, rows.Err()
}
