package repository

import (
	"recicleai/internal/model"
)

// SessionRepository stores one record per run of the perception loop.
type SessionRepository interface {
	Insert(session *model.Session) error
	GetByID(id string) (*model.Session, error)
	Recent(limit int) ([]model.Session, error)
}

// ConfirmationRepository defines the interface for confirmed label history.
type ConfirmationRepository interface {
	// Create operations
	Insert(confirmation *model.Confirmation) (int64, error)

	// Read operations
	Recent(limit int) ([]model.Confirmation, error)
	BySession(sessionID string, limit int) ([]model.Confirmation, error)
	CountByLabel() (map[model.Label]int, error)
}

// InboundRepository defines the interface for lines received from the board.
type InboundRepository interface {
	Insert(message *model.InboundMessage) (int64, error)
	Recent(limit int) ([]model.InboundMessage, error)
}
