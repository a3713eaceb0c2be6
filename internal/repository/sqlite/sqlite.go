package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection with thread-safe access.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New creates and initializes a new SQLite database connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		frame_source TEXT NOT NULL,
		serial_port TEXT NOT NULL,
		connected INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS confirmations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		label TEXT NOT NULL,
		confirmed_at DATETIME NOT NULL,
		sent INTEGER NOT NULL DEFAULT 0,
		snapshot TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS inbound_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		text TEXT NOT NULL,
		received_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_confirmations_session ON confirmations(session_id);
	CREATE INDEX IF NOT EXISTS idx_confirmations_label ON confirmations(label);
	CREATE INDEX IF NOT EXISTS idx_confirmations_confirmed_at ON confirmations(confirmed_at);
	CREATE INDEX IF NOT EXISTS idx_inbound_received_at ON inbound_messages(received_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Counts returns the number of rows per table.
func (db *DB) Counts() (map[string]int, error) {
	db.RLock()
	defer db.RUnlock()

	counts := make(map[string]int)
	for _, table := range []string{"sessions", "confirmations", "inbound_messages"} {
		var n int
		if err := db.conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Lock()    { db.mu.Lock() }
func (db *DB) Unlock()  { db.mu.Unlock() }
func (db *DB) RLock()   { db.mu.RLock() }
func (db *DB) RUnlock() { db.mu.RUnlock() }
