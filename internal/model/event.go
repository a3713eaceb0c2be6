package model

import "time"

// Session represents one run of the perception loop.
type Session struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FrameSource string    `json:"frame_source"`
	SerialPort  string    `json:"serial_port"`
	Connected   bool      `json:"connected"`
}

// Confirmation is emitted once a label has been held for the hold duration.
type Confirmation struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Label       Label     `json:"label"`
	ConfirmedAt time.Time `json:"confirmed_at"`
	Sent        bool      `json:"sent"`
	Snapshot    string    `json:"snapshot,omitempty"`
}

// InboundMessage is a line of text received from the microcontroller.
type InboundMessage struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}
