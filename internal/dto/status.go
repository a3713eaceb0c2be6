package dto

import "recicleai/internal/model"

// Status is the /api/status response.
type Status struct {
	Session       model.Session  `json:"session"`
	Loop          LoopStatus     `json:"loop"`
	Serial        SerialStatus   `json:"serial"`
	Inbound       InboundStatus  `json:"inbound"`
	Clients       int            `json:"clients"`
	PendingImages int            `json:"pending_images"`
	Confirmations map[string]int `json:"confirmations_by_label,omitempty"`
	UptimeSeconds float64        `json:"uptime_seconds"`
}

type LoopStatus struct {
	Frames             uint64 `json:"frames"`
	SkippedReads       uint64 `json:"skipped_reads"`
	SkippedInferences  uint64 `json:"skipped_inferences"`
	Confirmations      uint64 `json:"confirmations"`
	Sends              uint64 `json:"sends"`
	SendFailures       uint64 `json:"send_failures"`
	SuppressedSends    uint64 `json:"suppressed_sends"`
	LastLabel          string `json:"last_label"`
	LastConfirmedLabel string `json:"last_confirmed_label"`
}

type SerialStatus struct {
	Port          string `json:"port"`
	Connected     bool   `json:"connected"`
	Sent          uint64 `json:"sent"`
	SendFailures  uint64 `json:"send_failures"`
	SendsSkipped  uint64 `json:"sends_skipped"`
	LinesReceived uint64 `json:"lines_received"`
	LinesSkipped  uint64 `json:"lines_skipped"`
}

type InboundStatus struct {
	Received  uint64 `json:"received"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
}
