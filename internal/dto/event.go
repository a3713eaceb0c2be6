package dto

import (
	"encoding/base64"
	"time"

	"recicleai/internal/model"
)

// Event types pushed to dashboard clients.
const (
	EventConfirmation = "confirmation"
	EventInbound      = "inbound"
	EventFrame        = "frame"
)

// Event is one JSON message sent over the dashboard websocket.
type Event struct {
	Type         string                `json:"type"`
	Time         time.Time             `json:"time"`
	Confirmation *model.Confirmation   `json:"confirmation,omitempty"`
	Inbound      *model.InboundMessage `json:"inbound,omitempty"`
	Frame        *FrameData            `json:"frame,omitempty"`
}

// FrameData is an annotated frame with the detections drawn on it.
type FrameData struct {
	Seq        uint64            `json:"seq"`
	Label      string            `json:"label"`
	Detections []DetectionResult `json:"detections"`
	Image      string            `json:"image,omitempty"` // base64 JPEG
}

func NewConfirmationEvent(c model.Confirmation) Event {
	return Event{Type: EventConfirmation, Time: c.ConfirmedAt, Confirmation: &c}
}

func NewInboundEvent(m model.InboundMessage) Event {
	return Event{Type: EventInbound, Time: m.ReceivedAt, Inbound: &m}
}

func NewFrameEvent(seq uint64, inference model.Inference, jpeg []byte, at time.Time) Event {
	frame := &FrameData{
		Seq:        seq,
		Label:      string(inference.Label),
		Detections: NewDetectionResults(inference.Detections),
	}
	if len(jpeg) > 0 {
		frame.Image = base64.StdEncoding.EncodeToString(jpeg)
	}
	return Event{Type: EventFrame, Time: at, Frame: frame}
}
