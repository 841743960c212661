package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/draftroom/go/internal/draft/events"
)

// FrameType tells clients how to read a WebSocket frame.
type FrameType string

const (
	// FrameSnapshot carries the full draft state. It is always the first
	// frame of a connection.
	FrameSnapshot FrameType = "snapshot"
	// FrameEvent carries one bus envelope.
	FrameEvent FrameType = "event"
)

// Frame is the unit written to a WebSocket client.
type Frame struct {
	Type       FrameType           `json:"type"`
	Event      *events.Envelope    `json:"event,omitempty"`
	State      *DraftStateResponse `json:"state,omitempty"`
	ServerTime time.Time           `json:"server_time"`
}

func eventFrame(env events.Envelope, now time.Time) ([]byte, error) {
	data, err := json.Marshal(Frame{Type: FrameEvent, Event: &env, ServerTime: now})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s frame: %w", env.EventType, err)
	}
	return data, nil
}

func snapshotFrame(state DraftStateResponse, now time.Time) ([]byte, error) {
	data, err := json.Marshal(Frame{Type: FrameSnapshot, State: &state, ServerTime: now})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot frame: %w", err)
	}
	return data, nil
}
