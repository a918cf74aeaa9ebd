package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kurdai/kurdai-server/domain/entities"
)

// MessageType defines the type of WebSocket control message. Audio travels as
// binary frames: raw 16 kHz PCM upstream, raw 24 kHz PCM downstream.
type MessageType string

// Client to server
const (
	MessageTypeSessionStart MessageType = "session_start"
	MessageTypeSessionStop  MessageType = "session_stop"
)

// Server to client
const (
	MessageTypeSessionStarted    MessageType = "session_started"
	MessageTypeStatus            MessageType = "status"
	MessageTypeTranscriptPartial MessageType = "transcript_partial"
	MessageTypeTranscriptEntry   MessageType = "transcript_entry"
	MessageTypeTurnComplete      MessageType = "turn_complete"
	MessageTypeInterrupted       MessageType = "interrupted"
	MessageTypeError             MessageType = "error"
)

// BaseMessage defines the common structure for all control messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// SessionStartMessage asks the server to open a live voice session
type SessionStartMessage struct {
	BaseMessage
	Model             string `json:"model,omitempty"`
	Voice             string `json:"voice,omitempty"`
	SystemInstruction string `json:"system_instruction,omitempty"`
}

// SessionStopMessage asks the server to end the running session
type SessionStopMessage struct {
	BaseMessage
}

// SessionStartedMessage confirms the session and names its conversation record
type SessionStartedMessage struct {
	BaseMessage
	ConversationID string `json:"conversation_id,omitempty"`
}

// StatusMessage reports a session status transition
type StatusMessage struct {
	BaseMessage
	Status entities.SessionStatus `json:"status"`
}

// TranscriptPartialMessage carries in-progress transcription text
type TranscriptPartialMessage struct {
	BaseMessage
	Role entities.Role `json:"role"`
	Text string        `json:"text"`
}

// TranscriptEntryMessage carries one sealed transcript entry
type TranscriptEntryMessage struct {
	BaseMessage
	Role     entities.Role `json:"role"`
	Text     string        `json:"text"`
	SpokenAt time.Time     `json:"spoken_at"`
}

// ErrorMessage reports a session failure
type ErrorMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// ParseClientMessage validates an incoming control message
func ParseClientMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeSessionStart:
		var msg SessionStartMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid session_start message: %w", err)
		}
		return &msg, nil

	case MessageTypeSessionStop:
		var msg SessionStopMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid session_stop message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func stamp(t MessageType) BaseMessage {
	return BaseMessage{
		Type:      t,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func marshalMessage(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"type":"error","message":"internal encoding failure"}`)
	}
	return data
}
