package entities

import "time"

// Role represents the speaker of a transcript entry
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// SessionStatus represents the lifecycle state of a live voice session
type SessionStatus string

const (
	SessionStatusIdle       SessionStatus = "idle"
	SessionStatusConnecting SessionStatus = "connecting"
	SessionStatusActive     SessionStatus = "active"
	SessionStatusClosing    SessionStatus = "closing"
	SessionStatusClosed     SessionStatus = "closed"
	SessionStatusError      SessionStatus = "error"
)

// TranscriptEntry is one finalized utterance in a conversation
type TranscriptEntry struct {
	Role      Role      `json:"role" bson:"role"`
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}
