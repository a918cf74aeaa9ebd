package entities

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConversationStatus represents the persistence state of a conversation
type ConversationStatus string

const (
	ConversationStatusOpen  ConversationStatus = "open"
	ConversationStatusEnded ConversationStatus = "ended"
)

// Conversation is the persisted record of one voice session: the model and
// voice it ran with plus the ordered transcript entries sealed during it
type Conversation struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Model     string             `json:"model" bson:"model"`
	Voice     string             `json:"voice" bson:"voice"`
	StartedAt time.Time          `json:"started_at" bson:"started_at"`
	EndedAt   *time.Time         `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
	Status    ConversationStatus `json:"status" bson:"status"`
	Entries   []TranscriptEntry  `json:"entries" bson:"entries"`
}

// NewConversation creates an open conversation for a live session
func NewConversation(model, voice string) *Conversation {
	return &Conversation{
		ID:        primitive.NewObjectID(),
		Model:     model,
		Voice:     voice,
		StartedAt: time.Now(),
		Status:    ConversationStatusOpen,
		Entries:   make([]TranscriptEntry, 0),
	}
}

// AppendEntry appends one finalized transcript entry. The transcript is
// append-only: entries are never reordered or rewritten.
func (c *Conversation) AppendEntry(entry TranscriptEntry) {
	c.Entries = append(c.Entries, entry)
}

// AppendEntries appends a batch of finalized entries in order
func (c *Conversation) AppendEntries(entries []TranscriptEntry) {
	c.Entries = append(c.Entries, entries...)
}

// End marks the conversation as ended. Ending twice is a no-op.
func (c *Conversation) End() {
	if c.Status == ConversationStatusEnded {
		return
	}
	now := time.Now()
	c.EndedAt = &now
	c.Status = ConversationStatusEnded
}

// Validate validates the conversation data
func (c *Conversation) Validate() error {
	if c.Model == "" {
		return errors.New("model is required")
	}

	if c.Status != ConversationStatusOpen && c.Status != ConversationStatusEnded {
		return errors.New("invalid conversation status")
	}

	for _, entry := range c.Entries {
		if entry.Role != RoleUser && entry.Role != RoleModel {
			return errors.New("invalid transcript role")
		}
	}

	return nil
}
