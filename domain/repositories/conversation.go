package repositories

import (
	"context"

	"github.com/kurdai/kurdai-server/domain/entities"
)

// ConversationRepository persists conversations and their transcripts
type ConversationRepository interface {
	// Create stores a new open conversation
	Create(ctx context.Context, conversation *entities.Conversation) error
	// AppendEntries appends sealed transcript entries to a conversation
	AppendEntries(ctx context.Context, id string, entries []entities.TranscriptEntry) error
	// End marks a conversation as ended
	End(ctx context.Context, id string) error
	// GetByID fetches one conversation with its full transcript
	GetByID(ctx context.Context, id string) (*entities.Conversation, error)
	// ListRecent returns the most recently started conversations
	ListRecent(ctx context.Context, limit int) ([]*entities.Conversation, error)
}
