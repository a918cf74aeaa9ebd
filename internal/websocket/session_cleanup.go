package websocket

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kurdai/kurdai-server/domain/entities"
	"github.com/kurdai/kurdai-server/domain/repositories"
)

// staleAfter is how long a conversation may stay open before the janitor
// closes it. Sessions that end cleanly are closed by their client; this
// catches records orphaned by crashes and dropped connections.
const staleAfter = 2 * time.Hour

// ConversationJanitor closes conversation records left open by dead sessions
type ConversationJanitor struct {
	conversations repositories.ConversationRepository
	logger        *zap.Logger
	stopChan      chan struct{}
}

// NewConversationJanitor creates a janitor over the conversation store
func NewConversationJanitor(conversations repositories.ConversationRepository, logger *zap.Logger) *ConversationJanitor {
	return &ConversationJanitor{
		conversations: conversations,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (j *ConversationJanitor) Start() {
	go j.cleanupLoop()
	j.logger.Info("Conversation janitor started")
}

// Stop gracefully stops the cleanup process
func (j *ConversationJanitor) Stop() {
	close(j.stopChan)
	j.logger.Info("Conversation janitor stopped")
}

func (j *ConversationJanitor) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	// Run an initial sweep shortly after startup
	initialTimer := time.NewTimer(1 * time.Minute)
	defer initialTimer.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-initialTimer.C:
			j.sweep()
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *ConversationJanitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	recent, err := j.conversations.ListRecent(ctx, 100)
	if err != nil {
		j.logger.Error("Janitor failed to list conversations", zap.Error(err))
		return
	}

	cutoff := time.Now().Add(-staleAfter)
	closed := 0
	for _, conversation := range recent {
		if conversation.Status != entities.ConversationStatusOpen {
			continue
		}
		if conversation.StartedAt.After(cutoff) {
			continue
		}
		if err := j.conversations.End(ctx, conversation.ID.Hex()); err != nil {
			j.logger.Error("Janitor failed to end conversation",
				zap.String("conversationID", conversation.ID.Hex()),
				zap.Error(err))
			continue
		}
		closed++
	}
	if closed > 0 {
		j.logger.Info("Janitor closed stale conversations", zap.Int("count", closed))
	}
}
