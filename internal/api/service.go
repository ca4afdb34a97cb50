package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/careline/internal/messaging"
	"github.com/careloop/careline/internal/models"
)

// MessagingService is what the handlers need from the conversation
// engine. Implemented by *messaging.Service; an interface so handler
// tests can plug in a stub without a database.
type MessagingService interface {
	ListConversations(ctx context.Context, actor models.Actor, page, limit int) (*messaging.ConversationPage, error)
	GetConversation(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Conversation, error)
	ListMessages(ctx context.Context, actor models.Actor, conversationID uuid.UUID, page, limit int, before *time.Time) ([]models.Message, error)
	Send(ctx context.Context, actor models.Actor, input messaging.SendInput) (*models.Message, error)
	MarkRead(ctx context.Context, actor models.Actor, conversationID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, actor models.Actor) (int64, error)
	DeleteMessage(ctx context.Context, actor models.Actor, messageID int64) (*models.Message, error)
}
