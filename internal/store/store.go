// Package store persists per-user chat collections. The keyspace mirrors the
// document path users/{email}/chats/{chatId}/messages/{autoId}: writes assign
// the server timestamp, reads return a full snapshot of the collection.
package store

import (
	"context"
	"errors"

	"speechgpt/internal/model/chat"
)

var (
	ErrChatNotFound  = errors.New("chat not found")
	ErrEmailRequired = errors.New("user email is required")
)

// Store is the per-user chat document store.
type Store interface {
	// CreateChat provisions an empty chat under the user's namespace.
	CreateChat(ctx context.Context, userEmail string) (chat.Chat, error)

	// GetChat returns the chat record, or ErrChatNotFound.
	GetChat(ctx context.Context, userEmail, chatID string) (chat.Chat, error)

	// ListChats returns every chat under the user's namespace in creation
	// order.
	ListChats(ctx context.Context, userEmail string) ([]chat.Chat, error)

	// AppendMessage durably appends a message, assigning its id and the
	// server timestamp, and returns the stored record.
	AppendMessage(ctx context.Context, userEmail, chatID string, msg chat.Message) (chat.Message, error)

	// Messages returns the full message snapshot for a chat ordered by
	// CreatedAt.
	Messages(ctx context.Context, userEmail, chatID string) ([]chat.Message, error)

	// Close releases the underlying engine.
	Close() error
}
