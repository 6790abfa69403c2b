package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"speechgpt/internal/model/chat"
	"speechgpt/internal/store"
	"speechgpt/pkg/apierror"
)

// Service encapsulates conversation state management on top of the document
// store and fans appended messages out to live subscribers.
type Service struct {
	store store.Store

	mu   sync.Mutex
	subs map[string]map[chan chat.Message]struct{} // email/chatID
}

// NewService wraps the given store.
func NewService(st store.Store) *Service {
	return &Service{
		store: st,
		subs:  make(map[string]map[chan chat.Message]struct{}),
	}
}

// CreateChat provisions an empty chat for the session's user.
func (s *Service) CreateChat(ctx context.Context, session chat.Session) (chat.Chat, error) {
	if !session.Valid() {
		return chat.Chat{}, fmt.Errorf("%w: session is required", apierror.ErrValidation)
	}
	return s.store.CreateChat(ctx, session.Email)
}

// GetChat returns the chat record, or store.ErrChatNotFound.
func (s *Service) GetChat(ctx context.Context, userEmail, chatID string) (chat.Chat, error) {
	return s.store.GetChat(ctx, userEmail, chatID)
}

// ListChats returns the user's chats in creation order.
func (s *Service) ListChats(ctx context.Context, userEmail string) ([]chat.Chat, error) {
	return s.store.ListChats(ctx, userEmail)
}

// AppendMessage validates and durably appends one turn of dialogue, then
// notifies subscribers. The stored record (with server-assigned id and
// timestamp) is returned.
func (s *Service) AppendMessage(ctx context.Context, session chat.Session, chatID, text string) (chat.Message, error) {
	if !session.Valid() {
		return chat.Message{}, fmt.Errorf("%w: session is required", apierror.ErrValidation)
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return chat.Message{}, fmt.Errorf("%w: message text is required", apierror.ErrValidation)
	}

	msg := chat.Message{
		Text: trimmed,
		User: session.Author(),
	}

	stored, err := s.store.AppendMessage(ctx, session.Email, chatID, msg)
	if err != nil {
		return chat.Message{}, err
	}

	s.broadcast(session.Email, chatID, stored)
	return stored, nil
}

// AppendAssistantMessage appends a reply written under the assistant
// identity to the user's chat.
func (s *Service) AppendAssistantMessage(ctx context.Context, userEmail, chatID, text string) (chat.Message, error) {
	if strings.TrimSpace(userEmail) == "" {
		return chat.Message{}, fmt.Errorf("%w: user email is required", apierror.ErrValidation)
	}

	msg := chat.Message{
		Text: text,
		User: chat.AssistantUser,
	}

	stored, err := s.store.AppendMessage(ctx, userEmail, chatID, msg)
	if err != nil {
		return chat.Message{}, err
	}

	s.broadcast(userEmail, chatID, stored)
	return stored, nil
}

// History returns the full message snapshot for a chat ordered by CreatedAt.
func (s *Service) History(ctx context.Context, userEmail, chatID string) ([]chat.Message, error) {
	return s.store.Messages(ctx, userEmail, chatID)
}

// Subscribe registers a live feed for a chat. The returned channel receives
// every message appended after the call; cancel releases it.
func (s *Service) Subscribe(userEmail, chatID string) (<-chan chat.Message, func()) {
	ch := make(chan chat.Message, 16)
	key := userEmail + "/" + chatID

	s.mu.Lock()
	if s.subs[key] == nil {
		s.subs[key] = make(map[chan chat.Message]struct{})
	}
	s.subs[key][ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if set, ok := s.subs[key]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(s.subs, key)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Service) broadcast(userEmail, chatID string, msg chat.Message) {
	key := userEmail + "/" + chatID

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs[key] {
		select {
		case ch <- msg:
		default:
			// Slow subscriber; drop rather than block the append path.
		}
	}
}
