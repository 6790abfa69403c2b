package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"speechgpt/internal/model/chat"
)

// MemoryStore is an in-process Store used by tests and the client-side
// component tests. Snapshots are copied on read.
type MemoryStore struct {
	mu       sync.RWMutex
	chats    map[string]chat.Chat      // email/chatID
	messages map[string][]chat.Message // email/chatID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats:    make(map[string]chat.Chat),
		messages: make(map[string][]chat.Message),
	}
}

func memKey(email, chatID string) string {
	return email + "/" + chatID
}

func (s *MemoryStore) CreateChat(_ context.Context, userEmail string) (chat.Chat, error) {
	if userEmail == "" {
		return chat.Chat{}, ErrEmailRequired
	}

	record := chat.Chat{
		ID:        uuid.NewString(),
		UserEmail: userEmail,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.chats[memKey(userEmail, record.ID)] = record
	s.messages[memKey(userEmail, record.ID)] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return record, nil
}

func (s *MemoryStore) GetChat(_ context.Context, userEmail, chatID string) (chat.Chat, error) {
	if userEmail == "" {
		return chat.Chat{}, ErrEmailRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.chats[memKey(userEmail, chatID)]
	if !ok {
		return chat.Chat{}, ErrChatNotFound
	}
	return record, nil
}

func (s *MemoryStore) ListChats(_ context.Context, userEmail string) ([]chat.Chat, error) {
	if userEmail == "" {
		return nil, ErrEmailRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var chats []chat.Chat
	for _, record := range s.chats {
		if record.UserEmail == userEmail {
			chats = append(chats, record)
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].CreatedAt.Before(chats[j].CreatedAt)
	})
	return chats, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, userEmail, chatID string, msg chat.Message) (chat.Message, error) {
	if userEmail == "" {
		return chat.Message{}, ErrEmailRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := memKey(userEmail, chatID)
	if _, ok := s.chats[key]; !ok {
		return chat.Message{}, ErrChatNotFound
	}

	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()
	s.messages[key] = append(s.messages[key], msg)
	return msg, nil
}

func (s *MemoryStore) Messages(_ context.Context, userEmail, chatID string) ([]chat.Message, error) {
	if userEmail == "" {
		return nil, ErrEmailRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	key := memKey(userEmail, chatID)
	messages, ok := s.messages[key]
	if !ok {
		return nil, ErrChatNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
