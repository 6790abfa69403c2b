package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"speechgpt/internal/model/chat"
)

// Key layout:
//
//	chat/<email>/<chatID>          -> chat record
//	msg/<email>/<chatID>/<seq>-<id> -> message record
//
// seq is the zero-padded append timestamp in nanoseconds, so lexical key
// order inside a chat prefix is creation order.
const (
	chatPrefix = "chat/"
	msgPrefix  = "msg/"
)

// BadgerStore is the embedded Store implementation.
type BadgerStore struct {
	db *badger.DB
}

// BadgerOptions configures the embedded store.
type BadgerOptions struct {
	// Dir is the data directory. Required unless InMemory is set.
	Dir string

	// InMemory runs the engine without disk persistence. Used by tests and
	// throwaway deployments.
	InMemory bool
}

// NewBadgerStore opens the embedded store.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: BadgerOptions.Dir is required for on-disk mode")
	}

	var dbOpts badger.Options
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dbOpts = badger.DefaultOptions(opts.Dir)
	}
	dbOpts = dbOpts.WithLogger(nil)

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func chatKey(email, chatID string) []byte {
	return []byte(chatPrefix + email + "/" + chatID)
}

func messageKey(email, chatID string, at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%s/%s/%020d-%s", msgPrefix, email, chatID, at.UnixNano(), id))
}

func (s *BadgerStore) CreateChat(_ context.Context, userEmail string) (chat.Chat, error) {
	if userEmail == "" {
		return chat.Chat{}, ErrEmailRequired
	}

	record := chat.Chat{
		ID:        uuid.NewString(),
		UserEmail: userEmail,
		CreatedAt: time.Now().UTC(),
	}

	value, err := json.Marshal(record)
	if err != nil {
		return chat.Chat{}, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chatKey(userEmail, record.ID), value)
	})
	if err != nil {
		return chat.Chat{}, err
	}
	return record, nil
}

func (s *BadgerStore) GetChat(_ context.Context, userEmail, chatID string) (chat.Chat, error) {
	if userEmail == "" {
		return chat.Chat{}, ErrEmailRequired
	}

	var record chat.Chat
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chatKey(userEmail, chatID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.Chat{}, ErrChatNotFound
	}
	if err != nil {
		return chat.Chat{}, err
	}
	return record, nil
}

func (s *BadgerStore) ListChats(_ context.Context, userEmail string) ([]chat.Chat, error) {
	if userEmail == "" {
		return nil, ErrEmailRequired
	}

	prefix := []byte(chatPrefix + userEmail + "/")
	var chats []chat.Chat

	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record chat.Chat
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			chats = append(chats, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].CreatedAt.Before(chats[j].CreatedAt)
	})
	return chats, nil
}

func (s *BadgerStore) AppendMessage(ctx context.Context, userEmail, chatID string, msg chat.Message) (chat.Message, error) {
	if _, err := s.GetChat(ctx, userEmail, chatID); err != nil {
		return chat.Message{}, err
	}

	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()

	value, err := json.Marshal(msg)
	if err != nil {
		return chat.Message{}, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(userEmail, chatID, msg.CreatedAt, msg.ID), value)
	})
	if err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

func (s *BadgerStore) Messages(ctx context.Context, userEmail, chatID string) ([]chat.Message, error) {
	if _, err := s.GetChat(ctx, userEmail, chatID); err != nil {
		return nil, err
	}

	prefix := []byte(msgPrefix + userEmail + "/" + chatID + "/")
	messages := make([]chat.Message, 0, 16)

	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record chat.Message
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			messages = append(messages, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Keys already iterate in append order; the sort key is still CreatedAt.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
