package database

import (
	"strings"
	"sync"
	"time"

	"livechat/internal/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MemoryMessageStore keeps the full chat history for the lifetime of the process.
type MemoryMessageStore struct {
	mu       sync.RWMutex
	messages []models.Message
	lastTS   time.Time
	now      func() time.Time
	newID    func() string
}

func NewMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Append validates and stores a message. The caller supplies text, sender and
// optionally an id; the store assigns the id when missing, the timestamp and
// an empty reaction set. Client supplied ids are trusted as-is.
func (s *MemoryMessageStore) Append(candidate models.Message) (models.Message, error) {
	if strings.TrimSpace(candidate.Text) == "" {
		return models.Message{}, ErrInvalidMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.Message{
		ID:        candidate.ID,
		Text:      candidate.Text,
		Sender:    candidate.Sender,
		SenderID:  candidate.SenderID,
		Timestamp: s.now(),
		Reactions: models.ReactionMap{},
	}
	if msg.ID == "" {
		msg.ID = s.newID()
	}
	// Timestamps never go backwards relative to insertion order.
	if msg.Timestamp.Before(s.lastTS) {
		msg.Timestamp = s.lastTS
	}
	s.lastTS = msg.Timestamp

	s.messages = append(s.messages, msg)
	return msg.Clone(), nil
}

// List returns the whole history in insertion order.
func (s *MemoryMessageStore) List() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(s.messages, func(m models.Message, _ int) models.Message {
		return m.Clone()
	})
}

// Find returns the first message carrying id.
func (s *MemoryMessageStore) Find(id string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := lo.Find(s.messages, func(m models.Message) bool { return m.ID == id })
	if !ok {
		return models.Message{}, false
	}
	return msg.Clone(), true
}

// MutateReactions replaces the reactions of message id with fn applied to a copy of
// them, under the write lock. Emoji keys left with no reactors are removed.
func (s *MemoryMessageStore) MutateReactions(id string, fn func(models.ReactionMap) models.ReactionMap) (models.ReactionMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, idx, ok := lo.FindIndexOf(s.messages, func(m models.Message) bool { return m.ID == id })
	if !ok {
		return nil, ErrNotFound
	}

	next := fn(s.messages[idx].Reactions.Clone())
	if next == nil {
		next = models.ReactionMap{}
	}
	for emoji, reactors := range next {
		if len(reactors) == 0 {
			delete(next, emoji)
		}
	}
	s.messages[idx].Reactions = next
	return next.Clone(), nil
}

func (s *MemoryMessageStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
