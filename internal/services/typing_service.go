package services

import (
	"maps"
	"sync"

	"livechat/internal/models"
)

// TypingService tracks which connections are currently typing. It never expires
// entries on its own; clients send stop typing, and disconnects clear the entry.
type TypingService struct {
	mu     sync.Mutex
	typing map[string]string
}

func NewTypingService() *TypingService {
	return &TypingService{typing: make(map[string]string)}
}

// NotifyTyping marks a registered user as typing and returns the event for the other connections.
func (s *TypingService) NotifyTyping(user models.UserRecord) models.Outbound {
	s.mu.Lock()
	s.typing[user.ID] = user.Username
	s.mu.Unlock()

	return models.Outbound{
		Event: models.EventUserTyping,
		Data:  models.TypingPayload{Username: user.Username, ID: user.ID},
	}
}

func (s *TypingService) NotifyStopTyping(connectionID string) models.Outbound {
	s.mu.Lock()
	delete(s.typing, connectionID)
	s.mu.Unlock()

	return stopTyping(connectionID)
}

// Forget drops the connection from the typing set. It reports whether the connection
// was typing, in which case the returned event clears the indicator for everyone else.
func (s *TypingService) Forget(connectionID string) (models.Outbound, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.typing[connectionID]; !ok {
		return models.Outbound{}, false
	}
	delete(s.typing, connectionID)
	return stopTyping(connectionID), true
}

// Typing returns a copy of the typing set, connection id to username.
func (s *TypingService) Typing() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.typing)
}

func stopTyping(connectionID string) models.Outbound {
	return models.Outbound{
		Event: models.EventUserStopTyping,
		Data:  models.StopTypingPayload{ID: connectionID},
	}
}
