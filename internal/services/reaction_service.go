package services

import (
	"errors"
	"fmt"

	"livechat/internal/database"
	"livechat/internal/models"

	"github.com/samber/lo"
)

var ErrEmptyReaction = errors.New("reaction is empty")

type ReactionService struct {
	store database.MessageStore
}

func NewReactionService(store database.MessageStore) *ReactionService {
	return &ReactionService{store: store}
}

// Toggle adds reactor under emoji on the message, or removes it if already present,
// and returns the complete resulting reaction map of that message.
func (s *ReactionService) Toggle(messageID, emoji string, reactor models.Reactor) (models.ReactionMap, error) {
	if emoji == "" {
		return nil, ErrEmptyReaction
	}

	reactions, err := s.store.MutateReactions(messageID, func(current models.ReactionMap) models.ReactionMap {
		return ToggleReaction(current, emoji, reactor)
	})
	if err != nil {
		return nil, fmt.Errorf("toggle %q on message %s: %w", emoji, messageID, err)
	}
	return reactions, nil
}

// ToggleReaction applies the add-if-absent / remove-if-present rule keyed by reactor.UserID.
// The map is modified in place and returned; an emoji whose last reactor is removed is deleted.
func ToggleReaction(reactions models.ReactionMap, emoji string, reactor models.Reactor) models.ReactionMap {
	if reactions == nil {
		reactions = models.ReactionMap{}
	}

	reactors := reactions[emoji]
	_, idx, found := lo.FindIndexOf(reactors, func(r models.Reactor) bool {
		return r.UserID == reactor.UserID
	})
	if !found {
		reactions[emoji] = append(reactors, reactor)
		return reactions
	}

	remaining := append(reactors[:idx:idx], reactors[idx+1:]...)
	if len(remaining) == 0 {
		delete(reactions, emoji)
	} else {
		reactions[emoji] = remaining
	}
	return reactions
}
