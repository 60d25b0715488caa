package database

import (
	"errors"

	"livechat/internal/models"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidMessage  = errors.New("invalid message: text is empty")
	ErrInvalidUsername = errors.New("invalid username: name is empty")
)

// ConnectionRegistry maps live connections to the display names they registered.
type ConnectionRegistry interface {
	Register(connectionID, username string) (models.UserRecord, error)
	Unregister(connectionID string) (models.UserRecord, bool)
	Get(connectionID string) (models.UserRecord, bool)
	ListAll() []models.UserRecord
	Count() int
}

// MessageStore is the append-only chat log. Reactions are the only mutable part of a message.
type MessageStore interface {
	Append(candidate models.Message) (models.Message, error)
	List() []models.Message
	Find(id string) (models.Message, bool)
	MutateReactions(id string, fn func(models.ReactionMap) models.ReactionMap) (models.ReactionMap, error)
	Count() int
}
