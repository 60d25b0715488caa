package models

import (
	"encoding/json"
	"time"
)

// Reactor is one user listed under an emoji on a message.
type Reactor struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// ReactionMap maps an emoji key to its reactors in the order they reacted.
// A key is never mapped to an empty list.
type ReactionMap map[string][]Reactor

// MarshalJSON encodes a nil map as {} so clients always receive an object.
func (r ReactionMap) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string][]Reactor(r))
}

// Clone returns a deep copy safe to hand out of the store.
func (r ReactionMap) Clone() ReactionMap {
	out := make(ReactionMap, len(r))
	for emoji, reactors := range r {
		out[emoji] = append([]Reactor(nil), reactors...)
	}
	return out
}

// Message is an entry of the chat log. Only Reactions changes after creation.
type Message struct {
	ID        string      `json:"id"`
	Text      string      `json:"text"`
	Sender    string      `json:"sender"`
	SenderID  string      `json:"senderId"`
	Timestamp time.Time   `json:"timestamp"`
	Reactions ReactionMap `json:"reactions"`
}

func (m Message) Clone() Message {
	m.Reactions = m.Reactions.Clone()
	return m
}
