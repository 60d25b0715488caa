package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type EventName string

// Client to server.
const (
	EventRegisterUser EventName = "register_user"
	EventChatMessage  EventName = "chat message"
	EventAddReaction  EventName = "add_reaction"
	EventTyping       EventName = "typing"
	EventStopTyping   EventName = "stop typing"
)

// Server to client. EventChatMessage is used in both directions.
const (
	EventInitMessages    EventName = "init_messages"
	EventCurrentUsers    EventName = "current_users"
	EventUserJoined      EventName = "user_joined"
	EventUserLeft        EventName = "user_left"
	EventUpdateReactions EventName = "update_reactions"
	EventUserTyping      EventName = "user_typing"
	EventUserStopTyping  EventName = "user_stop_typing"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)

var validate = validator.New()

// Envelope is the JSON frame exchanged over the websocket in both directions.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func ParseEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event name", ErrInvalidPayload)
	}
	return env, nil
}

// InboundEvent is the closed set of events a client may send.
type InboundEvent interface {
	Name() EventName
	inbound()
}

type RegisterUser struct {
	Username string `validate:"required"`
}

type ChatMessage struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

type AddReaction struct {
	MessageID string `json:"messageId" validate:"required"`
	Reaction  string `json:"reaction" validate:"required"`
}

type Typing struct{}

type StopTyping struct{}

func (RegisterUser) Name() EventName { return EventRegisterUser }
func (ChatMessage) Name() EventName  { return EventChatMessage }
func (AddReaction) Name() EventName  { return EventAddReaction }
func (Typing) Name() EventName       { return EventTyping }
func (StopTyping) Name() EventName   { return EventStopTyping }

func (RegisterUser) inbound() {}
func (ChatMessage) inbound()  {}
func (AddReaction) inbound()  {}
func (Typing) inbound()       {}
func (StopTyping) inbound()   {}

// DecodeInbound turns an envelope into its typed variant, validating the payload shape.
// Emptiness rules that belong to the chat state (blank text, blank username) are left
// to the registry and the message store.
func DecodeInbound(env Envelope) (InboundEvent, error) {
	switch env.Event {
	case EventRegisterUser:
		var username string
		if err := decodeData(env.Data, &username); err != nil {
			return nil, err
		}
		return checked(RegisterUser{Username: username})
	case EventChatMessage:
		var msg ChatMessage
		if err := decodeData(env.Data, &msg); err != nil {
			return nil, err
		}
		return checked(msg)
	case EventAddReaction:
		var reaction AddReaction
		if err := decodeData(env.Data, &reaction); err != nil {
			return nil, err
		}
		return checked(reaction)
	case EventTyping:
		return Typing{}, nil
	case EventStopTyping:
		return StopTyping{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
}

func decodeData(data json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func checked[T InboundEvent](evt T) (InboundEvent, error) {
	if err := validate.Struct(evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return evt, nil
}

// Outbound is an event ready to be encoded and delivered to one or more connections.
type Outbound struct {
	Event EventName
	Data  interface{}
}

func (o Outbound) Encode() ([]byte, error) {
	return json.Marshal(struct {
		Event EventName   `json:"event"`
		Data  interface{} `json:"data,omitempty"`
	}{o.Event, o.Data})
}

type PresencePayload struct {
	Username  string    `json:"username"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

type ReactionUpdatePayload struct {
	MessageID string      `json:"messageId"`
	Reactions ReactionMap `json:"reactions"`
}

type TypingPayload struct {
	Username string `json:"username"`
	ID       string `json:"id"`
}

type StopTypingPayload struct {
	ID string `json:"id"`
}

func InitMessages(messages []Message) Outbound {
	if messages == nil {
		messages = []Message{}
	}
	return Outbound{Event: EventInitMessages, Data: messages}
}

func CurrentUsers(users []PresencePayload) Outbound {
	if users == nil {
		users = []PresencePayload{}
	}
	return Outbound{Event: EventCurrentUsers, Data: users}
}

func NewChatMessage(msg Message) Outbound {
	return Outbound{Event: EventChatMessage, Data: msg}
}

func UpdateReactions(messageID string, reactions ReactionMap) Outbound {
	return Outbound{Event: EventUpdateReactions, Data: ReactionUpdatePayload{MessageID: messageID, Reactions: reactions}}
}
