package websocket

import (
	"errors"
	"fmt"
	"sync"

	"livechat/internal/database"
	"livechat/internal/models"
	"livechat/internal/services"
	"livechat/pkg/logger"
)

var ErrUnknownConnection = errors.New("unknown connection")

// Emitter delivers outbound events. Implementations must not block and must not
// call back into the Router.
type Emitter interface {
	Send(connectionID string, out models.Outbound)
	Broadcast(out models.Outbound)
	BroadcastExcept(connectionID string, out models.Outbound)
}

type SessionState int

const (
	StateClosed SessionState = iota
	StateUnregistered
	StateRegistered
)

func (s SessionState) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistered:
		return "registered"
	}
	return "closed"
}

// Router is the single entry point for connection events. It applies each event to
// the registry, the message store or the typing set and emits the resulting delta.
// Events are handled one at a time.
type Router struct {
	mu       sync.Mutex
	sessions map[string]SessionState

	registry  database.ConnectionRegistry
	store     database.MessageStore
	reactions *services.ReactionService
	presence  *services.PresenceService
	typing    *services.TypingService
	emitter   Emitter
	metrics   *Metrics
}

func NewRouter(registry database.ConnectionRegistry, store database.MessageStore, emitter Emitter, metrics *Metrics) *Router {
	return &Router{
		sessions:  make(map[string]SessionState),
		registry:  registry,
		store:     store,
		reactions: services.NewReactionService(store),
		presence:  services.NewPresenceService(),
		typing:    services.NewTypingService(),
		emitter:   emitter,
		metrics:   metrics,
	}
}

// Connect opens a session and privately sends the full history to it.
func (r *Router) Connect(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[connectionID] = StateUnregistered
	r.emitter.Send(connectionID, models.InitMessages(r.store.List()))
}

// Disconnect closes the session. Registered users are announced as having left,
// and a pending typing indicator is cleared for the others.
func (r *Router) Disconnect(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, connectionID)

	if out, wasTyping := r.typing.Forget(connectionID); wasTyping {
		r.emitter.BroadcastExcept(connectionID, out)
	}
	if user, ok := r.registry.Unregister(connectionID); ok {
		r.emitter.Broadcast(r.presence.Left(user))
		logger.Info("User %s (%s) left", user.Username, connectionID)
	}
}

func (r *Router) State(connectionID string) SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[connectionID]
}

// HandleFrame decodes a raw websocket frame and dispatches it. Rejected frames are
// logged and counted; nothing is sent back to the client.
func (r *Router) HandleFrame(connectionID string, frame []byte) error {
	env, err := models.ParseEnvelope(frame)
	if err == nil {
		var evt models.InboundEvent
		if evt, err = models.DecodeInbound(env); err == nil {
			r.metrics.inboundEvent(evt.Name())
			err = r.Dispatch(connectionID, evt)
		}
	}
	if err != nil {
		r.metrics.droppedEvent(dropReason(err))
		logger.Debug("Dropped event from %s: %v", connectionID, err)
	}
	return err
}

// Dispatch applies one inbound event for the connection.
func (r *Router) Dispatch(connectionID string, evt models.InboundEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[connectionID] == StateClosed {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, connectionID)
	}

	switch e := evt.(type) {
	case models.RegisterUser:
		return r.register(connectionID, e)
	case models.ChatMessage:
		return r.chatMessage(connectionID, e)
	case models.AddReaction:
		return r.addReaction(connectionID, e)
	case models.Typing:
		r.startTyping(connectionID)
		return nil
	case models.StopTyping:
		r.emitter.BroadcastExcept(connectionID, r.typing.NotifyStopTyping(connectionID))
		return nil
	}
	return fmt.Errorf("%w: %T", models.ErrUnknownEvent, evt)
}

func (r *Router) register(connectionID string, e models.RegisterUser) error {
	user, err := r.registry.Register(connectionID, e.Username)
	if err != nil {
		return err
	}
	r.sessions[connectionID] = StateRegistered
	logger.Info("User registered: %s (%s)", user.Username, connectionID)

	r.emitter.Broadcast(r.presence.Joined(user))
	r.emitter.Send(connectionID, r.presence.Snapshot(r.registry.ListAll()))
	return nil
}

func (r *Router) chatMessage(connectionID string, e models.ChatMessage) error {
	sender := r.identity(connectionID)
	msg, err := r.store.Append(models.Message{
		ID:       e.ID,
		Text:     e.Text,
		Sender:   sender.Username,
		SenderID: sender.UserID,
	})
	if err != nil {
		return err
	}
	r.emitter.Broadcast(models.NewChatMessage(msg))
	return nil
}

func (r *Router) addReaction(connectionID string, e models.AddReaction) error {
	reactions, err := r.reactions.Toggle(e.MessageID, e.Reaction, r.identity(connectionID))
	if err != nil {
		return err
	}
	r.emitter.Broadcast(models.UpdateReactions(e.MessageID, reactions))
	return nil
}

// startTyping relays the indicator only for registered users; an anonymous typer cannot be named.
func (r *Router) startTyping(connectionID string) {
	user, ok := r.registry.Get(connectionID)
	if !ok {
		return
	}
	r.emitter.BroadcastExcept(connectionID, r.typing.NotifyTyping(user))
}

// identity resolves the acting user, falling back to an anonymous identity bound to
// the connection id when the connection never registered.
func (r *Router) identity(connectionID string) models.Reactor {
	if user, ok := r.registry.Get(connectionID); ok {
		return models.Reactor{UserID: user.ID, Username: user.Username}
	}
	return models.Reactor{UserID: connectionID, Username: models.AnonymousUsername}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, models.ErrUnknownEvent):
		return "unknown_event"
	case errors.Is(err, models.ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, database.ErrInvalidMessage):
		return "invalid_message"
	case errors.Is(err, database.ErrInvalidUsername):
		return "invalid_username"
	case errors.Is(err, database.ErrNotFound):
		return "message_not_found"
	case errors.Is(err, services.ErrEmptyReaction):
		return "empty_reaction"
	case errors.Is(err, ErrUnknownConnection):
		return "unknown_connection"
	}
	return "other"
}
