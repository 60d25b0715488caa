package websocket

import (
	"testing"

	"livechat/internal/database"
	"livechat/internal/models"

	"github.com/stretchr/testify/require"
)

// inboxes records what every simulated connection would have received.
type inboxes struct {
	order []string
	inbox map[string][]models.Outbound
}

func newInboxes() *inboxes {
	return &inboxes{inbox: make(map[string][]models.Outbound)}
}

func (b *inboxes) open(id string) {
	b.order = append(b.order, id)
	b.inbox[id] = nil
}

func (b *inboxes) close(id string) {
	delete(b.inbox, id)
	for i, o := range b.order {
		if o == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *inboxes) Send(id string, out models.Outbound) {
	if _, ok := b.inbox[id]; ok {
		b.inbox[id] = append(b.inbox[id], out)
	}
}

func (b *inboxes) Broadcast(out models.Outbound) {
	b.BroadcastExcept("", out)
}

func (b *inboxes) BroadcastExcept(except string, out models.Outbound) {
	for _, id := range b.order {
		if id != except {
			b.inbox[id] = append(b.inbox[id], out)
		}
	}
}

func (b *inboxes) drain(id string) []models.Outbound {
	out := b.inbox[id]
	b.inbox[id] = nil
	return out
}

func (b *inboxes) drainAll() {
	for id := range b.inbox {
		b.inbox[id] = nil
	}
}

type fixture struct {
	router   *Router
	boxes    *inboxes
	registry *database.Registry
	store    *database.MemoryMessageStore
}

func newFixture() *fixture {
	boxes := newInboxes()
	registry := database.NewRegistry()
	store := database.NewMessageStore()
	return &fixture{
		router:   NewRouter(registry, store, boxes, nil),
		boxes:    boxes,
		registry: registry,
		store:    store,
	}
}

func (f *fixture) connect(id string) {
	f.boxes.open(id)
	f.router.Connect(id)
}

func (f *fixture) disconnect(id string) {
	f.boxes.close(id)
	f.router.Disconnect(id)
}

func (f *fixture) frame(t *testing.T, id, raw string) error {
	t.Helper()
	return f.router.HandleFrame(id, []byte(raw))
}

func events(outs []models.Outbound) []models.EventName {
	names := []models.EventName{}
	for _, o := range outs {
		names = append(names, o.Event)
	}
	return names
}

func TestRouter_ScenarioA_ConnectAndRegister(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c0")
	f.boxes.drainAll()

	// When C1 connects
	f.connect("c1")

	// Then it alone receives an empty history
	got := f.boxes.drain("c1")
	req.Len(got, 1)
	req.Equal(models.EventInitMessages, got[0].Event)
	req.Equal([]models.Message{}, got[0].Data)
	req.Empty(f.boxes.drain("c0"))
	req.Equal(StateUnregistered, f.router.State("c1"))

	// When C1 registers as alice
	req.NoError(f.frame(t, "c1", `{"event":"register_user","data":"alice"}`))

	// Then everyone, including C1, is told alice joined
	for _, id := range []string{"c0", "c1"} {
		outs := f.boxes.drain(id)
		req.NotEmpty(outs, id)
		req.Equal(models.EventUserJoined, outs[0].Event)
		joined := outs[0].Data.(models.PresencePayload)
		req.Equal("alice", joined.Username)
		req.Equal("c1", joined.ID)
		req.False(joined.Timestamp.IsZero())
	}
	req.Equal(StateRegistered, f.router.State("c1"))
}

func TestRouter_Register_SendsCurrentUsersToRegistrant(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.connect("c2")
	req.NoError(f.router.Dispatch("c1", models.RegisterUser{Username: "alice"}))
	f.boxes.drainAll()

	req.NoError(f.router.Dispatch("c2", models.RegisterUser{Username: "bob"}))

	c2 := f.boxes.drain("c2")
	req.Equal([]models.EventName{models.EventUserJoined, models.EventCurrentUsers}, events(c2))
	users := c2[1].Data.([]models.PresencePayload)
	req.Len(users, 2)
	req.Equal("alice", users[0].Username)
	req.Equal("bob", users[1].Username)

	req.Equal([]models.EventName{models.EventUserJoined}, events(f.boxes.drain("c1")))
}

func TestRouter_ScenarioB_ChatMessage(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.connect("c2")
	req.NoError(f.router.Dispatch("c1", models.RegisterUser{Username: "alice"}))
	f.boxes.drainAll()

	req.NoError(f.frame(t, "c1", `{"event":"chat message","data":{"text":"hi"}}`))

	for _, id := range []string{"c1", "c2"} {
		outs := f.boxes.drain(id)
		req.Len(outs, 1)
		req.Equal(models.EventChatMessage, outs[0].Event)
		msg := outs[0].Data.(models.Message)
		req.Equal("hi", msg.Text)
		req.Equal("alice", msg.Sender)
		req.Equal("c1", msg.SenderID)
		req.NotEmpty(msg.ID)
		req.False(msg.Timestamp.IsZero())
		req.NotNil(msg.Reactions)
		req.Empty(msg.Reactions)
	}
	req.Equal(1, f.store.Count())
}

func TestRouter_ChatMessage_ClientIDKept(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")

	req.NoError(f.router.Dispatch("c1", models.ChatMessage{ID: "1700000000000", Text: "hi"}))

	msg, ok := f.store.Find("1700000000000")
	req.True(ok)
	req.Equal("hi", msg.Text)
}

func TestRouter_ChatMessage_BlankTextIsDropped(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.boxes.drainAll()

	err := f.frame(t, "c1", `{"event":"chat message","data":{"text":"   "}}`)

	req.ErrorIs(err, database.ErrInvalidMessage)
	req.Empty(f.boxes.drain("c1"))
	req.Zero(f.store.Count())
}

func TestRouter_ChatMessage_AnonymousSender(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.boxes.drainAll()

	req.NoError(f.router.Dispatch("c1", models.ChatMessage{Text: "who am i"}))

	outs := f.boxes.drain("c1")
	req.Len(outs, 1)
	msg := outs[0].Data.(models.Message)
	req.Equal(models.AnonymousUsername, msg.Sender)
	req.Equal("c1", msg.SenderID)
}

func TestRouter_ScenarioC_ReactionToggle(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.connect("c2")
	req.NoError(f.router.Dispatch("c1", models.RegisterUser{Username: "alice"}))
	req.NoError(f.router.Dispatch("c1", models.ChatMessage{ID: "m1", Text: "hi"}))
	f.boxes.drainAll()

	// When alice toggles a thumbs up
	req.NoError(f.frame(t, "c1", `{"event":"add_reaction","data":{"messageId":"m1","reaction":"👍"}}`))

	// Then everyone receives the full reaction map
	for _, id := range []string{"c1", "c2"} {
		outs := f.boxes.drain(id)
		req.Len(outs, 1)
		req.Equal(models.EventUpdateReactions, outs[0].Event)
		req.Equal(models.ReactionUpdatePayload{
			MessageID: "m1",
			Reactions: models.ReactionMap{"👍": {{UserID: "c1", Username: "alice"}}},
		}, outs[0].Data)
	}

	// When she toggles it again
	req.NoError(f.router.Dispatch("c1", models.AddReaction{MessageID: "m1", Reaction: "👍"}))

	// Then the map is empty
	for _, id := range []string{"c1", "c2"} {
		outs := f.boxes.drain(id)
		req.Len(outs, 1)
		req.Equal(models.ReactionUpdatePayload{MessageID: "m1", Reactions: models.ReactionMap{}}, outs[0].Data)
	}
}

func TestRouter_Reaction_UnknownMessageIsSilent(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.boxes.drainAll()

	err := f.router.Dispatch("c1", models.AddReaction{MessageID: "nope", Reaction: "👍"})

	req.ErrorIs(err, database.ErrNotFound)
	req.Empty(f.boxes.drain("c1"))
}

func TestRouter_Reaction_AnonymousReactor(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	req.NoError(f.router.Dispatch("c1", models.ChatMessage{ID: "m1", Text: "hi"}))
	f.boxes.drainAll()

	req.NoError(f.router.Dispatch("c1", models.AddReaction{MessageID: "m1", Reaction: "🔥"}))

	msg, _ := f.store.Find("m1")
	req.Equal(models.ReactionMap{"🔥": {{UserID: "c1", Username: models.AnonymousUsername}}}, msg.Reactions)
}

func TestRouter_ScenarioD_Typing(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.connect("c2")
	req.NoError(f.router.Dispatch("c1", models.RegisterUser{Username: "alice"}))
	req.NoError(f.router.Dispatch("c2", models.RegisterUser{Username: "bob"}))
	f.boxes.drainAll()

	// When bob types
	req.NoError(f.frame(t, "c2", `{"event":"typing"}`))

	// Then alice sees it and bob does not
	c1 := f.boxes.drain("c1")
	req.Len(c1, 1)
	req.Equal(models.EventUserTyping, c1[0].Event)
	req.Equal(models.TypingPayload{Username: "bob", ID: "c2"}, c1[0].Data)
	req.Empty(f.boxes.drain("c2"))

	// When bob stops
	req.NoError(f.frame(t, "c2", `{"event":"stop typing"}`))

	c1 = f.boxes.drain("c1")
	req.Len(c1, 1)
	req.Equal(models.Outbound{Event: models.EventUserStopTyping, Data: models.StopTypingPayload{ID: "c2"}}, c1[0])
	req.Empty(f.boxes.drain("c2"))
}

func TestRouter_Typing_UnregisteredIsSuppressed(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.connect("c2")
	f.boxes.drainAll()

	req.NoError(f.router.Dispatch("c2", models.Typing{}))
	req.Empty(f.boxes.drain("c1"))

	// stop typing carries no name and is still relayed
	req.NoError(f.router.Dispatch("c2", models.StopTyping{}))
	req.Equal([]models.EventName{models.EventUserStopTyping}, events(f.boxes.drain("c1")))
}

func TestRouter_ScenarioE_Disconnect(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.connect("c2")
	req.NoError(f.router.Dispatch("c1", models.RegisterUser{Username: "alice"}))
	f.boxes.drainAll()

	// When alice disconnects
	f.disconnect("c1")

	// Then the remaining connection is told she left
	outs := f.boxes.drain("c2")
	req.Len(outs, 1)
	req.Equal(models.EventUserLeft, outs[0].Event)
	left := outs[0].Data.(models.PresencePayload)
	req.Equal("alice", left.Username)
	req.Equal("c1", left.ID)

	// And her registry entry is gone
	_, ok := f.registry.Get("c1")
	req.False(ok)
	req.Equal(StateClosed, f.router.State("c1"))
}

func TestRouter_Disconnect_WhileTypingClearsIndicator(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.connect("c2")
	req.NoError(f.router.Dispatch("c2", models.RegisterUser{Username: "bob"}))
	req.NoError(f.router.Dispatch("c2", models.Typing{}))
	f.boxes.drainAll()

	f.disconnect("c2")

	req.Equal([]models.EventName{models.EventUserStopTyping, models.EventUserLeft}, events(f.boxes.drain("c1")))
}

func TestRouter_Disconnect_UnregisteredEmitsNothing(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.connect("c2")
	f.boxes.drainAll()

	f.disconnect("c2")

	req.Empty(f.boxes.drain("c1"))
}

func TestRouter_Reregistration_DuplicatesJoin(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.boxes.drainAll()

	req.NoError(f.router.Dispatch("c1", models.RegisterUser{Username: "alice"}))
	req.NoError(f.router.Dispatch("c1", models.RegisterUser{Username: "alice2"}))

	joins := 0
	for _, out := range f.boxes.drain("c1") {
		if out.Event == models.EventUserJoined {
			joins++
		}
	}
	req.Equal(2, joins)
	user, _ := f.registry.Get("c1")
	req.Equal("alice2", user.Username)
	req.Equal(1, f.registry.Count())
}

func TestRouter_Register_BlankNameKeepsUnregistered(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.boxes.drainAll()

	err := f.router.Dispatch("c1", models.RegisterUser{Username: "  "})

	req.ErrorIs(err, database.ErrInvalidUsername)
	req.Equal(StateUnregistered, f.router.State("c1"))
	req.Empty(f.boxes.drain("c1"))
}

func TestRouter_LateJoinerReceivesHistory(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	req.NoError(f.router.Dispatch("c1", models.RegisterUser{Username: "alice"}))
	req.NoError(f.router.Dispatch("c1", models.ChatMessage{ID: "m1", Text: "first"}))
	req.NoError(f.router.Dispatch("c1", models.ChatMessage{ID: "m2", Text: "second"}))
	req.NoError(f.router.Dispatch("c1", models.AddReaction{MessageID: "m1", Reaction: "👍"}))

	f.connect("c2")

	outs := f.boxes.drain("c2")
	req.Len(outs, 1)
	history := outs[0].Data.([]models.Message)
	req.Len(history, 2)
	req.Equal("m1", history[0].ID)
	req.Equal("m2", history[1].ID)
	req.Len(history[0].Reactions["👍"], 1)
}

func TestRouter_RejectsEventsAfterClose(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.connect("c2")
	f.disconnect("c1")
	f.boxes.drainAll()

	err := f.router.Dispatch("c1", models.ChatMessage{Text: "ghost"})

	req.ErrorIs(err, ErrUnknownConnection)
	req.Zero(f.store.Count())
	req.Empty(f.boxes.drain("c2"))
}

func TestRouter_HandleFrame_Malformed(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.connect("c1")
	f.boxes.drainAll()

	req.Error(f.frame(t, "c1", `garbage`))
	req.ErrorIs(f.frame(t, "c1", `{"event":"shout","data":"x"}`), models.ErrUnknownEvent)
	req.ErrorIs(f.frame(t, "c1", `{"event":"add_reaction","data":{"messageId":""}}`), models.ErrInvalidPayload)
	req.Empty(f.boxes.drain("c1"))
}
