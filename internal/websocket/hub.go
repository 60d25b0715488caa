package websocket

import (
	"context"
	"sync/atomic"

	"livechat/internal/database"
	"livechat/internal/models"
	"livechat/pkg/logger"
)

type inboundFrame struct {
	client *Client
	frame  []byte
}

// Hub runs the process event loop: it owns the set of live clients, feeds their
// events to the Router one at a time and fans the resulting events out. A client
// whose send queue is full is dropped rather than allowed to stall the others.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame
	done       chan struct{}

	router   *Router
	registry database.ConnectionRegistry
	store    database.MessageStore
	metrics  *Metrics

	// dropped holds clients evicted during fan-out; their disconnect is
	// processed once the current event completes.
	dropped     []string
	connections atomic.Int64
}

func NewHub(registry database.ConnectionRegistry, store database.MessageStore, metrics *Metrics) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundFrame),
		done:       make(chan struct{}),
		registry:   registry,
		store:      store,
		metrics:    metrics,
	}
	h.router = NewRouter(registry, store, h, metrics)
	return h
}

// Run processes events until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.connections.Store(0)
			logger.Info("Hub stopped")
			return

		case client := <-h.register:
			h.clients[client.id] = client
			h.connections.Add(1)
			h.metrics.connectionOpened()
			logger.Info("Client %s connected", client.id)
			h.router.Connect(client.id)

		case client := <-h.unregister:
			if h.remove(client.id) {
				logger.Info("Client %s disconnected", client.id)
				h.router.Disconnect(client.id)
			}

		case in := <-h.inbound:
			if _, ok := h.clients[in.client.id]; ok {
				_ = h.router.HandleFrame(in.client.id, in.frame)
			}
		}
		h.flushDropped()
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Connect hands a new client to the event loop. It reports false once the hub has stopped.
func (h *Hub) Connect(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Disconnect(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) Submit(c *Client, frame []byte) bool {
	select {
	case h.inbound <- inboundFrame{client: c, frame: frame}:
		return true
	case <-h.done:
		return false
	}
}

type Stats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
	Messages    int `json:"messages"`
}

// Stats is safe to call from any goroutine.
func (h *Hub) Stats() Stats {
	return Stats{
		Connections: int(h.connections.Load()),
		Users:       h.registry.Count(),
		Messages:    h.store.Count(),
	}
}

// Send, Broadcast and BroadcastExcept implement Emitter. They run on the Run goroutine.

func (h *Hub) Send(connectionID string, out models.Outbound) {
	client, ok := h.clients[connectionID]
	if !ok {
		return
	}
	frame, ok := encode(out)
	if !ok {
		return
	}
	h.deliver(client, out.Event, frame)
}

func (h *Hub) Broadcast(out models.Outbound) {
	h.BroadcastExcept("", out)
}

func (h *Hub) BroadcastExcept(connectionID string, out models.Outbound) {
	frame, ok := encode(out)
	if !ok {
		return
	}
	for id, client := range h.clients {
		if id != connectionID {
			h.deliver(client, out.Event, frame)
		}
	}
}

func (h *Hub) deliver(client *Client, event models.EventName, frame []byte) {
	select {
	case client.send <- frame:
		h.metrics.outboundEvent(event)
	default:
		logger.Warn("Client %s is not keeping up, dropping connection", client.id)
		h.metrics.slowClientDropped()
		h.remove(client.id)
		h.dropped = append(h.dropped, client.id)
	}
}

// remove closes the client's send queue and forgets it. It reports whether the client was present.
func (h *Hub) remove(id string) bool {
	client, ok := h.clients[id]
	if !ok {
		return false
	}
	delete(h.clients, id)
	close(client.send)
	h.connections.Add(-1)
	h.metrics.connectionClosed()
	return true
}

func (h *Hub) flushDropped() {
	for len(h.dropped) > 0 {
		id := h.dropped[0]
		h.dropped = h.dropped[1:]
		h.router.Disconnect(id)
	}
}

func encode(out models.Outbound) ([]byte, bool) {
	frame, err := out.Encode()
	if err != nil {
		logger.Error("Error marshaling %s event: %v", out.Event, err)
		return nil, false
	}
	return frame, true
}
