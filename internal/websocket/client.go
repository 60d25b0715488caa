package websocket

import (
	"time"

	"livechat/internal/config"
	"livechat/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client is one websocket connection. ReadPump feeds frames to the hub; WritePump
// drains send back to the socket so a slow browser never blocks the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
	cfg  config.WebSocketConfig
}

func NewClient(hub *Hub, conn *websocket.Conn, id string, cfg config.WebSocketConfig) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, cfg.SendBufferSize),
		id:   id,
		cfg:  cfg,
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Error("WebSocket error on %s: %v", c.id, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			logger.Debug("Ignoring non-text frame from %s", c.id)
			continue
		}
		if !c.hub.Submit(c, message) {
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error on %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
