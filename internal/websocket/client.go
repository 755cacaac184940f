package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512 * 1024

	sendQueueSize = 256
)

// ClientMessageHandler receives every event a client sends, and is told
// when the connection goes away.
type ClientMessageHandler interface {
	HandleMessage(client *Client, msg *Message) error
	HandleDisconnect(client *Client)
}

type Client struct {
	ID         string
	RemoteAddr string
	// Credential presented on the upgrade request, if any.
	Credential string
	Conn       *websocket.Conn
	Send       chan []byte
	Hub        *Hub

	rooms map[string]bool
	mu    sync.RWMutex
}

func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr, credential string) *Client {
	return &Client{
		ID:         uuid.NewString(),
		RemoteAddr: remoteAddr,
		Credential: credential,
		Conn:       conn,
		Send:       make(chan []byte, sendQueueSize),
		Hub:        hub,
		rooms:      make(map[string]bool),
	}
}

// ReadPump reads events from the connection until it fails, then reports
// the disconnect and unregisters the client.
func (c *Client) ReadPump(handler ClientMessageHandler) {
	defer func() {
		if handler != nil {
			handler.HandleDisconnect(c)
		}
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Info("websocket read error", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			c.SendError("", ErrInvalidMessage)
			continue
		}

		switch msg.Type {
		case TypePong:
			continue
		case TypePing:
			c.Hub.Send(c, TypePong, "", msg.RequestID, nil)
			continue
		}

		if handler != nil {
			if err := handler.HandleMessage(c, &msg); err != nil {
				c.Hub.log.Debug("event rejected",
					zap.String("client_id", c.ID),
					zap.String("type", string(msg.Type)),
					zap.Error(err))
				c.SendError(msg.RequestID, err)
			}
		}
	}
}

// WritePump writes queued events to the connection and keeps it alive with
// pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the queue
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			n := len(c.Send)
			for i := 0; i < n; i++ {
				queued, ok := <-c.Send
				if !ok {
					c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.Conn.WriteMessage(websocket.TextMessage, queued); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage queues a direct event for this client.
func (c *Client) SendMessage(msgType MessageType, roomID, requestID string, data interface{}) error {
	return c.Hub.Send(c, msgType, roomID, requestID, data)
}

func (c *Client) SendError(requestID string, err error) {
	c.SendMessage(TypeError, "", requestID, map[string]string{
		"error": err.Error(),
	})
}

func (c *Client) IsInRoom(roomID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[roomID]
}

func (c *Client) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

func (c *Client) setRoom(roomID string, in bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if in {
		c.rooms[roomID] = true
	} else {
		delete(c.rooms, roomID)
	}
}
