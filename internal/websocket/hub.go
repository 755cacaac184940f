package websocket

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const pingInterval = 30 * time.Second

// Hub tracks live clients and the rooms they are subscribed to. Every send
// is non-blocking, so Broadcast may be called while a room lock is held.
type Hub struct {
	clients map[string]*Client
	rooms   map[string]map[string]*Client

	mu  sync.RWMutex
	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Run sends application level pings until Stop is called.
func (h *Hub) Run() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.ping()
		}
	}
}

// Stop closes every client queue. Write pumps then close their connections.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		close(client.Send)
		delete(h.clients, id)
	}
	h.rooms = make(map[string]map[string]*Client)
}

func (h *Hub) Register(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return ErrClientGone
	}
	h.clients[client.ID] = client
	h.log.Debug("client registered", zap.String("client_id", client.ID), zap.String("remote_addr", client.RemoteAddr))
	return nil
}

// Unregister removes the client from every room and closes its queue.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	for _, roomID := range client.Rooms() {
		h.unsubscribeUnsafe(client, roomID)
	}
	delete(h.clients, client.ID)
	close(client.Send)

	h.log.Debug("client unregistered", zap.String("client_id", client.ID))
}

// Subscribe adds the client to the room's fan-out set.
func (h *Hub) Subscribe(client *Client, roomID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return ErrClientGone
	}
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
	client.setRoom(roomID, true)
	return nil
}

func (h *Hub) Unsubscribe(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unsubscribeUnsafe(client, roomID)
}

func (h *Hub) unsubscribeUnsafe(client *Client, roomID string) {
	if room, ok := h.rooms[roomID]; ok {
		delete(room, client.ID)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
	client.setRoom(roomID, false)
}

// DropRoom unsubscribes everyone from a room that no longer exists.
func (h *Hub) DropRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.rooms[roomID] {
		client.setRoom(roomID, false)
	}
	delete(h.rooms, roomID)
}

// Broadcast delivers an event to every client subscribed to roomID. A client
// whose queue is full misses this event; nobody else is affected.
func (h *Hub) Broadcast(roomID string, msgType MessageType, payload interface{}) error {
	data, err := encode(msgType, roomID, "", payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[roomID] {
		select {
		case client.Send <- data:
		default:
			h.log.Warn("client send queue full, dropping event",
				zap.String("client_id", client.ID),
				zap.String("room_id", roomID),
				zap.String("type", string(msgType)))
		}
	}
	return nil
}

// Send delivers an event to one client.
func (h *Hub) Send(client *Client, msgType MessageType, roomID, requestID string, payload interface{}) error {
	data, err := encode(msgType, roomID, requestID, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[client.ID]; !ok {
		return ErrClientGone
	}
	select {
	case client.Send <- data:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (h *Hub) ping() {
	data, err := encode(TypePing, "", "", nil)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// RoomClients returns the number of connections subscribed to a room.
func (h *Hub) RoomClients(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
