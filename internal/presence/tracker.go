// Package presence maps live connections to users and drives the
// join/leave/disconnect transitions of each room's online set.
package presence

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/store"
	"github.com/thereayou/cipherchat/internal/websocket"
)

type OnlineCount struct {
	Room  string `json:"room"`
	Count int    `json:"count"`
}

type StatusLine struct {
	Msg string `json:"msg"`
}

type TypingStatus struct {
	Room        string   `json:"room"`
	TypingUsers []string `json:"typing_users"`
}

type FilesList struct {
	Room  string              `json:"room"`
	Files []models.FileRecord `json:"files"`
}

// RoomPresence is a snapshot of who is online in a room.
type RoomPresence struct {
	RoomID string   `json:"room_id"`
	Online []string `json:"online_users"`
	Count  int      `json:"count"`
}

type Tracker struct {
	store *store.Store
	hub   *websocket.Hub
	log   *zap.Logger

	mu     sync.Mutex
	byConn map[string]string
	byUser map[string]string
}

func NewTracker(s *store.Store, hub *websocket.Hub, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		store:  s,
		hub:    hub,
		log:    log,
		byConn: make(map[string]string),
		byUser: make(map[string]string),
	}
}

// bind records conn as the user's connection. A previous connection of the
// same user stops resolving to anyone.
func (t *Tracker) bind(connID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.byConn[connID]; ok && prev != userID {
		delete(t.byUser, prev)
	}
	if old, ok := t.byUser[userID]; ok && old != connID {
		delete(t.byConn, old)
	}
	t.byConn[connID] = userID
	t.byUser[userID] = connID
}

// UserFor resolves the user bound to a connection.
func (t *Tracker) UserFor(connID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	userID, ok := t.byConn[connID]
	return userID, ok
}

// Join marks the user online in the room, subscribes the connection and
// sends it the room's file list.
func (t *Tracker) Join(client *websocket.Client, roomID, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}

	err := t.store.Update(roomID, func(r *store.Room) error {
		if err := t.hub.Subscribe(client, roomID); err != nil {
			return err
		}
		t.bind(client.ID, userID)

		if r.SetTyping(userID, false) {
			t.hub.Broadcast(roomID, websocket.TypeTypingStatus, TypingStatus{Room: roomID, TypingUsers: r.TypingUsers()})
		}
		r.AddOnline(userID)
		t.announce(r, fmt.Sprintf("👋 %s has joined the room", userID))

		if err := t.hub.Send(client, websocket.TypeFilesList, roomID, "", FilesList{Room: roomID, Files: r.Files()}); err != nil {
			t.log.Warn("failed to send files list", zap.String("client_id", client.ID), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.log.Debug("user joined", zap.String("room_id", roomID), zap.String("user_id", userID))
	return nil
}

// Leave takes the user out of the room and unsubscribes the connection.
func (t *Tracker) Leave(client *websocket.Client, roomID, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}
	return t.store.Update(roomID, func(r *store.Room) error {
		t.depart(r, userID, "has left the room")
		t.hub.Unsubscribe(client, roomID)
		return nil
	})
}

// Disconnect handles a dropped connection. Only a connection that still
// resolves to a user triggers any broadcast.
func (t *Tracker) Disconnect(client *websocket.Client) {
	t.mu.Lock()
	userID, ok := t.byConn[client.ID]
	if ok {
		delete(t.byConn, client.ID)
		delete(t.byUser, userID)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	for _, roomID := range t.store.RoomIDs() {
		err := t.store.Update(roomID, func(r *store.Room) error {
			if r.IsOnline(userID) {
				t.depart(r, userID, "has disconnected")
			}
			return nil
		})
		if err != nil {
			t.log.Debug("room vanished during disconnect", zap.String("room_id", roomID), zap.Error(err))
		}
	}
	t.log.Debug("user disconnected", zap.String("user_id", userID))
}

// depart must be called with the room locked.
func (t *Tracker) depart(r *store.Room, userID, verb string) {
	if !r.RemoveOnline(userID) {
		return
	}
	if r.SetTyping(userID, false) {
		t.hub.Broadcast(r.ID(), websocket.TypeTypingStatus, TypingStatus{Room: r.ID(), TypingUsers: r.TypingUsers()})
	}
	t.announce(r, fmt.Sprintf("👋 %s %s", userID, verb))
}

func (t *Tracker) announce(r *store.Room, line string) {
	t.hub.Broadcast(r.ID(), websocket.TypeOnlineCount, OnlineCount{Room: r.ID(), Count: r.OnlineCount()})
	t.hub.Broadcast(r.ID(), websocket.TypeStatus, StatusLine{Msg: line})
}

func (t *Tracker) RoomPresence(roomID string) (RoomPresence, error) {
	var p RoomPresence
	err := t.store.View(roomID, func(r *store.Room) error {
		p = RoomPresence{RoomID: roomID, Online: r.OnlineUsers(), Count: r.OnlineCount()}
		return nil
	})
	return p, err
}
