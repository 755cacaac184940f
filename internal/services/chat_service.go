package services

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/presence"
	"github.com/thereayou/cipherchat/internal/store"
	"github.com/thereayou/cipherchat/internal/websocket"
)

type MessagesRead struct {
	RoomID     string   `json:"room_id"`
	MessageIDs []string `json:"message_ids"`
	ReadBy     string   `json:"read_by"`
}

type ReactionUpdate struct {
	MessageID string             `json:"message_id"`
	Reactions models.ReactionSet `json:"reactions"`
}

// ChatService applies room operations and publishes the resulting events
// while the room is still locked, so subscribers see them in mutation order.
// Callers are expected to have authorized the request already.
type ChatService struct {
	store    *store.Store
	hub      *websocket.Hub
	profiles ProfileStore
	log      *zap.Logger
}

func NewChatService(s *store.Store, hub *websocket.Hub, profiles ProfileStore, log *zap.Logger) *ChatService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatService{store: s, hub: hub, profiles: profiles, log: log}
}

// CreateRoom creates or resets a room. It reports whether a room was reset.
func (s *ChatService) CreateRoom(roomID, password string) (bool, error) {
	return s.store.CreateRoom(roomID, password)
}

func (s *ChatService) DeleteRoom(roomID string) error {
	return s.store.DeleteRoom(roomID)
}

func (s *ChatService) ClearChat(roomID string) error {
	err := s.store.Update(roomID, func(r *store.Room) error {
		r.Clear()
		return nil
	})
	if err == nil {
		s.log.Info("chat cleared", zap.String("room_id", roomID))
	}
	return err
}

func (s *ChatService) username(userID string) string {
	if s.profiles == nil {
		return userID
	}
	return s.profiles.Username(userID)
}

// PostMessage stores a message and broadcasts it to the room.
func (s *ChatService) PostMessage(roomID string, nm models.NewMessage) (*models.Message, error) {
	if nm.Username == "" && nm.UserID != "" {
		nm.Username = s.username(nm.UserID)
	}

	var msg *models.Message
	err := s.store.Update(roomID, func(r *store.Room) error {
		var err error
		msg, err = r.AppendMessage(nm)
		if err != nil {
			return err
		}
		return s.hub.Broadcast(roomID, websocket.TypeMessage, msg)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns the room history annotated for userID, marking it
// read when asked to.
func (s *ChatService) ListMessages(roomID, userID string, markAsRead bool) ([]models.MessageView, error) {
	var views []models.MessageView
	err := s.store.Update(roomID, func(r *store.Room) error {
		var changed []string
		var err error
		views, changed, err = r.ListMessages(userID, markAsRead)
		if err != nil {
			return err
		}
		if len(changed) > 0 {
			s.hub.Broadcast(roomID, websocket.TypeMessagesRead, MessagesRead{RoomID: roomID, MessageIDs: changed, ReadBy: userID})
		}
		return nil
	})
	return views, err
}

// MarkRead adds userID to the read set of ids and returns those that changed.
func (s *ChatService) MarkRead(roomID, userID string, ids []string) ([]string, error) {
	var changed []string
	err := s.store.Update(roomID, func(r *store.Room) error {
		var err error
		changed, err = r.MarkRead(ids, userID)
		if len(changed) > 0 {
			s.hub.Broadcast(roomID, websocket.TypeMessagesRead, MessagesRead{RoomID: roomID, MessageIDs: changed, ReadBy: userID})
		}
		return err
	})
	if changed == nil {
		changed = []string{}
	}
	return changed, err
}

// DeleteMessage removes a message if userID sent it or isPasswordHolder.
func (s *ChatService) DeleteMessage(roomID, messageID, userID string, isPasswordHolder bool) (models.DeletedMessage, *models.Message, error) {
	var (
		deleted models.DeletedMessage
		msg     *models.Message
	)
	err := s.store.Update(roomID, func(r *store.Room) error {
		var err error
		msg, err = r.DeleteMessage(messageID, userID, isPasswordHolder)
		if err != nil {
			return err
		}
		deleted = models.DeletedMessage{
			MessageID:     messageID,
			DeletedBy:     userID,
			IsAdminDelete: msg.UserID != userID,
		}
		return s.hub.Broadcast(roomID, websocket.TypeMessageDeleted, deleted)
	})
	return deleted, msg, err
}

func (s *ChatService) Search(roomID, query string) ([]models.Message, error) {
	var results []models.Message
	err := s.store.View(roomID, func(r *store.Room) error {
		var err error
		results, err = r.Search(query)
		return err
	})
	return results, err
}

func (s *ChatService) React(roomID, messageID, userID, symbol string) (models.ReactionSet, error) {
	var set models.ReactionSet
	err := s.store.Update(roomID, func(r *store.Room) error {
		var err error
		set, err = r.AddReaction(messageID, userID, symbol)
		if err != nil {
			return err
		}
		return s.hub.Broadcast(roomID, websocket.TypeReactionUpdate, ReactionUpdate{MessageID: messageID, Reactions: set})
	})
	return set, err
}

// SetTyping updates the typing set and broadcasts it.
func (s *ChatService) SetTyping(roomID, userID string, typing bool) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}
	var users []string
	err := s.store.Update(roomID, func(r *store.Room) error {
		r.SetTyping(userID, typing)
		users = r.TypingUsers()
		return s.hub.Broadcast(roomID, websocket.TypeTypingStatus, presence.TypingStatus{Room: roomID, TypingUsers: users})
	})
	return users, err
}
