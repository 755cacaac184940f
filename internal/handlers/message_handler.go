package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/access"
	"github.com/thereayou/cipherchat/internal/handlers/dto"
	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/presence"
	"github.com/thereayou/cipherchat/internal/services"
	"github.com/thereayou/cipherchat/internal/websocket"
)

// MessageHandler dispatches push path events. It implements
// websocket.ClientMessageHandler.
type MessageHandler struct {
	chat    *services.ChatService
	tracker *presence.Tracker
	guard   *access.Guard
	log     *zap.Logger
}

func NewMessageHandler(chat *services.ChatService, tracker *presence.Tracker, guard *access.Guard, log *zap.Logger) *MessageHandler {
	return &MessageHandler{chat: chat, tracker: tracker, guard: guard, log: log.Named("push")}
}

func (h *MessageHandler) HandleMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeJoin:
		return h.handleJoin(client, msg)
	case websocket.TypeLeave:
		return h.handleLeave(client, msg)
	case websocket.TypeMessage:
		return h.handleTextMessage(client, msg)
	case websocket.TypeTyping:
		return h.handleTyping(client, msg)
	case websocket.TypeReaction:
		return h.handleReaction(client, msg)
	case websocket.TypeMarkRead:
		return h.handleMarkRead(client, msg)
	default:
		h.log.Debug("unknown event type", zap.String("type", string(msg.Type)))
		return fmt.Errorf("%w: unknown type %q", websocket.ErrInvalidMessage, msg.Type)
	}
}

func (h *MessageHandler) HandleDisconnect(client *websocket.Client) {
	h.tracker.Disconnect(client)
}

func decode(msg *websocket.Message, v interface{}) error {
	if len(msg.Data) == 0 {
		return websocket.ErrInvalidMessage
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("%w: %v", websocket.ErrInvalidMessage, err)
	}
	return nil
}

func roomOf(room string, msg *websocket.Message) (string, error) {
	if room == "" {
		room = msg.RoomID
	}
	if room == "" {
		return "", fmt.Errorf("%w: room is required", models.ErrValidation)
	}
	return room, nil
}

// member rejects events for rooms the connection has not joined.
func member(client *websocket.Client, roomID string) error {
	if !client.IsInRoom(roomID) {
		return websocket.ErrUserNotInRoom
	}
	return nil
}

func (h *MessageHandler) handleJoin(client *websocket.Client, msg *websocket.Message) error {
	var p dto.JoinPayload
	if err := decode(msg, &p); err != nil {
		return err
	}
	roomID, err := roomOf(p.Room, msg)
	if err != nil {
		return err
	}

	credential := p.Token
	if credential == "" {
		credential = client.Credential
	}
	err = h.guard.Authorize(context.Background(), roomID, access.Proof{
		Credential: credential,
		Origin:     client.RemoteAddr,
		Password:   p.Password,
	})
	if err != nil {
		return err
	}
	return h.tracker.Join(client, roomID, p.UserID)
}

func (h *MessageHandler) handleLeave(client *websocket.Client, msg *websocket.Message) error {
	var p dto.LeavePayload
	if err := decode(msg, &p); err != nil {
		return err
	}
	roomID, err := roomOf(p.Room, msg)
	if err != nil {
		return err
	}
	if err := member(client, roomID); err != nil {
		return err
	}
	return h.tracker.Leave(client, roomID, p.UserID)
}

func (h *MessageHandler) handleTextMessage(client *websocket.Client, msg *websocket.Message) error {
	var p dto.MessagePayload
	if err := decode(msg, &p); err != nil {
		return err
	}
	roomID, err := roomOf(p.Room, msg)
	if err != nil {
		return err
	}
	if err := member(client, roomID); err != nil {
		return err
	}
	userID := p.UserID
	if userID == "" {
		userID = anonymousUser
	}
	stored, err := h.chat.PostMessage(roomID, models.NewMessage{
		UserID:   userID,
		ClientIP: client.RemoteAddr,
		Body:     p.Message,
		Media:    p.Media,
	})
	if err != nil {
		return err
	}

	return client.SendMessage(websocket.TypeAck, roomID, msg.RequestID, dto.MessageAck{
		Status:    "success",
		MessageID: stored.ID,
	})
}

func (h *MessageHandler) handleTyping(client *websocket.Client, msg *websocket.Message) error {
	var p dto.TypingPayload
	if err := decode(msg, &p); err != nil {
		return err
	}
	roomID, err := roomOf(p.Room, msg)
	if err != nil {
		return err
	}
	if err := member(client, roomID); err != nil {
		return err
	}
	_, err = h.chat.SetTyping(roomID, p.UserID, p.IsTyping)
	return err
}

func (h *MessageHandler) handleReaction(client *websocket.Client, msg *websocket.Message) error {
	var p dto.ReactionPayload
	if err := decode(msg, &p); err != nil {
		return err
	}
	roomID, err := roomOf(p.Room, msg)
	if err != nil {
		return err
	}
	if err := member(client, roomID); err != nil {
		return err
	}
	if p.MessageID == "" || p.UserID == "" || p.Reaction == "" {
		return fmt.Errorf("%w: message_id, user_id and reaction are required", models.ErrValidation)
	}
	_, err = h.chat.React(roomID, p.MessageID, p.UserID, p.Reaction)
	return err
}

func (h *MessageHandler) handleMarkRead(client *websocket.Client, msg *websocket.Message) error {
	var p dto.MarkReadPayload
	if err := decode(msg, &p); err != nil {
		return err
	}
	roomID, err := roomOf(p.Room, msg)
	if err != nil {
		return err
	}
	if err := member(client, roomID); err != nil {
		return err
	}
	if p.UserID == "" {
		return fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}
	_, err = h.chat.MarkRead(roomID, p.UserID, p.MessageIDs)
	return err
}
