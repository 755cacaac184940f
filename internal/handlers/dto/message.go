package dto

import "github.com/thereayou/cipherchat/internal/models"

type SendMessageRequest struct {
	Message  string        `json:"message"`
	Password string        `json:"password"`
	UserID   string        `json:"user_id"`
	Media    *models.Media `json:"media"`
}

type MarkReadRequest struct {
	MessageIDs []string `json:"message_ids"`
	UserID     string   `json:"user_id"`
	Password   string   `json:"password"`
}

// Push path payloads.

type JoinPayload struct {
	Room     string `json:"room"`
	UserID   string `json:"user_id"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

type LeavePayload struct {
	Room   string `json:"room"`
	UserID string `json:"user_id"`
}

type MessagePayload struct {
	Room    string        `json:"room"`
	UserID  string        `json:"user_id"`
	Message string        `json:"message"`
	Media   *models.Media `json:"media,omitempty"`
}

type TypingPayload struct {
	Room     string `json:"room"`
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

type ReactionPayload struct {
	Room      string `json:"room"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Reaction  string `json:"reaction"`
}

type MarkReadPayload struct {
	Room       string   `json:"room"`
	UserID     string   `json:"user_id"`
	MessageIDs []string `json:"message_ids"`
}

type MessageAck struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
}
