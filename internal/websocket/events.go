package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	TypePing  MessageType = "ping"
	TypePong  MessageType = "pong"
	TypeAck   MessageType = "ack"
	TypeError MessageType = "error"

	// client -> server
	TypeJoin     MessageType = "join"
	TypeLeave    MessageType = "leave"
	TypeTyping   MessageType = "typing"
	TypeReaction MessageType = "reaction"
	TypeMarkRead MessageType = "mark_read"

	// both directions
	TypeMessage MessageType = "message"

	// server -> client
	TypeOnlineCount    MessageType = "online_count"
	TypeStatus         MessageType = "status"
	TypeTypingStatus   MessageType = "typing_status"
	TypeReactionUpdate MessageType = "reaction_update"
	TypeFilesList      MessageType = "files_list"
	TypeFileUploaded   MessageType = "file_uploaded"
	TypeFileDeleted    MessageType = "file_deleted"
	TypeMessageDeleted MessageType = "message_deleted"
	TypeMessagesRead   MessageType = "messages_read"
)

// Message is the push path envelope in both directions. Clients fill Type,
// RequestID and Data; the server adds RoomID and Timestamp.
type Message struct {
	Type      MessageType     `json:"type"`
	RoomID    string          `json:"room_id,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func encode(msgType MessageType, roomID, requestID string, payload interface{}) ([]byte, error) {
	msg := Message{
		Type:      msgType,
		RoomID:    roomID,
		RequestID: requestID,
		Timestamp: time.Now(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Data = data
	}
	return json.Marshal(msg)
}
