package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrClientGone      = errors.New("client is not connected")
	ErrInvalidMessage  = errors.New("invalid message format")
	ErrUserNotInRoom   = errors.New("user not in room")
)
