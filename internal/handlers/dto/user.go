package dto

import (
	"time"

	"github.com/thereayou/cipherchat/internal/models"
)

type CreateProfileRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	Username      string `json:"username" binding:"required"`
	Avatar        string `json:"avatar"`
	StatusMessage string `json:"status_message"`
	Theme         string `json:"theme"`
}

type PresenceRequest struct {
	Status *string `json:"status"`
}

type UserPresence struct {
	Status     models.PresenceStatus `json:"status"`
	LastActive time.Time             `json:"last_active"`
	Username   string                `json:"username"`
	Avatar     string                `json:"avatar"`
}

type RoomPresenceResponse struct {
	RoomID      string                  `json:"room_id"`
	OnlineCount int                     `json:"online_count"`
	Users       map[string]UserPresence `json:"users"`
}
