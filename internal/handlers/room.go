package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/access"
	"github.com/thereayou/cipherchat/internal/handlers/dto"
	"github.com/thereayou/cipherchat/internal/services"
)

type RoomHandler struct {
	chat  *services.ChatService
	guard *access.Guard
	log   *zap.Logger
}

func NewRoomHandler(chat *services.ChatService, guard *access.Guard, log *zap.Logger) *RoomHandler {
	return &RoomHandler{chat: chat, guard: guard, log: log.Named("rooms")}
}

// CreateRoom creates a room, resetting it if the id is already taken.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Room ID and password are required")
		return
	}

	replaced, err := h.chat.CreateRoom(req.RoomID, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if replaced {
		h.log.Info("room reset", zap.String("room_id", req.RoomID))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Room %s created successfully!", req.RoomID),
	})
}

// VerifyIP adds an address to the room's verified origins. Without an
// explicit ip the caller's own address is used.
func (h *RoomHandler) VerifyIP(c *gin.Context) {
	var req dto.VerifyIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	h.verifyIP(c, c.Param("id"), req.Password, req.IP)
}

func (h *RoomHandler) verifyIP(c *gin.Context, roomID, password, ip string) {
	if ip == "" {
		ip = c.ClientIP()
	}
	if err := h.guard.VerifyOrigin(c.Request.Context(), roomID, adminProof(c, password), ip); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("IP %s verified for room %s!", ip, roomID),
	})
}
