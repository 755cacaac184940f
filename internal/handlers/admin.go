package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/cipherchat/internal/handlers/dto"
)

// Admin endpoints take the room id in the body and accept only a credential
// or the room password.

func (h *RoomHandler) AdminVerifyIP(c *gin.Context) {
	var req dto.AdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Room ID and password are required!")
		return
	}
	h.verifyIP(c, req.RoomID, req.Password, req.IP)
}

func (h *RoomHandler) AdminClearChat(c *gin.Context) {
	var req dto.AdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Room ID and password are required!")
		return
	}
	if err := h.guard.AuthorizeAdmin(c.Request.Context(), req.RoomID, adminProof(c, req.Password)); err != nil {
		respondError(c, err)
		return
	}
	if err := h.chat.ClearChat(req.RoomID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat cleared successfully!"})
}

func (h *RoomHandler) AdminDeleteRoom(c *gin.Context) {
	var req dto.AdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Room ID and password are required!")
		return
	}
	if err := h.guard.AuthorizeAdmin(c.Request.Context(), req.RoomID, adminProof(c, req.Password)); err != nil {
		respondError(c, err)
		return
	}
	if err := h.chat.DeleteRoom(req.RoomID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": fmt.Sprintf("Room %s deleted!", req.RoomID)})
}
