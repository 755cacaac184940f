package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/access"
	"github.com/thereayou/cipherchat/internal/handlers/dto"
	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/services"
)

const anonymousUser = "anonymous"

type ChatHandler struct {
	chat  *services.ChatService
	guard *access.Guard
	log   *zap.Logger
}

func NewChatHandler(chat *services.ChatService, guard *access.Guard, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, guard: guard, log: log.Named("chat")}
}

func (h *ChatHandler) authorize(c *gin.Context, roomID, password string) bool {
	if err := h.guard.Authorize(c.Request.Context(), roomID, proof(c, password)); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

// GetMessages returns the room history annotated for user_id. Listing marks
// the messages read unless mark_as_read is false.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	roomID := c.Param("id")
	if !h.authorize(c, roomID, c.Query("password")) {
		return
	}

	userID := c.DefaultQuery("user_id", anonymousUser)
	markAsRead := parseFlag(c.DefaultQuery("mark_as_read", "true"))

	views, err := h.chat.ListMessages(roomID, userID, markAsRead)
	if err != nil {
		respondError(c, err)
		return
	}
	if views == nil {
		views = []models.MessageView{}
	}
	c.JSON(http.StatusOK, views)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	roomID := c.Param("id")

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !h.authorize(c, roomID, req.Password) {
		return
	}
	if req.UserID == "" {
		req.UserID = anonymousUser
	}

	msg, err := h.chat.PostMessage(roomID, models.NewMessage{
		UserID:   req.UserID,
		ClientIP: c.ClientIP(),
		Body:     req.Message,
		Media:    req.Media,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Message sent securely!",
		"message_id": msg.ID,
	})
}

func (h *ChatHandler) ClearChat(c *gin.Context) {
	roomID := c.Param("id")

	var req dto.PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.guard.AuthorizeAdmin(c.Request.Context(), roomID, adminProof(c, req.Password)); err != nil {
		respondError(c, err)
		return
	}
	if err := h.chat.ClearChat(roomID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat cleared!"})
}

// DeleteMessage removes a message. The sender may always delete it, and so
// may anyone holding the room password.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	roomID := c.Param("id")
	password := c.Query("password")
	if !h.authorize(c, roomID, password) {
		return
	}

	userID := c.Query("user_id")
	holder := h.guard.IsPasswordHolder(roomID, password)

	_, msg, err := h.chat.DeleteMessage(roomID, c.Param("msg_id"), userID, holder)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Message deleted successfully!",
		"deleted_message": msg,
	})
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	roomID := c.Param("id")

	var req dto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.UserID == "" {
		badRequest(c, "User ID is required")
		return
	}
	if len(req.MessageIDs) == 0 {
		badRequest(c, "Message IDs must be provided as a list")
		return
	}
	if !h.authorize(c, roomID, req.Password) {
		return
	}

	updated, err := h.chat.MarkRead(roomID, req.UserID, req.MessageIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"updated_messages": updated,
		"message":          fmt.Sprintf("%d messages marked as read", len(updated)),
	})
}

func (h *ChatHandler) Search(c *gin.Context) {
	roomID := c.Param("id")
	if !h.authorize(c, roomID, c.Query("password")) {
		return
	}

	query := c.Query("query")
	results, err := h.chat.Search(roomID, query)
	if err != nil {
		respondError(c, err)
		return
	}
	if results == nil {
		results = []models.Message{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"query":        strings.ToLower(query),
		"results":      results,
		"result_count": len(results),
	})
}

func parseFlag(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	}
	return false
}
