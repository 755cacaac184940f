package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/handlers/dto"
	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/services"
)

type AuthHandler struct {
	auth *services.AuthService
	log  *zap.Logger
}

func NewAuthHandler(auth *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log.Named("auth")}
}

// Token trades a room id and password for a credential.
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Room ID and password are required")
		return
	}

	token, ttl, err := h.auth.IssueToken(c.Request.Context(), req.RoomID, req.Password)
	if err != nil {
		// an unknown room looks the same as a wrong password
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid room ID or password"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{
		Success:   true,
		Token:     token,
		ExpiresIn: int(ttl.Seconds()),
	})
}

func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req dto.VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Token is required")
		return
	}

	roomID, err := h.auth.VerifyToken(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid or expired token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room_id": roomID})
}

func (h *AuthHandler) RevokeToken(c *gin.Context) {
	var req dto.VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Token is required")
		return
	}

	if err := h.auth.RevokeToken(c.Request.Context(), req.Token); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid or expired token"})
			return
		}
		respondError(c, err)
		return
	}
	h.log.Info("token revoked")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
