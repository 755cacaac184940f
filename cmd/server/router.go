package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/handlers"
	"github.com/thereayou/cipherchat/internal/middleware"
)

type endpoints struct {
	auth  *handlers.AuthHandler
	rooms *handlers.RoomHandler
	chat  *handlers.ChatHandler
	files *handlers.FileHandler
	users *handlers.UserHandler
	ws    *handlers.WebSocketHandler
	ready func() error
}

func APIEndpoints(r *gin.Engine, lim limiters, log *zap.Logger, h endpoints) {
	rl := log.Named("ratelimit")

	r.GET("/healthz", func(c *gin.Context) {
		if err := h.ready(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ws", middleware.WSCredential(), h.ws.HandleWebSocket)

	api := r.Group("/", middleware.RateLimit(lim.api, "api", rl), middleware.Credential())

	// Room endpoints
	room := api.Group("/room")
	{
		room.POST("/create", middleware.RateLimit(lim.creation, "room_create", rl), h.rooms.CreateRoom)
		room.POST("/:id/verify_ip", h.rooms.VerifyIP)
	}

	// Chat endpoints
	chat := api.Group("/chat")
	{
		chat.POST("/:id", h.chat.SendMessage)
		chat.GET("/:id/messages", h.chat.GetMessages)
		chat.POST("/:id/clear", h.chat.ClearChat)
		chat.DELETE("/:id/messages/:msg_id", h.chat.DeleteMessage)
		chat.POST("/:id/messages/mark_read", h.chat.MarkRead)
		chat.GET("/:id/search", h.chat.Search)

		chat.POST("/:id/upload", h.files.Upload)
		chat.GET("/:id/files", h.files.List)
		chat.GET("/:id/files/:name", h.files.Download)
		chat.DELETE("/:id/files/:name", h.files.Delete)
	}

	// Auth endpoints
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/token", h.auth.Token)
		authGroup.POST("/verify_token", h.auth.VerifyToken)
		authGroup.POST("/revoke_token", h.auth.RevokeToken)
	}

	// User endpoints
	user := api.Group("/user")
	{
		user.POST("/profile", h.users.CreateProfile)
		user.GET("/profile/:id", h.users.GetProfile)
		user.PUT("/profile/:id", h.users.UpdateProfile)
		user.POST("/presence/:id", h.users.UpdatePresence)
		user.GET("/presence", h.users.RoomPresence)
	}

	// Admin endpoints
	admin := api.Group("/admin")
	{
		admin.POST("/verify_ip", h.rooms.AdminVerifyIP)
		admin.POST("/clear_chat", h.rooms.AdminClearChat)
		admin.POST("/delete_room", h.rooms.AdminDeleteRoom)
	}
}
