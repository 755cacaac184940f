package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/database"
	"github.com/thereayou/cipherchat/internal/handlers/dto"
	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/presence"
)

// idleAfter is how long an online user may go without activity before the
// presence listing reports them as away.
const idleAfter = 5 * time.Minute

type UserHandler struct {
	db      *database.Database
	tracker *presence.Tracker
	log     *zap.Logger
	now     func() time.Time
}

func NewUserHandler(db *database.Database, tracker *presence.Tracker, log *zap.Logger) *UserHandler {
	return &UserHandler{db: db, tracker: tracker, log: log.Named("users"), now: time.Now}
}

func (h *UserHandler) CreateProfile(c *gin.Context) {
	var req dto.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "User ID and username are required!")
		return
	}
	if req.Theme == "" {
		req.Theme = "light"
	}

	now := h.now()
	profile := &models.UserProfile{
		UserID:        req.UserID,
		Username:      req.Username,
		Avatar:        req.Avatar,
		StatusMessage: req.StatusMessage,
		Theme:         req.Theme,
		Status:        models.StatusOffline,
		CreatedAt:     now,
		LastActive:    now,
	}
	if err := h.db.SaveProfile(profile); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile created successfully!"})
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.db.GetProfile(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile changes only the fields present in the body.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var patch models.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, err := h.db.PatchProfile(c.Param("id"), patch); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated successfully!"})
}

// UpdatePresence records activity and, when given, a new status.
func (h *UserHandler) UpdatePresence(c *gin.Context) {
	userID := c.Param("id")

	var req dto.PresenceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	var status models.PresenceStatus
	if req.Status != nil {
		var err error
		if status, err = models.ParsePresenceStatus(*req.Status); err != nil {
			respondError(c, err)
			return
		}
	} else {
		current, err := h.db.GetProfile(userID)
		if err != nil {
			respondError(c, err)
			return
		}
		status = current.Status
	}

	profile, err := h.db.SetPresence(userID, status, h.now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user_id": profile.UserID, "status": profile.Status})
}

// RoomPresence lists the online users of a room that have a profile.
func (h *UserHandler) RoomPresence(c *gin.Context) {
	roomID := c.Query("room_id")
	if roomID == "" {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Room not found or no users online"})
		return
	}

	snapshot, err := h.tracker.RoomPresence(roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	profiles, err := h.db.GetProfiles(snapshot.Online)
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.now()
	users := make(map[string]dto.UserPresence, len(profiles))
	for _, userID := range snapshot.Online {
		p, ok := profiles[userID]
		if !ok {
			continue
		}
		status := p.Status
		if status == "" {
			status = models.StatusOffline
		}
		if status == models.StatusOnline && now.Sub(p.LastActive) > idleAfter {
			status = models.StatusAway
		}
		users[userID] = dto.UserPresence{
			Status:     status,
			LastActive: p.LastActive,
			Username:   p.Username,
			Avatar:     p.Avatar,
		}
	}

	c.JSON(http.StatusOK, dto.RoomPresenceResponse{
		RoomID:      roomID,
		OnlineCount: snapshot.Count,
		Users:       users,
	})
}
