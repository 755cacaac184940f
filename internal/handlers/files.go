package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/access"
	"github.com/thereayou/cipherchat/internal/files"
	"github.com/thereayou/cipherchat/internal/models"
)

type FileHandler struct {
	files *files.Manager
	guard *access.Guard
	log   *zap.Logger
}

func NewFileHandler(m *files.Manager, guard *access.Guard, log *zap.Logger) *FileHandler {
	return &FileHandler{files: m, guard: guard, log: log.Named("files")}
}

func (h *FileHandler) authorize(c *gin.Context, roomID, password string) bool {
	if err := h.guard.Authorize(c.Request.Context(), roomID, proof(c, password)); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

// Upload accepts a multipart form with file, user_id and password fields.
func (h *FileHandler) Upload(c *gin.Context) {
	roomID := c.Param("id")
	if !h.authorize(c, roomID, c.PostForm("password")) {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file part")
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, fmt.Errorf("%w: open upload: %v", models.ErrStorage, err))
		return
	}
	defer f.Close()

	rec, err := h.files.Upload(c.Request.Context(), roomID, c.PostForm("user_id"),
		fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "File uploaded successfully!",
		"file":    rec,
	})
}

func (h *FileHandler) List(c *gin.Context) {
	roomID := c.Param("id")
	if !h.authorize(c, roomID, c.Query("password")) {
		return
	}
	recs, err := h.files.List(roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	if recs == nil {
		recs = []models.FileRecord{}
	}
	c.JSON(http.StatusOK, recs)
}

// Download streams a stored file as an attachment under its original name.
func (h *FileHandler) Download(c *gin.Context) {
	roomID := c.Param("id")
	if !h.authorize(c, roomID, c.Query("password")) {
		return
	}

	rec, rc, err := h.files.Open(c.Request.Context(), roomID, c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	contentType := rec.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, rec.Size, contentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", rec.Filename),
	})
}

func (h *FileHandler) Delete(c *gin.Context) {
	roomID := c.Param("id")
	if !h.authorize(c, roomID, c.Query("password")) {
		return
	}

	if _, err := h.files.Delete(c.Request.Context(), roomID, c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "File deleted successfully!"})
}
