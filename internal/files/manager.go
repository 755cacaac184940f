// Package files manages per-room file manifests and the blobs behind them.
package files

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/store"
	"github.com/thereayou/cipherchat/internal/websocket"
)

const DefaultMaxSize = 5 << 20

var allowedExtensions = map[string]bool{
	"txt": true, "pdf": true, "png": true, "jpg": true, "jpeg": true, "gif": true,
	"doc": true, "docx": true, "xls": true, "xlsx": true, "zip": true,
}

type FileUploaded struct {
	Room string            `json:"room"`
	File models.FileRecord `json:"file"`
}

type FileDeleted struct {
	Room     string `json:"room"`
	Filename string `json:"filename"`
}

type Manager struct {
	store   *store.Store
	hub     *websocket.Hub
	blobs   BlobStore
	maxSize int64
	log     *zap.Logger
	now     func() time.Time
}

func NewManager(s *store.Store, hub *websocket.Hub, blobs BlobStore, maxSize int64, log *zap.Logger) *Manager {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: s, hub: hub, blobs: blobs, maxSize: maxSize, log: log, now: time.Now}
}

// AllowedFile reports whether a filename has an accepted extension.
func AllowedFile(name string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	return allowedExtensions[strings.ToLower(name[i+1:])]
}

// Upload stores a blob, appends its record to the room manifest and
// announces it.
func (m *Manager) Upload(ctx context.Context, roomID, uploader, filename, contentType string, r io.Reader) (models.FileRecord, error) {
	if filename == "" {
		return models.FileRecord{}, fmt.Errorf("%w: no file selected", models.ErrValidation)
	}
	if !AllowedFile(filename) {
		return models.FileRecord{}, fmt.Errorf("%w: file type not allowed", models.ErrValidation)
	}
	var namespace string
	err := m.store.View(roomID, func(r *store.Room) error {
		namespace = r.Namespace()
		return nil
	})
	if err != nil {
		return models.FileRecord{}, err
	}

	now := m.now()
	stored := fmt.Sprintf("%d_%s", now.UnixNano(), sanitizeFilename(filename))

	locator, size, err := m.blobs.Put(ctx, namespace, stored, io.LimitReader(r, m.maxSize+1))
	if err != nil {
		return models.FileRecord{}, err
	}
	if size > m.maxSize {
		m.discard(ctx, locator)
		return models.FileRecord{}, fmt.Errorf("%w: file exceeds %d bytes", models.ErrValidation, m.maxSize)
	}

	rec := models.FileRecord{
		ID:             "file_" + uuid.NewString(),
		Filename:       filename,
		StoredFilename: stored,
		Size:           size,
		ContentType:    contentType,
		UploadedBy:     uploader,
		UploadedAt:     now.UnixMilli(),
		Locator:        locator,
	}

	err = m.store.Update(roomID, func(r *store.Room) error {
		// The room was re-created while the blob was being written.
		if r.Namespace() != namespace {
			return fmt.Errorf("%w: room %s", models.ErrNotFound, roomID)
		}
		r.AppendFile(rec)
		return m.hub.Broadcast(roomID, websocket.TypeFileUploaded, FileUploaded{Room: roomID, File: rec})
	})
	if err != nil {
		m.discard(ctx, locator)
		return models.FileRecord{}, err
	}

	m.log.Info("file uploaded",
		zap.String("room_id", roomID),
		zap.String("stored_filename", stored),
		zap.Int64("size", size))
	return rec, nil
}

// Delete removes a record and its blob. The record is removed and the
// deletion announced even when the blob cannot be removed.
func (m *Manager) Delete(ctx context.Context, roomID, storedName string) (models.FileRecord, error) {
	var rec models.FileRecord
	err := m.store.Update(roomID, func(r *store.Room) error {
		var ok bool
		rec, ok = r.RemoveFile(storedName)
		if !ok {
			return fmt.Errorf("%w: file %s", models.ErrNotFound, storedName)
		}
		return m.hub.Broadcast(roomID, websocket.TypeFileDeleted, FileDeleted{Room: roomID, Filename: storedName})
	})
	if err != nil {
		return models.FileRecord{}, err
	}

	if err := m.blobs.Delete(ctx, rec.Locator); err != nil {
		m.log.Error("failed to delete blob", zap.String("room_id", roomID), zap.String("locator", rec.Locator), zap.Error(err))
		return rec, fmt.Errorf("%w: delete blob: %v", models.ErrStorage, err)
	}
	return rec, nil
}

// Open returns the record and a reader over its blob.
func (m *Manager) Open(ctx context.Context, roomID, storedName string) (models.FileRecord, io.ReadCloser, error) {
	var rec models.FileRecord
	err := m.store.View(roomID, func(r *store.Room) error {
		var ok bool
		rec, ok = r.FindFile(storedName)
		if !ok {
			return fmt.Errorf("%w: file %s", models.ErrNotFound, storedName)
		}
		return nil
	})
	if err != nil {
		return models.FileRecord{}, nil, err
	}
	rc, err := m.blobs.Open(ctx, rec.Locator)
	if err != nil {
		return models.FileRecord{}, nil, err
	}
	return rec, rc, nil
}

func (m *Manager) List(roomID string) ([]models.FileRecord, error) {
	var out []models.FileRecord
	err := m.store.View(roomID, func(r *store.Room) error {
		out = r.Files()
		return nil
	})
	return out, err
}

// PurgeRoom removes every blob a retired room owned. Only the retired room's
// namespace is touched, so a room re-created under the same id keeps its
// blobs. Failures are logged and do not stop the cascade.
func (m *Manager) PurgeRoom(ctx context.Context, roomID, namespace string, records []models.FileRecord) {
	for _, rec := range records {
		if err := m.blobs.Delete(ctx, rec.Locator); err != nil {
			m.log.Warn("failed to purge blob", zap.String("room_id", roomID), zap.String("locator", rec.Locator), zap.Error(err))
		}
	}
	if err := m.blobs.DeleteNamespace(ctx, namespace); err != nil {
		m.log.Warn("failed to purge room namespace", zap.String("room_id", roomID), zap.String("namespace", namespace), zap.Error(err))
	}
}

func (m *Manager) discard(ctx context.Context, locator string) {
	if err := m.blobs.Delete(ctx, locator); err != nil {
		m.log.Warn("failed to discard blob", zap.String("locator", locator), zap.Error(err))
	}
}

// sanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		out = "file"
	}
	return out
}
