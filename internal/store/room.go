package store

import (
	"crypto/sha256"
	"encoding/base64"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/cipherchat/internal/models"
)

type slot struct {
	id   string
	blob []byte
}

// Room is the per-room aggregate. Its methods assume the caller is inside
// Store.Update (or Store.View for read-only methods).
type Room struct {
	mu      sync.RWMutex
	store   *Store
	deleted bool

	id           string
	namespace    string
	passwordHash []byte
	origins      map[string]struct{}
	messages     []slot
	// message id -> symbol -> users, in the order they reacted
	reactions map[string]map[string][]string
	typing    map[string]struct{}
	online    map[string]struct{}
	files     []models.FileRecord
}

func newRoom(s *Store, id string, hash []byte) *Room {
	return &Room{
		store:        s,
		id:           id,
		namespace:    id + "_" + uuid.NewString(),
		passwordHash: hash,
		origins:      make(map[string]struct{}),
		reactions:    make(map[string]map[string][]string),
		typing:       make(map[string]struct{}),
		online:       make(map[string]struct{}),
	}
}

func (r *Room) ID() string { return r.id }

// Namespace is where this incarnation of the room keeps its blobs. A room
// re-created under the same id gets a fresh namespace.
func (r *Room) Namespace() string { return r.namespace }

// PasswordHash never changes for the life of the room, so the slice may be
// used after the room lock is released.
func (r *Room) PasswordHash() []byte { return r.passwordHash }

func (r *Room) CheckPassword(password string) bool {
	return PasswordMatches(r.passwordHash, password)
}

// bcrypt reads at most 72 bytes, so passwords are digested before hashing.
func passwordKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func hashPassword(password string, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword(passwordKey(password), cost)
}

// PasswordMatches compares password against a hash produced by CreateRoom.
func PasswordMatches(hash []byte, password string) bool {
	if password == "" || len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, passwordKey(password)) == nil
}

func (r *Room) HasOrigin(ip string) bool {
	_, ok := r.origins[ip]
	return ok
}

func (r *Room) AddOrigin(ip string) {
	r.origins[ip] = struct{}{}
}

// SetTyping records whether userID is typing and reports whether the set
// changed.
func (r *Room) SetTyping(userID string, typing bool) bool {
	_, was := r.typing[userID]
	if typing {
		r.typing[userID] = struct{}{}
	} else {
		delete(r.typing, userID)
	}
	return was != typing
}

func (r *Room) TypingUsers() []string {
	return sortedKeys(r.typing)
}

// AddOnline marks userID online and reports whether it was offline before.
func (r *Room) AddOnline(userID string) bool {
	if _, ok := r.online[userID]; ok {
		return false
	}
	r.online[userID] = struct{}{}
	return true
}

// RemoveOnline marks userID offline and reports whether it was online.
func (r *Room) RemoveOnline(userID string) bool {
	if _, ok := r.online[userID]; !ok {
		return false
	}
	delete(r.online, userID)
	return true
}

func (r *Room) IsOnline(userID string) bool {
	_, ok := r.online[userID]
	return ok
}

func (r *Room) OnlineCount() int { return len(r.online) }

func (r *Room) OnlineUsers() []string {
	return sortedKeys(r.online)
}

func (r *Room) Files() []models.FileRecord {
	return append([]models.FileRecord(nil), r.files...)
}

func (r *Room) AppendFile(rec models.FileRecord) {
	r.files = append(r.files, rec)
}

// RemoveFile drops the record with the given stored name.
func (r *Room) RemoveFile(storedName string) (models.FileRecord, bool) {
	for i, f := range r.files {
		if f.StoredFilename == storedName {
			r.files = append(r.files[:i:i], r.files[i+1:]...)
			return f, true
		}
	}
	return models.FileRecord{}, false
}

func (r *Room) FindFile(storedName string) (models.FileRecord, bool) {
	for _, f := range r.files {
		if f.StoredFilename == storedName {
			return f, true
		}
	}
	return models.FileRecord{}, false
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
