// Package store holds the authoritative in-memory state of every chat room.
//
// Each room is an aggregate guarded by its own lock. All access goes through
// Store.Update and Store.View, which run a closure with that lock held, so a
// caller can mutate a room and publish the resulting event without another
// operation on the same room slipping in between.
package store

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/cipherchat/internal/models"
)

const DefaultMaxMessages = 100

// MessageCodec seals messages for storage inside a room.
type MessageCodec interface {
	Encode(m *models.Message) ([]byte, error)
	Decode(blob []byte) (*models.Message, error)
}

// DeleteHook runs after a room has been removed or replaced. namespace is the
// retired room's blob namespace and files the manifest it held at that moment.
type DeleteHook func(roomID, namespace string, files []models.FileRecord)

type Options struct {
	MaxMessages int
	HashCost    int
	Logger      *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	hooks []DeleteHook

	codec       MessageCodec
	maxMessages int
	hashCost    int
	now         func() time.Time
	log         *zap.Logger

	lastID atomic.Int64
}

func New(codec MessageCodec, opts Options) *Store {
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultMaxMessages
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		rooms:       make(map[string]*Room),
		codec:       codec,
		maxMessages: opts.MaxMessages,
		hashCost:    opts.HashCost,
		now:         opts.Now,
		log:         opts.Logger,
	}
}

// OnDelete registers a hook run after DeleteRoom and after a re-create
// replaces an existing room.
func (s *Store) OnDelete(hook DeleteHook) {
	s.mu.Lock()
	s.hooks = append(s.hooks, hook)
	s.mu.Unlock()
}

// CreateRoom creates a room, replacing any existing room with the same id.
// It reports whether a room was replaced.
func (s *Store) CreateRoom(id, password string) (bool, error) {
	if err := ValidateRoomID(id); err != nil {
		return false, err
	}
	if err := ValidatePassword(password); err != nil {
		return false, err
	}
	hash, err := hashPassword(password, s.hashCost)
	if err != nil {
		return false, fmt.Errorf("%w: hash password: %v", models.ErrStorage, err)
	}

	room := newRoom(s, id, hash)

	s.mu.Lock()
	old := s.rooms[id]
	s.rooms[id] = room
	hooks := append([]DeleteHook(nil), s.hooks...)
	s.mu.Unlock()

	if old != nil {
		s.retire(old, hooks)
		s.log.Info("room re-created", zap.String("room_id", id))
	} else {
		s.log.Info("room created", zap.String("room_id", id))
	}
	return old != nil, nil
}

func (s *Store) DeleteRoom(id string) error {
	s.mu.Lock()
	room, ok := s.rooms[id]
	if ok {
		delete(s.rooms, id)
	}
	hooks := append([]DeleteHook(nil), s.hooks...)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: room %s", models.ErrNotFound, id)
	}
	s.retire(room, hooks)
	s.log.Info("room deleted", zap.String("room_id", id))
	return nil
}

// retire waits for in-flight operations on room, marks it dead and runs the
// delete hooks.
func (s *Store) retire(room *Room, hooks []DeleteHook) {
	room.mu.Lock()
	room.deleted = true
	files := append([]models.FileRecord(nil), room.files...)
	room.mu.Unlock()

	for _, hook := range hooks {
		hook(room.id, room.namespace, files)
	}
}

func (s *Store) lookup(id string) (*Room, error) {
	s.mu.RLock()
	room, ok := s.rooms[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: room %s", models.ErrNotFound, id)
	}
	return room, nil
}

// Update runs fn with the room's write lock held.
func (s *Store) Update(id string, fn func(r *Room) error) error {
	room, err := s.lookup(id)
	if err != nil {
		return err
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.deleted {
		return fmt.Errorf("%w: room %s", models.ErrNotFound, id)
	}
	return fn(room)
}

// View runs fn with the room's read lock held. fn must not mutate the room.
func (s *Store) View(id string, fn func(r *Room) error) error {
	room, err := s.lookup(id)
	if err != nil {
		return err
	}
	room.mu.RLock()
	defer room.mu.RUnlock()
	if room.deleted {
		return fmt.Errorf("%w: room %s", models.ErrNotFound, id)
	}
	return fn(room)
}

func (s *Store) Exists(id string) bool {
	_, err := s.lookup(id)
	return err == nil
}

// RoomIDs returns the ids of all live rooms in ascending order.
func (s *Store) RoomIDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// nextMessageID hands out msg_<unix millis> ids that strictly increase for
// the life of the process, even when several arrive in the same millisecond.
func (s *Store) nextMessageID() (string, time.Time) {
	for {
		now := s.now()
		ms := now.UnixMilli()
		last := s.lastID.Load()
		if ms <= last {
			ms = last + 1
		}
		if s.lastID.CompareAndSwap(last, ms) {
			return fmt.Sprintf("msg_%d", ms), now
		}
	}
}
