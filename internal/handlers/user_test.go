package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/cipherchat/internal/codec"
	"github.com/thereayou/cipherchat/internal/database"
	"github.com/thereayou/cipherchat/internal/handlers/dto"
	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/presence"
	"github.com/thereayou/cipherchat/internal/services"
	"github.com/thereayou/cipherchat/internal/store"
	"github.com/thereayou/cipherchat/internal/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", models.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: no", models.ErrUnauthorized), http.StatusUnauthorized},
		{models.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: room 1", models.ErrNotFound), http.StatusNotFound},
		{services.ErrRevocationUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: disk full", models.ErrStorage), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestParseFlag(t *testing.T) {
	for _, v := range []string{"true", "TRUE", "1", "yes"} {
		assert.True(t, parseFlag(v), v)
	}
	for _, v := range []string{"false", "0", "no", ""} {
		assert.False(t, parseFlag(v), v)
	}
}

func TestRoomPresenceMarksIdleUsersAway(t *testing.T) {
	c, err := codec.NewRandom()
	require.NoError(t, err)
	s := store.New(c, store.Options{HashCost: bcrypt.MinCost})
	_, err = s.CreateRoom(testRoom, testPassword)
	require.NoError(t, err)

	db := &database.Database{}
	require.NoError(t, db.Connect(":memory:", false))
	t.Cleanup(func() { db.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, p := range []models.UserProfile{
		{UserID: "fresh", Username: "Fresh", Status: models.StatusOnline, LastActive: now.Add(-time.Minute)},
		{UserID: "idle", Username: "Idle", Status: models.StatusOnline, LastActive: now.Add(-10 * time.Minute)},
		{UserID: "busy", Username: "Busy", Status: models.StatusBusy, LastActive: now.Add(-10 * time.Minute)},
	} {
		p := p
		p.Theme, p.CreatedAt = "light", now
		require.NoError(t, db.SaveProfile(&p))
	}

	hub := websocket.NewHub(nil)
	t.Cleanup(hub.Stop)
	tracker := presence.NewTracker(s, hub, nil)
	for _, user := range []string{"fresh", "idle", "busy", "nameless"} {
		client := websocket.NewClient(hub, nil, "127.0.0.1", "")
		require.NoError(t, hub.Register(client))
		require.NoError(t, tracker.Join(client, testRoom, user))
	}

	h := NewUserHandler(db, tracker, zap.NewNop())
	h.now = func() time.Time { return now }

	r := gin.New()
	r.GET("/user/presence", h.RoomPresence)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/presence?room_id="+testRoom, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.RoomPresenceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.OnlineCount)
	require.Len(t, resp.Users, 3)
	assert.Equal(t, models.StatusOnline, resp.Users["fresh"].Status)
	assert.Equal(t, models.StatusAway, resp.Users["idle"].Status)
	assert.Equal(t, models.StatusBusy, resp.Users["busy"].Status)
	assert.Equal(t, "Idle", resp.Users["idle"].Username)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/presence", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewProfileIsOfflineUntilPresenceIsSet(t *testing.T) {
	c, err := codec.NewRandom()
	require.NoError(t, err)
	s := store.New(c, store.Options{HashCost: bcrypt.MinCost})
	_, err = s.CreateRoom(testRoom, testPassword)
	require.NoError(t, err)

	db := &database.Database{}
	require.NoError(t, db.Connect(":memory:", false))
	t.Cleanup(func() { db.Close() })

	hub := websocket.NewHub(nil)
	t.Cleanup(hub.Stop)
	tracker := presence.NewTracker(s, hub, nil)
	client := websocket.NewClient(hub, nil, "127.0.0.1", "")
	require.NoError(t, hub.Register(client))
	require.NoError(t, tracker.Join(client, testRoom, "newcomer"))

	h := NewUserHandler(db, tracker, zap.NewNop())
	r := gin.New()
	r.POST("/user/profile", h.CreateProfile)
	r.POST("/user/presence/:id", h.UpdatePresence)
	r.GET("/user/presence", h.RoomPresence)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/user/profile",
		strings.NewReader(`{"user_id":"newcomer","username":"New"}`)))
	require.Equal(t, http.StatusOK, w.Code)

	presenceOf := func() models.PresenceStatus {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/presence?room_id="+testRoom, nil))
		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.RoomPresenceResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.Users["newcomer"].Status
	}
	assert.Equal(t, models.StatusOffline, presenceOf())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/user/presence/newcomer",
		strings.NewReader(`{"status":"online"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusOnline, presenceOf())
}
