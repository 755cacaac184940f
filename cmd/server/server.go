package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/access"
	"github.com/thereayou/cipherchat/internal/codec"
	"github.com/thereayou/cipherchat/internal/config"
	"github.com/thereayou/cipherchat/internal/database"
	"github.com/thereayou/cipherchat/internal/files"
	"github.com/thereayou/cipherchat/internal/handlers"
	"github.com/thereayou/cipherchat/internal/middleware"
	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/presence"
	"github.com/thereayou/cipherchat/internal/ratelimit"
	"github.com/thereayou/cipherchat/internal/services"
	"github.com/thereayou/cipherchat/internal/store"
	"github.com/thereayou/cipherchat/internal/websocket"
	"github.com/thereayou/cipherchat/pkg/auth"
)

type Server struct {
	Router     *gin.Engine
	HTTP       *http.Server
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Store      *store.Store
	Hub        *websocket.Hub

	log *zap.Logger
}

type limiters struct {
	api      ratelimit.Limiter
	creation ratelimit.Limiter
}

// NewServer wires every component from cfg. Redis is optional: without it
// rate limiting stays in process and token revocation is unavailable.
func NewServer(cfg *config.Config, log *zap.Logger) (*Server, error) {
	dbConn := &database.Database{}
	if err := dbConn.Connect(cfg.DatabaseDSN, cfg.DatabaseDebug); err != nil {
		return nil, err
	}

	msgCodec, err := newCodec(cfg.EncryptionKey)
	if err != nil {
		dbConn.Close()
		return nil, err
	}

	secret := cfg.JWTSecret
	if secret == "" {
		if secret, err = randomSecret(); err != nil {
			dbConn.Close()
			return nil, err
		}
		log.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}
	jwtMgr := auth.NewJWTManager(secret, cfg.TokenTTL)

	var (
		rdb     *redis.Client
		revoked access.RevocationChecker
		revoker services.TokenRevoker
	)
	lim := limiters{
		api:      ratelimit.NewMemoryLimiter(ratelimit.Config{RequestsPerWindow: cfg.MaxAPIRequestsPerMinute, WindowSize: time.Minute}),
		creation: ratelimit.NewMemoryLimiter(ratelimit.Config{RequestsPerWindow: cfg.MaxRoomCreationPerMinute, WindowSize: time.Minute}),
	}
	if cfg.RedisURL != "" {
		if rdb, err = connectRedis(cfg.RedisURL); err != nil {
			dbConn.Close()
			return nil, err
		}
		blacklist := auth.NewBlacklist(rdb)
		revoked, revoker = blacklist, blacklist
		lim = limiters{
			api:      ratelimit.NewSlidingWindowLimiter(rdb, ratelimit.Config{RequestsPerWindow: cfg.MaxAPIRequestsPerMinute, WindowSize: time.Minute}, "ratelimit:api:"),
			creation: ratelimit.NewSlidingWindowLimiter(rdb, ratelimit.Config{RequestsPerWindow: cfg.MaxRoomCreationPerMinute, WindowSize: time.Minute}, "ratelimit:room:"),
		}
	}

	hub := websocket.NewHub(log.Named("hub"))
	roomStore := store.New(msgCodec, store.Options{
		MaxMessages: cfg.MaxMessagesPerRoom,
		HashCost:    cfg.PasswordHashCost,
		Logger:      log.Named("store"),
	})

	blobs, err := files.NewDiskStore(cfg.UploadDir)
	if err != nil {
		dbConn.Close()
		return nil, err
	}
	fileMgr := files.NewManager(roomStore, hub, blobs, cfg.MaxFileSize(), log.Named("files"))

	roomStore.OnDelete(func(roomID, namespace string, recs []models.FileRecord) {
		fileMgr.PurgeRoom(context.Background(), roomID, namespace, recs)
	})
	roomStore.OnDelete(func(roomID, _ string, _ []models.FileRecord) {
		hub.DropRoom(roomID)
	})

	guard := access.NewGuard(roomStore, jwtMgr, revoked, log.Named("access"))
	tracker := presence.NewTracker(roomStore, hub, log.Named("presence"))
	chat := services.NewChatService(roomStore, hub, dbConn, log.Named("chat"))
	authSvc := services.NewAuthService(guard, jwtMgr, revoker)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log.Named("http")))
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	msgH := handlers.NewMessageHandler(chat, tracker, guard, log)
	APIEndpoints(router, lim, log, endpoints{
		auth:  handlers.NewAuthHandler(authSvc, log),
		rooms: handlers.NewRoomHandler(chat, guard, log),
		chat:  handlers.NewChatHandler(chat, guard, log),
		files: handlers.NewFileHandler(fileMgr, guard, log),
		users: handlers.NewUserHandler(dbConn, tracker, log),
		ws:    handlers.NewWebSocketHandler(hub, msgH, log),
		ready: func() error { return dbConn.Ping() },
	})

	return &Server{
		Router: router,
		HTTP: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		DB:         dbConn,
		Redis:      rdb,
		JWTManager: jwtMgr,
		Store:      roomStore,
		Hub:        hub,
		log:        log,
	}, nil
}

func newCodec(key string) (*codec.Codec, error) {
	if key == "" {
		return codec.NewRandom()
	}
	raw, err := codec.ParseKey(key)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY: %w", err)
	}
	return codec.New(raw)
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func connectRedis(url string) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connect failed: %w", err)
	}
	return rdb, nil
}

// Run starts the hub and the HTTP listener. It returns once the listener
// has stopped; http.ErrServerClosed is not an error.
func (s *Server) Run() error {
	go s.Hub.Run()
	s.log.Info("server starting", zap.String("addr", s.HTTP.Addr))
	if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then closes live connections and the
// backing stores.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.HTTP.Shutdown(ctx)
	s.Hub.Stop()
	if s.Redis != nil {
		err = errors.Join(err, s.Redis.Close())
	}
	return errors.Join(err, s.DB.Close())
}
