// Package config loads server settings from .env files, the environment
// and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type Config struct {
	Host string
	Port int

	JWTSecret string
	TokenTTL  time.Duration

	// EncryptionKey is base64; empty means a random per-process key.
	EncryptionKey      string
	MaxMessagesPerRoom int
	PasswordHashCost   int

	UploadDir     string
	MaxFileSizeMB int

	RedisURL      string
	DatabaseDSN   string
	DatabaseDebug bool

	LogLevel  string
	LogFormat string

	MaxAPIRequestsPerMinute  int
	MaxRoomCreationPerMinute int

	TrustedProxies  []string
	ShutdownTimeout time.Duration
	GinMode         string
}

// LoadDotEnv reads .env.local, falling back to .env. Missing files are fine.
func LoadDotEnv() {
	if err := godotenv.Load(".env.local"); err != nil {
		_ = godotenv.Load()
	}
}

// Load builds the configuration from the environment, then applies flags
// from args.
func Load(args []string) (*Config, error) {
	cfg := &Config{
		Host:                     env("HOST", "0.0.0.0"),
		Port:                     envInt("PORT", 10000),
		JWTSecret:                env("JWT_SECRET", ""),
		TokenTTL:                 envDuration("TOKEN_TTL", time.Hour),
		EncryptionKey:            env("ENCRYPTION_KEY", ""),
		MaxMessagesPerRoom:       envInt("MAX_MESSAGES_PER_ROOM", 100),
		PasswordHashCost:         envInt("PASSWORD_HASH_COST", 10),
		UploadDir:                env("UPLOAD_DIR", "./uploads"),
		MaxFileSizeMB:            envInt("MAX_FILE_SIZE_MB", 5),
		RedisURL:                 env("REDIS_URL", ""),
		DatabaseDSN:              env("DATABASE_DSN", ":memory:"),
		DatabaseDebug:            envBool("DB_DEBUG", false),
		LogLevel:                 env("LOG_LEVEL", "info"),
		LogFormat:                env("LOG_FORMAT", "json"),
		MaxAPIRequestsPerMinute:  envInt("MAX_API_REQUESTS_PER_MINUTE", 60),
		MaxRoomCreationPerMinute: envInt("MAX_ROOM_CREATION_PER_MINUTE", 10),
		TrustedProxies:           envList("TRUSTED_PROXIES"),
		ShutdownTimeout:          envDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		GinMode:                  env("GIN_MODE", "release"),
	}

	fs := pflag.NewFlagSet("cipherchat", pflag.ContinueOnError)
	fs.StringVar(&cfg.Host, "host", cfg.Host, "listen address")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "listen port")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "lifetime of room tokens")
	fs.IntVar(&cfg.MaxMessagesPerRoom, "max-messages", cfg.MaxMessagesPerRoom, "messages kept per room")
	fs.StringVar(&cfg.UploadDir, "upload-dir", cfg.UploadDir, "directory for uploaded files")
	fs.IntVar(&cfg.MaxFileSizeMB, "max-file-size", cfg.MaxFileSizeMB, "upload size limit in MiB")
	fs.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "redis URL for rate limiting and token revocation")
	fs.StringVar(&cfg.DatabaseDSN, "database", cfg.DatabaseDSN, "sqlite DSN for user profiles")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "json or console")
	fs.StringSliceVar(&cfg.TrustedProxies, "trusted-proxies", cfg.TrustedProxies, "proxies whose X-Forwarded-For is honoured")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "grace period for shutdown")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	if c.MaxMessagesPerRoom <= 0 {
		errs = append(errs, errors.New("max messages per room must be positive"))
	}
	if c.MaxFileSizeMB <= 0 {
		errs = append(errs, errors.New("max file size must be positive"))
	}
	if c.MaxAPIRequestsPerMinute <= 0 || c.MaxRoomCreationPerMinute <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.PasswordHashCost < 4 || c.PasswordHashCost > 31 {
		errs = append(errs, fmt.Errorf("password hash cost %d out of range", c.PasswordHashCost))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) MaxFileSize() int64 {
	return int64(c.MaxFileSizeMB) << 20
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(env(key, "")); err == nil {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(env(key, "")); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(env(key, "")); err == nil {
		return v
	}
	return def
}

func envList(key string) []string {
	raw := env(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
