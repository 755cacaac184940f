// Package access decides whether a caller may act on a room.
package access

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/store"
	"github.com/thereayou/cipherchat/pkg/auth"
)

// Proof carries whatever the caller presented. Any field may be empty.
type Proof struct {
	Credential string
	Origin     string
	Password   string
}

type TokenVerifier interface {
	Verify(token string) (*auth.RoomClaims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type Guard struct {
	store   *store.Store
	tokens  TokenVerifier
	revoked RevocationChecker
	log     *zap.Logger
}

// NewGuard builds a guard. revoked may be nil when no blacklist is
// configured.
func NewGuard(s *store.Store, tokens TokenVerifier, revoked RevocationChecker, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{store: s, tokens: tokens, revoked: revoked, log: log}
}

// Authorize checks, in order, a credential for this room, a verified origin
// and the room password. The first that holds wins. Token and password
// checks run outside the room lock.
func (g *Guard) Authorize(ctx context.Context, roomID string, p Proof) error {
	credOK := g.credentialValid(ctx, roomID, p.Credential)
	var (
		originOK bool
		hash     []byte
	)
	err := g.store.View(roomID, func(r *store.Room) error {
		originOK = p.Origin != "" && r.HasOrigin(p.Origin)
		hash = r.PasswordHash()
		return nil
	})
	if err != nil {
		return err
	}
	if credOK || originOK || store.PasswordMatches(hash, p.Password) {
		return nil
	}
	return fmt.Errorf("%w: room %s", models.ErrUnauthorized, roomID)
}

// AuthorizeAdmin accepts only a credential or the password. A verified
// origin is not enough for password-gated operations.
func (g *Guard) AuthorizeAdmin(ctx context.Context, roomID string, p Proof) error {
	hash, err := g.passwordHash(roomID)
	if err != nil {
		return err
	}
	if g.credentialValid(ctx, roomID, p.Credential) || store.PasswordMatches(hash, p.Password) {
		return nil
	}
	return fmt.Errorf("%w: room %s", models.ErrUnauthorized, roomID)
}

// VerifyOrigin adds ip to the room's verified origins once the caller has
// proved admin rights.
func (g *Guard) VerifyOrigin(ctx context.Context, roomID string, p Proof, ip string) error {
	if ip == "" {
		return fmt.Errorf("%w: ip is required", models.ErrValidation)
	}
	hash, err := g.passwordHash(roomID)
	if err != nil {
		return err
	}
	if !g.credentialValid(ctx, roomID, p.Credential) && !store.PasswordMatches(hash, p.Password) {
		return fmt.Errorf("%w: room %s", models.ErrUnauthorized, roomID)
	}
	return g.store.Update(roomID, func(r *store.Room) error {
		// Proof was checked against this room; a re-created room needs a new one.
		if !bytes.Equal(r.PasswordHash(), hash) {
			return fmt.Errorf("%w: room %s", models.ErrUnauthorized, roomID)
		}
		r.AddOrigin(ip)
		g.log.Info("origin verified", zap.String("room_id", roomID), zap.String("ip", ip))
		return nil
	})
}

// IsPasswordHolder reports whether password is the room's password.
func (g *Guard) IsPasswordHolder(roomID, password string) bool {
	if password == "" {
		return false
	}
	hash, err := g.passwordHash(roomID)
	return err == nil && store.PasswordMatches(hash, password)
}

func (g *Guard) passwordHash(roomID string) ([]byte, error) {
	var hash []byte
	err := g.store.View(roomID, func(r *store.Room) error {
		hash = r.PasswordHash()
		return nil
	})
	return hash, err
}

// CredentialRoom returns the room a credential is valid for.
func (g *Guard) CredentialRoom(ctx context.Context, token string) (string, error) {
	claims, err := g.tokens.Verify(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if g.isRevoked(ctx, token) {
		return "", fmt.Errorf("%w: token revoked", models.ErrUnauthorized)
	}
	return claims.RoomID, nil
}

func (g *Guard) credentialValid(ctx context.Context, roomID, token string) bool {
	if token == "" {
		return false
	}
	claims, err := g.tokens.Verify(token)
	if err != nil || claims.RoomID != roomID {
		return false
	}
	return !g.isRevoked(ctx, token)
}

// isRevoked fails closed: a blacklist we cannot reach rejects the token.
func (g *Guard) isRevoked(ctx context.Context, token string) bool {
	if g.revoked == nil {
		return false
	}
	revoked, err := g.revoked.IsRevoked(ctx, token)
	if err != nil {
		g.log.Warn("revocation check failed", zap.Error(err))
		return true
	}
	return revoked
}
