package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thereayou/cipherchat/internal/access"
	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/pkg/auth"
)

var ErrRevocationUnavailable = errors.New("token revocation is not configured")

type TokenRevoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
}

// AuthService issues, checks and revokes room credentials.
type AuthService struct {
	guard   *access.Guard
	jwt     *auth.JWTManager
	revoker TokenRevoker
}

// NewAuthService builds the service. revoker may be nil.
func NewAuthService(guard *access.Guard, jwt *auth.JWTManager, revoker TokenRevoker) *AuthService {
	return &AuthService{guard: guard, jwt: jwt, revoker: revoker}
}

// IssueToken trades the room password for a credential.
func (s *AuthService) IssueToken(ctx context.Context, roomID, password string) (string, time.Duration, error) {
	if password == "" {
		return "", 0, fmt.Errorf("%w: password is required", models.ErrUnauthorized)
	}
	if err := s.guard.AuthorizeAdmin(ctx, roomID, access.Proof{Password: password}); err != nil {
		return "", 0, err
	}
	token, err := s.jwt.Generate(roomID)
	if err != nil {
		return "", 0, fmt.Errorf("%w: sign token: %v", models.ErrStorage, err)
	}
	return token, s.jwt.TokenDuration(), nil
}

// VerifyToken returns the room a live credential belongs to.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (string, error) {
	return s.guard.CredentialRoom(ctx, token)
}

// RevokeToken blacklists a credential until it would have expired.
func (s *AuthService) RevokeToken(ctx context.Context, token string) error {
	if s.revoker == nil {
		return ErrRevocationUnavailable
	}
	exp, err := s.jwt.Expiry(token)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if err := s.revoker.Revoke(ctx, token, time.Until(exp)); err != nil {
		return fmt.Errorf("%w: revoke token: %v", models.ErrStorage, err)
	}
	return nil
}
