package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingToken = errors.New("missing or invalid Authorization header")
)

// RoomClaims binds a credential to exactly one room.
type RoomClaims struct {
	RoomID string `json:"room_id"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

func NewJWTManager(secret string, duration time.Duration) *JWTManager {
	return &JWTManager{secretKey: []byte(secret), tokenDuration: duration}
}

// TokenDuration is the lifetime of issued tokens.
func (m *JWTManager) TokenDuration() time.Duration {
	return m.tokenDuration
}

// Generate issues a token for roomID.
func (m *JWTManager) Generate(roomID string) (string, error) {
	now := time.Now()
	claims := RoomClaims{
		RoomID: roomID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify checks signature and expiry and returns the claims.
func (m *JWTManager) Verify(accessToken string) (*RoomClaims, error) {
	token, err := jwt.ParseWithClaims(accessToken, &RoomClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*RoomClaims)
	if !ok || !token.Valid || claims.RoomID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Expiry returns the expiry time of a valid token.
func (m *JWTManager) Expiry(accessToken string) (time.Time, error) {
	claims, err := m.Verify(accessToken)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}

// ExtractTokenFromHeader pulls a bearer token out of the Authorization header.
func ExtractTokenFromHeader(r *http.Request) (string, error) {
	hdr := r.Header.Get("Authorization")
	parts := strings.SplitN(hdr, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrMissingToken
	}
	return parts[1], nil
}
