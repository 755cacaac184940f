package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, err := m.Generate("12345")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "12345", claims.RoomID)

	exp, err := m.Expiry(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)
}

func TestVerifyRejects(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	other, err := NewJWTManager("other-secret", time.Hour).Generate("12345")
	require.NoError(t, err)
	_, err = m.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewJWTManager("secret", -time.Minute).Generate("12345")
	require.NoError(t, err)
	_, err = m.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, RoomClaims{RoomID: "12345"})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		header string
		token  string
		err    bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer abc", "abc", false},
		{"Basic abc", "", true},
		{"Bearer", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got, err := ExtractTokenFromHeader(r)
		if tt.err {
			assert.ErrorIs(t, err, ErrMissingToken, tt.header)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.token, got)
	}
}
