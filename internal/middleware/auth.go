package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/thereayou/cipherchat/pkg/auth"
)

const CredentialKey = "credential"

// Credential stores a bearer token, when one is presented, for the room
// handlers. Checking it is the access guard's job, since a room may equally
// be opened with a password or a verified origin.
func Credential() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := auth.ExtractTokenFromHeader(c.Request); err == nil {
			c.Set(CredentialKey, token)
		}
		c.Next()
	}
}

// WSCredential also accepts the token as a query parameter, since browsers
// cannot set headers on a WebSocket upgrade.
func WSCredential() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token, _ = auth.ExtractTokenFromHeader(c.Request)
		}
		if token != "" {
			c.Set(CredentialKey, token)
		}
		c.Next()
	}
}

// CredentialFrom returns the token stored by Credential, or "".
func CredentialFrom(c *gin.Context) string {
	return c.GetString(CredentialKey)
}
