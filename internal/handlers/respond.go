package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/cipherchat/internal/access"
	"github.com/thereayou/cipherchat/internal/middleware"
	"github.com/thereayou/cipherchat/internal/models"
	"github.com/thereayou/cipherchat/internal/services"
)

const accessDenied = "Access denied! Verify your IP or provide the correct password."

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrRevocationUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusUnauthorized:
		msg = accessDenied
	case http.StatusInternalServerError:
		_ = c.Error(err)
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

// proof collects everything the caller presented for a room.
func proof(c *gin.Context, password string) access.Proof {
	return access.Proof{
		Credential: middleware.CredentialFrom(c),
		Origin:     c.ClientIP(),
		Password:   password,
	}
}

// adminProof is proof without the origin, for password-gated operations.
func adminProof(c *gin.Context, password string) access.Proof {
	return access.Proof{
		Credential: middleware.CredentialFrom(c),
		Password:   password,
	}
}
