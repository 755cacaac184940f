package models

import "errors"

// Error categories shared by every layer. Callers wrap them with
// fmt.Errorf("%w: ...") and the transport layer maps them with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrStorage      = errors.New("storage error")
	ErrCrypto       = errors.New("crypto error")
)
