// Package common defines shared constants and sentinel errors used across
// KodBank components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Snapshot-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Intent validation errors, rejected before anything reaches the log.
	ErrorValidation    = errors.New("validation error")
	ErrorAccountExists = errors.New("username or uid already exists")

	// Log-replay errors.
	ErrorDecode    = errors.New("decode error")
	ErrorTransport = errors.New("transport error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
