// Package common defines shared constants and sentinel errors used across
// Splitsheet components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Provider error taxonomy. Adapters normalize every backend-native
	// failure onto one of these before returning to callers.
	ErrAuth       = errors.New("authentication failed")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrProvider   = errors.New("provider error")

	// Session bridge errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
