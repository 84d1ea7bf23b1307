package store

import "errors"

// Predefined errors for store operations
var (
	ErrSessionNotFound    = errors.New("store: session not found")
	ErrPreferenceNotFound = errors.New("store: preference not found")
	ErrInvalidSession     = errors.New("store: session id is required")
)
