package session

import "errors"

// Sentinel kinds for session lifecycle errors. All are caller-input errors
// and are never retried internally.
var (
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAlreadyAssigned   = errors.New("role already assigned")
)
