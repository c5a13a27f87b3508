package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound       = errors.New("record not found")
	ErrAlreadyMatched = errors.New("queue entry already matched")
	ErrPersistence    = errors.New("persistence failure")
)
