package service

import "errors"

// Sentinel kinds for service-level errors.
var (
	ErrBadInput = errors.New("bad input")
)
